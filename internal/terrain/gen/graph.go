package gen

import (
	"fmt"
	"sort"
)

type LayerID int

const (
	LayerWorldBaseHeight LayerID = iota
	LayerBiomeRaw
	LayerRawBiomeWeights
	LayerBlendedBiomeWeights
	LayerBlendedBiomeHeight
	LayerBlendedBiomeBasis
	LayerBlendedBiomeBlock
	LayerBlendedBiomeStructureInfo
	LayerBlendedBiomeStructures

	layerCount
)

var layerNames = [layerCount]string{
	LayerWorldBaseHeight:           "WorldBaseHeight",
	LayerBiomeRaw:                  "BiomeRaw",
	LayerRawBiomeWeights:           "RawBiomeWeights",
	LayerBlendedBiomeWeights:       "BlendedBiomeWeights",
	LayerBlendedBiomeHeight:        "BlendedBiomeHeight",
	LayerBlendedBiomeBasis:         "BlendedBiomeBasis",
	LayerBlendedBiomeBlock:         "BlendedBiomeBlock",
	LayerBlendedBiomeStructureInfo: "BlendedBiomeStructureInfo",
	LayerBlendedBiomeStructures:    "BlendedBiomeStructures",
}

func (id LayerID) String() string {
	if id < 0 || id >= layerCount {
		return fmt.Sprintf("layer(%d)", int(id))
	}
	return layerNames[id]
}

// Layers lists every layer id in declaration order.
func Layers() []LayerID {
	out := make([]LayerID, layerCount)
	for i := range out {
		out[i] = LayerID(i)
	}
	return out
}

// dependsOn is the static layer graph. A layer may only request the layers
// listed here; Generator.dep enforces it at runtime.
var dependsOn = [layerCount][]LayerID{
	LayerWorldBaseHeight:           nil,
	LayerBiomeRaw:                  nil,
	LayerRawBiomeWeights:           {LayerWorldBaseHeight, LayerBiomeRaw},
	LayerBlendedBiomeWeights:       {LayerRawBiomeWeights},
	LayerBlendedBiomeHeight:        {LayerWorldBaseHeight, LayerBlendedBiomeWeights},
	LayerBlendedBiomeBasis:         {LayerBlendedBiomeWeights, LayerBlendedBiomeHeight},
	LayerBlendedBiomeBlock:         {LayerBlendedBiomeBasis},
	LayerBlendedBiomeStructureInfo: {LayerBlendedBiomeWeights, LayerBlendedBiomeHeight},
	LayerBlendedBiomeStructures:    {LayerBlendedBiomeStructureInfo, LayerBlendedBiomeBlock},
}

// generateOrder is dependencies first. It is computed once; a cycle in
// dependsOn stops the program at init.
var generateOrder = mustOrder(dependsOn[:])

// topoOrder returns the nodes of graph ordered so every node comes after all
// of its dependencies. Ties are broken by id so the order is stable.
func topoOrder(graph [][]LayerID) ([]LayerID, error) {
	n := len(graph)
	pending := make([]int, n)
	users := make([][]LayerID, n)
	for from, deps := range graph {
		for _, to := range deps {
			if to < 0 || int(to) >= n {
				return nil, fmt.Errorf("layer %d depends on unknown layer %d", from, to)
			}
			if int(to) == from {
				return nil, fmt.Errorf("layer %s depends on itself", LayerID(from))
			}
			pending[from]++
			users[to] = append(users[to], LayerID(from))
		}
	}

	var ready []LayerID
	for i := 0; i < n; i++ {
		if pending[i] == 0 {
			ready = append(ready, LayerID(i))
		}
	}
	order := make([]LayerID, 0, n)
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, u := range users[id] {
			pending[u]--
			if pending[u] == 0 {
				ready = append(ready, u)
			}
		}
	}
	if len(order) != n {
		var stuck []string
		for i := 0; i < n; i++ {
			if pending[i] > 0 {
				stuck = append(stuck, LayerID(i).String())
			}
		}
		return nil, fmt.Errorf("layer graph has a cycle through %v", stuck)
	}
	return order, nil
}

func mustOrder(graph [][]LayerID) []LayerID {
	order, err := topoOrder(graph)
	if err != nil {
		panic(err)
	}
	return order
}

func declared(from, to LayerID) bool {
	for _, d := range dependsOn[from] {
		if d == to {
			return true
		}
	}
	return false
}
