// Package assert reports broken terrain invariants by panicking.
//
// Checks are on by default. Hot generation paths may turn them off with
// SetEnabled(false); after that a broken invariant yields garbage rather than
// a panic.
package assert

import (
	"fmt"
	"sync/atomic"
)

var enabled atomic.Bool

func init() { enabled.Store(true) }

func SetEnabled(on bool) { enabled.Store(on) }

func Enabled() bool { return enabled.Load() }

// That panics with the formatted message when cond is false.
func That(cond bool, format string, args ...any) {
	if cond || !enabled.Load() {
		return
	}
	panic(fmt.Sprintf("terrain invariant: "+format, args...))
}

// InRange checks lo <= v <= hi.
func InRange(v, lo, hi float64, what string) {
	if !enabled.Load() {
		return
	}
	if v < lo || v > hi || v != v {
		panic(fmt.Sprintf("terrain invariant: %s = %v outside [%v, %v]", what, v, lo, hi))
	}
}
