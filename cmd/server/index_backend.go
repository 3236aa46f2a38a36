package main

import (
	"fmt"
	"os"
	"strings"

	"terragen.ai/internal/persistence/indexdb"
	"terragen.ai/internal/terrain/realm"
)

type runtimeIndex interface {
	realm.BatchSink
	RecordRegion(sr realm.SavedRegion)
	Close() error
}

// openRuntimeIndex opens the read-model index named by TG_INDEX_BACKEND
// (default sqlite). It returns nil when indexing is off.
func openRuntimeIndex(sqlitePath string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TG_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		if strings.TrimSpace(sqlitePath) == "" {
			return nil, nil
		}
		return indexdb.OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported TG_INDEX_BACKEND: %s", backend)
	}
}
