package dummydb

import (
	"sync"

	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/content"
	"github.com/trezcool/curricula/core/coverage"
	"github.com/trezcool/curricula/core/mapping"
)

type (
	// DB is an in-memory stand-in for the application database.
	// Repositories built on the same DB share its tables, so joins across them work.
	DB struct {
		area    *areaTable
		item    *itemTable
		mapping *mappingTable
		stat    *statTable
		job     *jobTable
	}

	areaTable struct {
		sync.RWMutex
		table map[string]*competency.Area
	}

	itemTable struct {
		sync.RWMutex
		table map[string]*content.Item
	}

	mappingTable struct {
		sync.RWMutex
		table map[string]*mapping.Mapping
	}

	statKey struct {
		scope coverage.Scope
		fkID  string
		ccID  string
	}

	statTable struct {
		sync.RWMutex
		table map[statKey]*coverage.Stat
	}

	jobTable struct {
		sync.RWMutex
		table map[string]*coverage.Job
	}
)

func Open() *DB {
	return &DB{
		area:    &areaTable{table: make(map[string]*competency.Area)},
		item:    &itemTable{table: make(map[string]*content.Item)},
		mapping: &mappingTable{table: make(map[string]*mapping.Mapping)},
		stat:    &statTable{table: make(map[statKey]*coverage.Stat)},
		job:     &jobTable{table: make(map[string]*coverage.Job)},
	}
}
