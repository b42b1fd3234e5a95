package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/curricula/core/coverage"
)

type statRepository struct {
	db       *statTable
	mappings *mappingTable
	items    *itemTable
}

var _ coverage.Repository = (*statRepository)(nil) // interface compliance check

func NewStatRepository(db *DB) *statRepository {
	return &statRepository{db: db.stat, mappings: db.mapping, items: db.item}
}

func (repo *statRepository) CountMappedContent(_ context.Context, scope coverage.Scope, fkID, ccID string) (int, error) {
	repo.mappings.RLock()
	defer repo.mappings.RUnlock()
	repo.items.RLock()
	defer repo.items.RUnlock()

	distinct := make(map[string]bool)
	for _, m := range repo.mappings.table {
		if m.TenantID != scope.TenantID || m.FKID != fkID || m.CCID != ccID {
			continue
		}
		item, ok := repo.items.table[m.ContentID]
		if !ok || item.TenantID != m.TenantID {
			continue
		}
		if scope.IsCourse() && item.CourseID != scope.CourseID {
			continue
		}
		distinct[m.ContentID] = true
	}
	return len(distinct), nil
}

func (repo *statRepository) CountContent(_ context.Context, scope coverage.Scope) (int, error) {
	repo.items.RLock()
	defer repo.items.RUnlock()

	var n int
	for _, it := range repo.items.table {
		if it.TenantID == scope.TenantID && (!scope.IsCourse() || it.CourseID == scope.CourseID) {
			n++
		}
	}
	return n, nil
}

func (repo *statRepository) UpsertStat(_ context.Context, stat coverage.Stat) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := statKey{scope: stat.Scope, fkID: stat.FKID, ccID: stat.CCID}
	if existing, ok := repo.db.table[key]; ok && existing.LastCalculatedAt.After(stat.LastCalculatedAt) {
		return nil // a newer calculation won
	}
	st := stat
	repo.db.table[key] = &st
	return nil
}

func (repo *statRepository) QueryStats(_ context.Context, scope coverage.Scope) ([]coverage.Stat, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	stats := make([]coverage.Stat, 0)
	for key, st := range repo.db.table {
		if key.scope == scope {
			stats = append(stats, *st)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].FKID != stats[j].FKID {
			return stats[i].FKID < stats[j].FKID
		}
		return stats[i].CCID < stats[j].CCID
	})
	return stats, nil
}

// StatCount returns the number of stored stats, for tests.
func (repo *statRepository) StatCount() int {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table)
}
