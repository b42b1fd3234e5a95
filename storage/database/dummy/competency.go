package dummydb

import (
	"context"
	"sort"

	"github.com/trezcool/curricula/core/competency"
)

type areaRepository struct {
	db *areaTable
}

var _ competency.Repository = (*areaRepository)(nil) // interface compliance check

func NewAreaRepository(db *DB) *areaRepository {
	return &areaRepository{db: db.area}
}

func (repo *areaRepository) InsertAreas(_ context.Context, areas []competency.Area) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	taken := make(map[competency.Kind]map[int]bool, 2)
	for _, a := range repo.db.table {
		if taken[a.Kind] == nil {
			taken[a.Kind] = make(map[int]bool)
		}
		taken[a.Kind][a.Number] = true
	}

	var inserted int
	for _, area := range areas {
		if _, ok := repo.db.table[area.ID]; ok || taken[area.Kind][area.Number] {
			continue
		}
		a := area
		repo.db.table[a.ID] = &a
		if taken[a.Kind] == nil {
			taken[a.Kind] = make(map[int]bool)
		}
		taken[a.Kind][a.Number] = true
		inserted++
	}
	return inserted, nil
}

func (repo *areaRepository) QueryAreas(_ context.Context, kind competency.Kind, activeOnly bool) ([]competency.Area, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	areas := make([]competency.Area, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		if a.Kind == kind && (a.IsActive || !activeOnly) {
			areas = append(areas, *a)
		}
	}
	sort.Slice(areas, func(i, j int) bool { return areas[i].Number < areas[j].Number })
	return areas, nil
}

func (repo *areaRepository) GetArea(_ context.Context, id string) (competency.Area, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return competency.Area{}, competency.ErrAreaNotFound
}

func (repo *areaRepository) CountAreas(_ context.Context, kind competency.Kind) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, a := range repo.db.table {
		if a.Kind == kind {
			n++
		}
	}
	return n, nil
}

// SetActive toggles an area, for tests.
func (repo *areaRepository) SetActive(id string, active bool) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if a, ok := repo.db.table[id]; ok {
		a.IsActive = active
	}
}
