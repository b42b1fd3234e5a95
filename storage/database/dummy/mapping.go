package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/curricula/core/mapping"
)

type mappingRepository struct {
	db    *mappingTable
	items *itemTable
}

var _ mapping.Repository = (*mappingRepository)(nil) // interface compliance check

func NewMappingRepository(db *DB) *mappingRepository {
	return &mappingRepository{db: db.mapping, items: db.item}
}

func (repo *mappingRepository) CreateMapping(_ context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if other.TenantID == m.TenantID && other.ContentID == m.ContentID && other.FKID == m.FKID && other.CCID == m.CCID {
			return mapping.Mapping{}, mapping.ErrExists
		}
	}
	m.ID = uuid.New().String()
	saved := m
	repo.db.table[m.ID] = &saved
	return m, nil
}

func (repo *mappingRepository) GetMapping(_ context.Context, id string) (mapping.Mapping, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.table[id]; ok {
		return *m, nil
	}
	return mapping.Mapping{}, mapping.ErrNotFound
}

func (repo *mappingRepository) UpdateMapping(_ context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// only save updatable fields
	orig, ok := repo.db.table[m.ID]
	if !ok {
		return mapping.Mapping{}, mapping.ErrNotFound
	}
	orig.AlignmentStrength = m.AlignmentStrength
	orig.ReviewedBy = m.ReviewedBy
	orig.ReviewedAt = m.ReviewedAt
	orig.UpdatedAt = m.UpdatedAt
	return *orig, nil
}

func (repo *mappingRepository) DeleteMapping(_ context.Context, id string) (mapping.Mapping, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m, ok := repo.db.table[id]
	if !ok {
		return mapping.Mapping{}, mapping.ErrNotFound
	}
	delete(repo.db.table, id)
	return *m, nil
}

func (repo *mappingRepository) QueryCellMappings(_ context.Context, tenantID, fkID, ccID string) ([]mapping.MappedContent, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.items.RLock()
	defer repo.items.RUnlock()

	mcs := make([]mapping.MappedContent, 0)
	for _, m := range repo.db.table {
		if m.TenantID != tenantID || m.FKID != fkID || m.CCID != ccID {
			continue
		}
		item, ok := repo.items.table[m.ContentID]
		if !ok {
			continue
		}
		mcs = append(mcs, mapping.MappedContent{
			Mapping: *m,
			Content: mapping.ContentSummary{Title: item.Title, Type: item.Type, Description: item.Description},
		})
	}
	sort.Slice(mcs, func(i, j int) bool {
		if !mcs[i].CreatedAt.Equal(mcs[j].CreatedAt) {
			return mcs[i].CreatedAt.After(mcs[j].CreatedAt)
		}
		return mcs[i].ID < mcs[j].ID
	})
	return mcs, nil
}
