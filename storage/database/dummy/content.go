package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/content"
)

type itemRepository struct {
	db *itemTable
}

var _ content.Repository = (*itemRepository)(nil) // interface compliance check

func NewItemRepository(db *DB) *itemRepository {
	return &itemRepository{db: db.item}
}

func (repo *itemRepository) CreateItem(_ context.Context, item content.Item) (content.Item, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	item.ID = uuid.New().String()
	it := item
	repo.db.table[it.ID] = &it
	return item, nil
}

func (repo *itemRepository) GetItem(_ context.Context, id string) (content.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if it, ok := repo.db.table[id]; ok {
		return *it, nil
	}
	return content.Item{}, content.ErrNotFound
}

func (repo *itemRepository) QueryItems(_ context.Context, filter content.QueryFilter, ordering []core.DBOrdering) ([]content.Item, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	items := make([]content.Item, 0)
	for _, it := range repo.db.table {
		if filter.TenantID != "" && it.TenantID != filter.TenantID {
			continue
		}
		if filter.CourseID != "" && it.CourseID != filter.CourseID {
			continue
		}
		items = append(items, *it)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, ord := range ordering {
			if c := compareItems(items[i], items[j], ord.Field); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func compareItems(a, b content.Item, field string) int {
	cmpStr := func(x, y string) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch field {
	case "title":
		return cmpStr(a.Title, b.Title)
	case "type":
		return cmpStr(a.Type, b.Type)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}
