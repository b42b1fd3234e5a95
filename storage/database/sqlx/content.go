package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/content"
)

type itemRow struct {
	ID          string    `db:"id"`
	TenantID    string    `db:"tenant_id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Type        string    `db:"type"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const itemColumns = "id, tenant_id, course_id, title, type, description, created_at, updated_at"

var itemOrderingColumns = map[string]string{
	"title":      "title",
	"type":       "type",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type itemRepository struct {
	db *sqlx.DB
}

var _ content.Repository = (*itemRepository)(nil) // interface compliance check

func NewItemRepository(db *sqlx.DB) *itemRepository {
	return &itemRepository{db: db}
}

func (repo itemRepository) unrow(r itemRow) content.Item {
	return content.Item{
		ID:          r.ID,
		TenantID:    r.TenantID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Type:        r.Type,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (repo itemRepository) CreateItem(ctx context.Context, item content.Item) (content.Item, error) {
	item.ID = uuid.New().String()
	q := repo.db.Rebind("INSERT INTO content_item (" + itemColumns + ") VALUES (" + placeholders(8) + ")")
	_, err := repo.db.ExecContext(ctx, q,
		item.ID, item.TenantID, item.CourseID, item.Title, item.Type, item.Description,
		item.CreatedAt.UTC(), item.UpdatedAt.UTC())
	if err != nil {
		return content.Item{}, errors.Wrap(err, "inserting content item")
	}
	return item, nil
}

func (repo itemRepository) GetItem(ctx context.Context, id string) (content.Item, error) {
	var r itemRow
	q := repo.db.Rebind("SELECT " + itemColumns + " FROM content_item WHERE id = ?")
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		if err == sql.ErrNoRows {
			return content.Item{}, content.ErrNotFound
		}
		return content.Item{}, errors.Wrap(err, "getting content item")
	}
	return repo.unrow(r), nil
}

func (repo itemRepository) QueryItems(ctx context.Context, filter content.QueryFilter, ordering []core.DBOrdering) ([]content.Item, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.CourseID != "" {
		where = append(where, "course_id = ?")
		args = append(args, filter.CourseID)
	}

	var orderBy []string
	for _, ord := range ordering {
		if col, ok := itemOrderingColumns[ord.Field]; ok {
			orderBy = append(orderBy, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "created_at DESC")
	}
	orderBy = append(orderBy, "id")

	q := "SELECT " + itemColumns + " FROM content_item"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + strings.Join(orderBy, ", ")

	var rows []itemRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying content items")
	}
	items := make([]content.Item, 0, len(rows))
	for _, r := range rows {
		items = append(items, repo.unrow(r))
	}
	return items, nil
}
