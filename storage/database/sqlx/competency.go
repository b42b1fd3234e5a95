package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core/competency"
)

type areaRow struct {
	ID          string    `db:"id"`
	Kind        string    `db:"kind"`
	Number      int       `db:"number"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Category    string    `db:"category"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

const areaColumns = "id, kind, number, name, description, category, is_active, created_at"

type areaRepository struct {
	db *sqlx.DB
}

var _ competency.Repository = (*areaRepository)(nil) // interface compliance check

func NewAreaRepository(db *sqlx.DB) *areaRepository {
	return &areaRepository{db: db}
}

func (repo areaRepository) row(a competency.Area) areaRow {
	return areaRow{
		ID:          a.ID,
		Kind:        string(a.Kind),
		Number:      a.Number,
		Name:        a.Name,
		Description: a.Description,
		Category:    string(a.Category),
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

func (repo areaRepository) unrow(r areaRow) competency.Area {
	return competency.Area{
		ID:          r.ID,
		Kind:        competency.Kind(r.Kind),
		Number:      r.Number,
		Name:        r.Name,
		Description: r.Description,
		Category:    competency.Category(r.Category),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func (repo areaRepository) InsertAreas(ctx context.Context, areas []competency.Area) (int, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind("INSERT INTO competency_area (" + areaColumns + ") VALUES (" + placeholders(8) + ") ON CONFLICT DO NOTHING")
	var inserted int
	for _, area := range areas {
		r := repo.row(area)
		res, err := tx.ExecContext(ctx, q, r.ID, r.Kind, r.Number, r.Name, r.Description, r.Category, r.IsActive, r.CreatedAt)
		if err != nil {
			return 0, errors.Wrapf(err, "inserting competency area %s", area.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, errors.Wrap(err, "counting inserted competency areas")
		}
		inserted += int(n)
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "committing competency areas")
	}
	return inserted, nil
}

func (repo areaRepository) QueryAreas(ctx context.Context, kind competency.Kind, activeOnly bool) ([]competency.Area, error) {
	q := "SELECT " + areaColumns + " FROM competency_area WHERE kind = ?"
	if activeOnly {
		q += " AND is_active = TRUE"
	}
	q += " ORDER BY number"

	var rows []areaRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), string(kind)); err != nil {
		return nil, errors.Wrap(err, "querying competency areas")
	}
	areas := make([]competency.Area, 0, len(rows))
	for _, r := range rows {
		areas = append(areas, repo.unrow(r))
	}
	return areas, nil
}

func (repo areaRepository) GetArea(ctx context.Context, id string) (competency.Area, error) {
	var r areaRow
	q := repo.db.Rebind("SELECT " + areaColumns + " FROM competency_area WHERE id = ?")
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		if err == sql.ErrNoRows {
			return competency.Area{}, competency.ErrAreaNotFound
		}
		return competency.Area{}, errors.Wrap(err, "getting competency area")
	}
	return repo.unrow(r), nil
}

func (repo areaRepository) CountAreas(ctx context.Context, kind competency.Kind) (int, error) {
	var n int
	q := repo.db.Rebind("SELECT COUNT(*) FROM competency_area WHERE kind = ?")
	if err := repo.db.GetContext(ctx, &n, q, string(kind)); err != nil {
		return 0, errors.Wrap(err, "counting competency areas")
	}
	return n, nil
}
