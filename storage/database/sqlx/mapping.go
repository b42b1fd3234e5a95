package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core/mapping"
)

type mappingRow struct {
	ID                string       `db:"id"`
	TenantID          string       `db:"tenant_id"`
	ContentID         string       `db:"content_id"`
	FKID              string       `db:"fk_id"`
	CCID              string       `db:"cc_id"`
	AlignmentStrength float64      `db:"alignment_strength"`
	IsAIGenerated     bool         `db:"is_ai_generated"`
	ReviewedBy        string       `db:"reviewed_by"`
	ReviewedAt        sql.NullTime `db:"reviewed_at"`
	CreatedAt         time.Time    `db:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at"`
}

type mappedContentRow struct {
	mappingRow
	ContentTitle       string `db:"content_title"`
	ContentType        string `db:"content_type"`
	ContentDescription string `db:"content_description"`
}

const mappingColumns = "id, tenant_id, content_id, fk_id, cc_id, alignment_strength, is_ai_generated, " +
	"reviewed_by, reviewed_at, created_at, updated_at"

type mappingRepository struct {
	db *sqlx.DB
}

var _ mapping.Repository = (*mappingRepository)(nil) // interface compliance check

func NewMappingRepository(db *sqlx.DB) *mappingRepository {
	return &mappingRepository{db: db}
}

func (repo mappingRepository) row(m mapping.Mapping) mappingRow {
	r := mappingRow{
		ID:                m.ID,
		TenantID:          m.TenantID,
		ContentID:         m.ContentID,
		FKID:              m.FKID,
		CCID:              m.CCID,
		AlignmentStrength: m.AlignmentStrength,
		IsAIGenerated:     m.IsAIGenerated,
		ReviewedBy:        m.ReviewedBy,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
	if m.ReviewedAt != nil {
		r.ReviewedAt = sql.NullTime{Time: m.ReviewedAt.UTC(), Valid: true}
	}
	return r
}

func (repo mappingRepository) unrow(r mappingRow) mapping.Mapping {
	m := mapping.Mapping{
		ID:                r.ID,
		TenantID:          r.TenantID,
		ContentID:         r.ContentID,
		FKID:              r.FKID,
		CCID:              r.CCID,
		AlignmentStrength: r.AlignmentStrength,
		IsAIGenerated:     r.IsAIGenerated,
		ReviewedBy:        r.ReviewedBy,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.ReviewedAt.Valid {
		reviewedAt := r.ReviewedAt.Time.UTC()
		m.ReviewedAt = &reviewedAt
	}
	return m
}

// trapNoRowsErr maps "no rows" err to mapping.ErrNotFound
func (repo mappingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return mapping.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo mappingRepository) CreateMapping(ctx context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	m.ID = uuid.New().String()
	r := repo.row(m)
	q := repo.db.Rebind("INSERT INTO content_mapping (" + mappingColumns + ") VALUES (" + placeholders(11) + ")")
	_, err := repo.db.ExecContext(ctx, q,
		r.ID, r.TenantID, r.ContentID, r.FKID, r.CCID, r.AlignmentStrength, r.IsAIGenerated,
		r.ReviewedBy, r.ReviewedAt, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return mapping.Mapping{}, mapping.ErrExists
		}
		return mapping.Mapping{}, errors.Wrap(err, "inserting content mapping")
	}
	return m, nil
}

func (repo mappingRepository) GetMapping(ctx context.Context, id string) (mapping.Mapping, error) {
	var r mappingRow
	q := repo.db.Rebind("SELECT " + mappingColumns + " FROM content_mapping WHERE id = ?")
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return mapping.Mapping{}, repo.trapNoRowsErr(err, "getting content mapping")
	}
	return repo.unrow(r), nil
}

func (repo mappingRepository) UpdateMapping(ctx context.Context, m mapping.Mapping) (mapping.Mapping, error) {
	r := repo.row(m)
	q := repo.db.Rebind(`UPDATE content_mapping
		SET alignment_strength = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, r.AlignmentStrength, r.ReviewedBy, r.ReviewedAt, r.UpdatedAt, r.ID)
	if err != nil {
		return mapping.Mapping{}, errors.Wrap(err, "updating content mapping")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapping.Mapping{}, errors.Wrap(err, "updating content mapping")
	}
	if n == 0 {
		return mapping.Mapping{}, mapping.ErrNotFound
	}
	return repo.GetMapping(ctx, m.ID)
}

func (repo mappingRepository) DeleteMapping(ctx context.Context, id string) (mapping.Mapping, error) {
	var r mappingRow
	q := repo.db.Rebind("DELETE FROM content_mapping WHERE id = ? RETURNING " + mappingColumns)
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return mapping.Mapping{}, repo.trapNoRowsErr(err, "deleting content mapping")
	}
	return repo.unrow(r), nil
}

func (repo mappingRepository) QueryCellMappings(ctx context.Context, tenantID, fkID, ccID string) ([]mapping.MappedContent, error) {
	q := repo.db.Rebind(`SELECT m.id, m.tenant_id, m.content_id, m.fk_id, m.cc_id, m.alignment_strength, m.is_ai_generated,
			m.reviewed_by, m.reviewed_at, m.created_at, m.updated_at,
			c.title AS content_title, c.type AS content_type, c.description AS content_description
		FROM content_mapping m
		JOIN content_item c ON c.id = m.content_id
		WHERE m.tenant_id = ? AND m.fk_id = ? AND m.cc_id = ?
		ORDER BY m.created_at DESC, m.id`)

	var rows []mappedContentRow
	if err := repo.db.SelectContext(ctx, &rows, q, tenantID, fkID, ccID); err != nil {
		return nil, errors.Wrap(err, "querying cell mappings")
	}
	mcs := make([]mapping.MappedContent, 0, len(rows))
	for _, r := range rows {
		mcs = append(mcs, mapping.MappedContent{
			Mapping: repo.unrow(r.mappingRow),
			Content: mapping.ContentSummary{
				Title:       r.ContentTitle,
				Type:        r.ContentType,
				Description: r.ContentDescription,
			},
		})
	}
	return mcs, nil
}
