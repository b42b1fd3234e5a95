package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/curricula/core/coverage"
)

type statRow struct {
	TenantID           string              `db:"tenant_id"`
	CourseID           string              `db:"course_id"`
	FKID               string              `db:"fk_id"`
	CCID               string              `db:"cc_id"`
	ContentCount       int                 `db:"content_count"`
	TotalContentCount  int                 `db:"total_content_count"`
	CoveragePercentage coverage.Percentage `db:"coverage_percentage"`
	LastCalculatedAt   time.Time           `db:"last_calculated_at"`
}

const statColumns = "tenant_id, course_id, fk_id, cc_id, content_count, total_content_count, " +
	"coverage_percentage, last_calculated_at"

type statRepository struct {
	db *sqlx.DB
}

var _ coverage.Repository = (*statRepository)(nil) // interface compliance check

func NewStatRepository(db *sqlx.DB) *statRepository {
	return &statRepository{db: db}
}

func (repo statRepository) CountMappedContent(ctx context.Context, scope coverage.Scope, fkID, ccID string) (int, error) {
	q := `SELECT COUNT(DISTINCT m.content_id)
		FROM content_mapping m
		JOIN content_item c ON c.id = m.content_id AND c.tenant_id = m.tenant_id
		WHERE m.tenant_id = ? AND m.fk_id = ? AND m.cc_id = ?`
	args := []interface{}{scope.TenantID, fkID, ccID}
	if scope.IsCourse() {
		q += " AND c.course_id = ?"
		args = append(args, scope.CourseID)
	}

	var n int
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), args...); err != nil {
		return 0, errors.Wrap(err, "counting mapped content")
	}
	return n, nil
}

func (repo statRepository) CountContent(ctx context.Context, scope coverage.Scope) (int, error) {
	q := "SELECT COUNT(*) FROM content_item WHERE tenant_id = ?"
	args := []interface{}{scope.TenantID}
	if scope.IsCourse() {
		q += " AND course_id = ?"
		args = append(args, scope.CourseID)
	}

	var n int
	if err := repo.db.GetContext(ctx, &n, repo.db.Rebind(q), args...); err != nil {
		return 0, errors.Wrap(err, "counting content")
	}
	return n, nil
}

func (repo statRepository) UpsertStat(ctx context.Context, stat coverage.Stat) error {
	q := repo.db.Rebind(`INSERT INTO coverage_stat (` + statColumns + `)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (tenant_id, course_id, fk_id, cc_id) DO UPDATE SET
			content_count = excluded.content_count,
			total_content_count = excluded.total_content_count,
			coverage_percentage = excluded.coverage_percentage,
			last_calculated_at = excluded.last_calculated_at
		WHERE coverage_stat.last_calculated_at <= excluded.last_calculated_at`)

	_, err := repo.db.ExecContext(ctx, q,
		stat.TenantID, stat.CourseID, stat.FKID, stat.CCID,
		stat.ContentCount, stat.TotalContentCount, stat.CoveragePercentage, stat.LastCalculatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "upserting coverage stat")
	}
	return nil
}

func (repo statRepository) QueryStats(ctx context.Context, scope coverage.Scope) ([]coverage.Stat, error) {
	q := repo.db.Rebind("SELECT " + statColumns + " FROM coverage_stat WHERE tenant_id = ? AND course_id = ? ORDER BY fk_id, cc_id")

	var rows []statRow
	if err := repo.db.SelectContext(ctx, &rows, q, scope.TenantID, scope.CourseID); err != nil {
		return nil, errors.Wrap(err, "querying coverage stats")
	}
	stats := make([]coverage.Stat, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, coverage.Stat{
			Scope:              coverage.CourseScope(r.TenantID, r.CourseID),
			FKID:               r.FKID,
			CCID:               r.CCID,
			ContentCount:       r.ContentCount,
			TotalContentCount:  r.TotalContentCount,
			CoveragePercentage: r.CoveragePercentage,
			LastCalculatedAt:   r.LastCalculatedAt.UTC(),
		})
	}
	return stats, nil
}
