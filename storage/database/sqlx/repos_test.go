package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/content"
	"github.com/trezcool/curricula/core/coverage"
	"github.com/trezcool/curricula/core/mapping"
	sqlxrepos "github.com/trezcool/curricula/storage/database/sqlx"
	"github.com/trezcool/curricula/tests"
)

func seeded(t *testing.T) (*sqlx.DB, competency.Repository) {
	db := testutil.OpenDB(t)
	areas := sqlxrepos.NewAreaRepository(db)
	testutil.SeedCatalog(t, areas)
	return db, areas
}

func TestAreaRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := sqlxrepos.NewAreaRepository(db)
	ctx := context.Background()

	n, err := repo.CountAreas(ctx, competency.KindFoundationKnowledge)
	require.NoError(t, err)
	assert.Zero(t, n)

	now := time.Now().UTC().Truncate(time.Microsecond)
	areas := competency.Catalog()
	for i := range areas {
		areas[i].CreatedAt = now
	}
	inserted, err := repo.InsertAreas(ctx, areas)
	require.NoError(t, err)
	assert.Equal(t, 66, inserted)

	inserted, err = repo.InsertAreas(ctx, areas)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	n, err = repo.CountAreas(ctx, competency.KindClinicalContent)
	require.NoError(t, err)
	assert.Equal(t, 56, n)

	cc, err := repo.GetArea(ctx, "CC21")
	require.NoError(t, err)
	assert.Equal(t, competency.CategoryOralHealthManagement, cc.Category)
	assert.True(t, cc.IsActive)
	assert.True(t, now.Equal(cc.CreatedAt))

	_, err = repo.GetArea(ctx, "CC57")
	assert.Equal(t, competency.ErrAreaNotFound, err)

	_, err = db.Exec("UPDATE competency_area SET is_active = FALSE WHERE id = 'FK3'")
	require.NoError(t, err)

	fks, err := repo.QueryAreas(ctx, competency.KindFoundationKnowledge, true)
	require.NoError(t, err)
	require.Len(t, fks, 9)
	assert.Equal(t, "FK1", fks[0].ID)
	assert.Equal(t, "FK4", fks[2].ID)
	assert.Equal(t, "FK10", fks[8].ID)

	fks, err = repo.QueryAreas(ctx, competency.KindFoundationKnowledge, false)
	require.NoError(t, err)
	assert.Len(t, fks, 10)
}

func TestItemRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := sqlxrepos.NewItemRepository(db)
	ctx := context.Background()

	now := time.Now()
	a := testutil.CreateContent(t, repo, "t1", "c1", "Anatomy", now.Add(-2*time.Hour))
	b := testutil.CreateContent(t, repo, "t1", "", "Biochemistry", now.Add(-time.Hour))
	testutil.CreateContent(t, repo, "t2", "c1", "Other tenant", now)

	got, err := repo.GetItem(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = repo.GetItem(ctx, "missing")
	assert.Equal(t, content.ErrNotFound, err)

	items, err := repo.QueryItems(ctx, content.QueryFilter{TenantID: "t1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []content.Item{b, a}, items)

	items, err = repo.QueryItems(ctx, content.QueryFilter{TenantID: "t1"}, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []content.Item{a, b}, items)

	items, err = repo.QueryItems(ctx, content.QueryFilter{TenantID: "t1", CourseID: "c1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []content.Item{a}, items)
}

func TestMappingRepository(t *testing.T) {
	db, _ := seeded(t)
	repo := sqlxrepos.NewMappingRepository(db)
	items := sqlxrepos.NewItemRepository(db)
	ctx := context.Background()

	item := testutil.CreateContent(t, items, "t1", "", "Caries")
	now := time.Now().UTC().Truncate(time.Microsecond)
	newMapping := func(fkID, ccID string, createdAt time.Time) mapping.Mapping {
		return mapping.Mapping{
			TenantID: "t1", ContentID: item.ID, FKID: fkID, CCID: ccID,
			AlignmentStrength: 0.75, IsAIGenerated: true, CreatedAt: createdAt, UpdatedAt: createdAt,
		}
	}

	m1, err := repo.CreateMapping(ctx, newMapping("FK1", "CC1", now.Add(-time.Minute)))
	require.NoError(t, err)
	require.NotEmpty(t, m1.ID)

	t.Run("duplicate", func(t *testing.T) {
		_, err := repo.CreateMapping(ctx, newMapping("FK1", "CC1", now))
		assert.Equal(t, mapping.ErrExists, err)
	})

	t.Run("unknown area", func(t *testing.T) {
		_, err := repo.CreateMapping(ctx, newMapping("FK11", "CC1", now))
		require.Error(t, err)
		assert.False(t, core.IsConflict(err))
	})

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetMapping(ctx, m1.ID)
		require.NoError(t, err)
		assert.Equal(t, m1, got)

		_, err = repo.GetMapping(ctx, "missing")
		assert.Equal(t, mapping.ErrNotFound, err)
	})

	t.Run("update", func(t *testing.T) {
		upd := m1
		reviewedAt := now
		upd.AlignmentStrength = 0.5
		upd.ReviewedBy = "dr.who"
		upd.ReviewedAt = &reviewedAt
		upd.UpdatedAt = now

		got, err := repo.UpdateMapping(ctx, upd)
		require.NoError(t, err)
		assert.Equal(t, 0.5, got.AlignmentStrength)
		assert.Equal(t, "dr.who", got.ReviewedBy)
		require.NotNil(t, got.ReviewedAt)
		assert.True(t, now.Equal(*got.ReviewedAt))
		assert.True(t, m1.CreatedAt.Equal(got.CreatedAt))

		upd.ID = "missing"
		_, err = repo.UpdateMapping(ctx, upd)
		assert.Equal(t, mapping.ErrNotFound, err)
	})

	m2, err := repo.CreateMapping(ctx, newMapping("FK1", "CC2", now))
	require.NoError(t, err)
	other := testutil.CreateContent(t, items, "t1", "", "Endodontics")
	m3, err := repo.CreateMapping(ctx, mapping.Mapping{
		TenantID: "t1", ContentID: other.ID, FKID: "FK1", CCID: "CC1",
		AlignmentStrength: 1, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	t.Run("cell", func(t *testing.T) {
		mcs, err := repo.QueryCellMappings(ctx, "t1", "FK1", "CC1")
		require.NoError(t, err)
		require.Len(t, mcs, 2)
		assert.Equal(t, m3.ID, mcs[0].ID)
		assert.Equal(t, "Endodontics", mcs[0].Content.Title)
		assert.Equal(t, m1.ID, mcs[1].ID)
		assert.Equal(t, "Caries", mcs[1].Content.Title)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := repo.DeleteMapping(ctx, m2.ID)
		require.NoError(t, err)
		assert.Equal(t, m2, deleted)

		_, err = repo.DeleteMapping(ctx, m2.ID)
		assert.Equal(t, mapping.ErrNotFound, err)
	})
}

func TestStatRepository(t *testing.T) {
	db, _ := seeded(t)
	repo := sqlxrepos.NewStatRepository(db)
	items := sqlxrepos.NewItemRepository(db)
	mappings := sqlxrepos.NewMappingRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	mapTo := func(item content.Item, fkID, ccID string) {
		_, err := mappings.CreateMapping(ctx, mapping.Mapping{
			TenantID: item.TenantID, ContentID: item.ID, FKID: fkID, CCID: ccID,
			AlignmentStrength: 1, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
	}

	a := testutil.CreateContent(t, items, "t1", "c1", "A")
	b := testutil.CreateContent(t, items, "t1", "c2", "B")
	testutil.CreateContent(t, items, "t1", "", "C")
	foreign := testutil.CreateContent(t, items, "t2", "c1", "Other tenant")
	mapTo(a, "FK1", "CC1")
	mapTo(b, "FK1", "CC1")
	mapTo(a, "FK1", "CC2")
	mapTo(foreign, "FK1", "CC1")

	// a mapping claiming another tenant's content is not counted
	_, err := db.Exec(db.Rebind(`INSERT INTO content_mapping
		(id, tenant_id, content_id, fk_id, cc_id, alignment_strength, is_ai_generated, reviewed_by, created_at, updated_at)
		VALUES ('rogue', 't1', ?, 'FK1', 'CC1', 1, FALSE, '', ?, ?)`), foreign.ID, now, now)
	require.NoError(t, err)

	t.Run("counts", func(t *testing.T) {
		tests := []struct {
			name      string
			scope     coverage.Scope
			wantCount int
			wantTotal int
		}{
			{name: "tenant", scope: coverage.TenantScope("t1"), wantCount: 2, wantTotal: 3},
			{name: "course", scope: coverage.CourseScope("t1", "c1"), wantCount: 1, wantTotal: 1},
			{name: "other tenant", scope: coverage.TenantScope("t2"), wantCount: 1, wantTotal: 1},
			{name: "unknown tenant", scope: coverage.TenantScope("t3"), wantCount: 0, wantTotal: 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				count, err := repo.CountMappedContent(ctx, tt.scope, "FK1", "CC1")
				require.NoError(t, err)
				assert.Equal(t, tt.wantCount, count)

				total, err := repo.CountContent(ctx, tt.scope)
				require.NoError(t, err)
				assert.Equal(t, tt.wantTotal, total)
			})
		}
	})

	t.Run("upsert", func(t *testing.T) {
		scope := coverage.TenantScope("t1")
		stat := coverage.Stat{
			Scope: scope, FKID: "FK1", CCID: "CC1",
			ContentCount: 2, TotalContentCount: 3,
			CoveragePercentage: coverage.NewPercentage(2, 3),
			LastCalculatedAt:   now,
		}
		require.NoError(t, repo.UpsertStat(ctx, stat))
		require.NoError(t, repo.UpsertStat(ctx, stat)) // idempotent

		// stale
		stale := stat
		stale.ContentCount = 0
		stale.CoveragePercentage = 0
		stale.LastCalculatedAt = now.Add(-time.Millisecond)
		require.NoError(t, repo.UpsertStat(ctx, stale))

		// a course stat of the same cell is a different row
		course := stat
		course.Scope = coverage.CourseScope("t1", "c1")
		course.ContentCount, course.TotalContentCount = 1, 1
		course.CoveragePercentage = coverage.NewPercentage(1, 1)
		require.NoError(t, repo.UpsertStat(ctx, course))

		stats, err := repo.QueryStats(ctx, scope)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, 2, stats[0].ContentCount)
		assert.Equal(t, "66.67", stats[0].CoveragePercentage.String())
		assert.True(t, now.Equal(stats[0].LastCalculatedAt))
		assert.Equal(t, scope, stats[0].Scope)

		stats, err = repo.QueryStats(ctx, coverage.CourseScope("t1", "c1"))
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, "100.00", stats[0].CoveragePercentage.String())

		// newer
		newer := stat
		newer.ContentCount = 1
		newer.CoveragePercentage = coverage.NewPercentage(1, 3)
		newer.LastCalculatedAt = now.Add(time.Second)
		require.NoError(t, repo.UpsertStat(ctx, newer))

		stats, err = repo.QueryStats(ctx, scope)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, 1, stats[0].ContentCount)
		assert.Equal(t, "33.33", stats[0].CoveragePercentage.String())
	})
}
