package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/content"
	logsvc "github.com/trezcool/curricula/services/logger"
	"github.com/trezcool/curricula/storage/database"
)

// Config returns a test configuration: sqlite, no redis, small recalculation pool.
func Config() *core.Config {
	return &core.Config{
		Env:      "TEST",
		AppName:  "Curricula",
		TestMode: true,
		Server: core.ServerConfig{
			Address:        ":0",
			DisableReqLogs: true,
		},
		Database: core.DatabaseConfig{Engine: database.EngineSQLite},
		Coverage: core.CoverageConfig{
			RecalcConcurrency:   4,
			RecalcTimeout:       30 * time.Second,
			SuggestionThreshold: 0.7,
		},
	}
}

// OpenDB opens a fresh migrated sqlite database in a temp dir. It is closed when the test ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "curricula.db"))
	if err != nil {
		t.Fatalf("OpenDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("OpenDB() migrations: %v", err)
	}
	return db
}

func NewLogger(t *testing.T) core.Logger {
	return logsvc.NewZapLogger(zaptest.NewLogger(t))
}

func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

// SeedCatalog inserts the 10 FK and 56 CC areas.
func SeedCatalog(t *testing.T, repo competency.Repository) *competency.Service {
	t.Helper()

	svc := competency.NewService(repo, NewLogger(t))
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("SeedCatalog(): %v", err)
	}
	return svc
}

func CreateContent(t *testing.T, repo content.Repository, tenantID, courseID, title string, createdAt ...time.Time) content.Item {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	item, err := repo.CreateItem(context.Background(), content.Item{
		TenantID:  tenantID,
		CourseID:  courseID,
		Title:     title,
		Type:      "document",
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateContent(): %v", err)
	}
	return item
}
