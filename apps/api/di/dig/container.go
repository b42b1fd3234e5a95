package dig_container

import (
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/curricula/apps/api/echo"
	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/content"
	"github.com/trezcool/curricula/core/coverage"
	"github.com/trezcool/curricula/core/mapping"
	logsvc "github.com/trezcool/curricula/services/logger"
	rediscache "github.com/trezcool/curricula/storage/cache/redis"
	"github.com/trezcool/curricula/storage/database"
	dummydb "github.com/trezcool/curricula/storage/database/dummy"
	sqlxrepos "github.com/trezcool/curricula/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	CoverageLoggerParam struct {
		dig.In
		Logger core.Logger `name:"coverageLogger"`
	}
)

func newNamedLogger(name string, conf *core.Config) core.Logger {
	sink, err := logsvc.NewConsoleLogger(name, conf.Debug)
	if err != nil {
		log.Fatalf("setting up %s logger: %v", name, err)
	}
	logger := logsvc.NewRollbarLogger(sink, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newNamedLogger("API", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return newNamedLogger("DB", conf)
}

func newCoverageLogger(conf *core.Config) core.Logger {
	return newNamedLogger("COVERAGE", conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newJobStore keeps recalculation jobs in redis when it is configured, in memory otherwise.
func newJobStore(conf *core.Config, logger core.Logger) coverage.JobStore {
	if conf.Redis.Addr == "" {
		logger.Info("redis not configured: recalculation jobs are kept in memory")
		return dummydb.NewJobStore(dummydb.Open())
	}
	store, err := rediscache.NewJobStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up redis job store: %v", err), err)
	}
	return store
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newCoverageService(
	repo coverage.Repository,
	catalog *competency.Service,
	jobs coverage.JobStore,
	loggerParam CoverageLoggerParam,
	conf *core.Config,
) *coverage.Service {
	return coverage.NewService(repo, catalog, jobs, loggerParam.Logger, conf)
}

func newMappingService(
	repo mapping.Repository,
	areas *competency.Service,
	contents *content.Service,
	listener *coverage.Service,
	validate *validator.Validate,
	logger core.Logger,
) *mapping.Service {
	return mapping.NewService(repo, areas, contents, listener, validate, logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	translator ut.Translator,
	validate *validator.Validate,
	competencySvc *competency.Service,
	contentSvc *content.Service,
	mappingSvc *mapping.Service,
	coverageSvc *coverage.Service,
) *echoapi.Server {
	return echoapi.NewServer(conf, logger, &echoapi.Deps{
		CompetencySvc: competencySvc,
		ContentSvc:    contentSvc,
		MappingSvc:    mappingSvc,
		CoverageSvc:   coverageSvc,
		Validate:      validate,
		Translator:    translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newCoverageLogger, dig.Name("coverageLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewAreaRepository, dig.As(new(competency.Repository))))
	must(c.Provide(sqlxrepos.NewItemRepository, dig.As(new(content.Repository))))
	must(c.Provide(sqlxrepos.NewMappingRepository, dig.As(new(mapping.Repository))))
	must(c.Provide(sqlxrepos.NewStatRepository, dig.As(new(coverage.Repository))))
	must(c.Provide(newJobStore))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(competency.NewService))
	must(c.Provide(content.NewService))
	must(c.Provide(newCoverageService))
	must(c.Provide(newMappingService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
