package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/curricula/core"
	"github.com/trezcool/curricula/core/competency"
	"github.com/trezcool/curricula/core/coverage"
	logsvc "github.com/trezcool/curricula/services/logger"
	"github.com/trezcool/curricula/storage/database"
	dummydb "github.com/trezcool/curricula/storage/database/dummy"
	sqlxrepos "github.com/trezcool/curricula/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.NewConsoleLogger("ADMIN", conf.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// start CLI
	competencySvc := competency.NewService(sqlxrepos.NewAreaRepository(db), logger)
	cli := commandLine{
		db:            db,
		competencySvc: competencySvc,
		coverageSvc: coverage.NewService(
			sqlxrepos.NewStatRepository(db),
			competencySvc,
			dummydb.NewJobStore(dummydb.Open()), // jobs are not used from the CLI
			logger,
			conf,
		),
		out: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
