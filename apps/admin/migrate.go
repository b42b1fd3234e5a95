package main

import (
	"github.com/pressly/goose/v3"

	"github.com/trezcool/curricula/storage/database"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	if err := database.PrepareGoose(cli.db); err != nil {
		return err
	}
	return gooseRunFunc(args[0], cli.db.DB, "migrations", args[1:]...)
}
