package main

import (
	"github.com/teamfeed/teamfeed/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

// migrate runs the goose command args[0] with the remaining args.
func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
