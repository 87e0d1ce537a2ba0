package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/services/email"
	"github.com/teamfeed/teamfeed/services/logger"
	"github.com/teamfeed/teamfeed/storage/database"
	"github.com/teamfeed/teamfeed/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("ADMIN"), conf)
	logger.Enable(false)

	if err = run(conf, logger); err != nil {
		if errors.Cause(err) != errHelp {
			zl.Error("admin command failed", zap.Error(err))
		}
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(conf *core.Config, logger core.Logger) error {
	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err = database.StatusCheck(context.Background(), db.DB); err != nil {
		return err
	}

	// start CLI
	validator := core.NewValidator()
	cli := commandLine{
		db:     db.DB,
		accSvc: account.NewService(sqlxrepos.NewAccountRepository(db), emailsvc.NewConsoleService(conf, logger), validator, conf),
		out:    os.Stdout,
	}
	return cli.run(os.Args)
}
