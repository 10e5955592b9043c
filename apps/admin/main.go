package main

import (
	"fmt"
	"os"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/services/logger"
	"github.com/appdotbuilder/junior-science-lms/storage/database"
	"github.com/appdotbuilder/junior-science-lms/storage/database/sqlboiler"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewZapLogger(conf.Env).Named("ADMIN"), conf)
	logger.Enable(false)
	defer logger.Sync()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// start CLI
	cli := commandLine{
		db:         db,
		driverName: database.DriverName(conf),
		usrRepo:    boiledrepos.NewUserRepository(db),
		logger:     logger,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		logger.Sync()
		os.Exit(1)
	}
}
