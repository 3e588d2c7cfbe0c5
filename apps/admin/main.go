package main

import (
	"fmt"
	"os"
	"time"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/billing"
	"github.com/trezcool/alama/core/school"
	logsvc "github.com/trezcool/alama/services/logger"
	"github.com/trezcool/alama/storage/database"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Printf("building zap logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	store := sqlxrepos.New(db, conf.Database.Driver())

	clock := func() time.Time { return time.Now().In(conf.Location) }
	nowFunc = clock

	// start CLI
	cli := commandLine{
		db:         db,
		schoolSvc:  school.NewService(store, logger, clock),
		billingSvc: billing.NewService(store, logger, clock),
	}
	err = cli.run(os.Args)
	if err != nil && err != errHelp {
		logger.Error("admin command failed", err)
	}
	_ = logger.Sync()
	_ = store.Close()
	if err != nil {
		os.Exit(1)
	}
}
