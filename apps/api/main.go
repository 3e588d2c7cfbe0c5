package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/billing"
	"github.com/trezcool/alama/core/finance"
	"github.com/trezcool/alama/core/report"
	"github.com/trezcool/alama/core/school"
	logsvc "github.com/trezcool/alama/services/logger"
	rediscache "github.com/trezcool/alama/storage/cache/redis"
	"github.com/trezcool/alama/storage/database"
	sqlxrepos "github.com/trezcool/alama/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		panic(fmt.Sprintf("building zap logger: %v", err))
	}
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer func() { _ = logger.Sync() }()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	store := sqlxrepos.New(db, conf.Database.Driver())
	defer func() {
		if err = store.Close(); err != nil {
			logger.Error("failed to close database", err)
		}
	}()

	// set up services
	clock := func() time.Time { return time.Now().In(conf.Location) }
	reportOpts := []report.Option{report.WithLocation(conf.Location)}
	if !conf.Redis.Disabled {
		cache, cErr := rediscache.New(conf.Redis)
		if cErr != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", cErr), cErr)
		}
		defer func() { _ = cache.Close() }()
		if cErr = cache.Ping(context.Background()); cErr != nil {
			logger.Warn("redis unreachable, reports will be computed on every request", cErr)
		}
		reportOpts = append(reportOpts, report.WithCache(cache))
	}

	reportSvc := report.NewService(store, logger, reportOpts...)
	schoolSvc := school.NewService(store, logger, clock, school.WithInvalidator(reportSvc))
	billingSvc := billing.NewService(store, logger, clock)
	financeSvc := finance.NewService(store, logger, clock)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator, school.Validations...)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			SchoolSvc:  schoolSvc,
			ReportSvc:  reportSvc,
			BillingSvc: billingSvc,
			FinanceSvc: financeSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
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

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
