package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teamfeed/teamfeed/apps/api/echo"
	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/search"
	"github.com/teamfeed/teamfeed/core/student"
	"github.com/teamfeed/teamfeed/services/cache"
	"github.com/teamfeed/teamfeed/services/email"
	"github.com/teamfeed/teamfeed/services/logger"
	"github.com/teamfeed/teamfeed/storage/database"
	"github.com/teamfeed/teamfeed/storage/database/sqlx"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up logger
	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return errors.Wrap(err, "setting up zap logger")
	}
	logger := logsvc.NewRollbarLogger(zl.Named("API"), conf)
	defer logger.Sync()

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		return errors.Wrap(err, "setting up database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up stats cache
	statsCache, closeCache, err := setUpCache(conf, logger)
	if err != nil {
		return errors.Wrap(err, "setting up cache")
	}
	defer closeCache()

	// set up mail service
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridAPIKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if err = core.ParseEmailTemplates(); err != nil {
		return errors.Wrap(err, "parsing email templates")
	}
	account.LoadCommonPasswords()

	validator := core.NewValidator()

	studSvc := student.NewService(sqlxrepos.NewStudentRepository(db), mailSvc, validator, conf)
	instSvc := instructor.NewService(sqlxrepos.NewInstructorRepository(db), validator)
	fbSvc := feedback.NewService(sqlxrepos.NewFeedbackRepository(db), studSvc, instSvc, statsCache, validator)
	studSvc.OnRosterChange(fbSvc.InvalidateCourseStats)
	instSvc.OnRosterChange(fbSvc.InvalidateCourseStats)

	opts := &echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		Validator:     validator,
		AccountSvc:    account.NewService(sqlxrepos.NewAccountRepository(db), mailSvc, validator, conf),
		CourseSvc:     course.NewService(sqlxrepos.NewCourseRepository(db), validator),
		StudentSvc:    studSvc,
		InstructorSvc: instSvc,
		FeedbackSvc:   fbSvc,
		SearchSvc:     search.NewService(studSvc, instSvc),
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics of the API.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	opts.Metrics = echoapi.NewMetrics(reg)
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		logger.Info("Debug server listening on " + conf.Server.DebugAddress)
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	opts.SignalShutdown = func() {
		select {
		case shutdown <- syscall.SIGTERM:
		default:
		}
	}

	server := echoapi.NewServer(opts)
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening on " + conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		return errors.Wrap(err, "server error")

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.StatusCheck(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// setUpCache returns the Redis stats cache, or a no-op one when no Redis URL is configured.
func setUpCache(conf *core.Config, logger core.Logger) (feedback.StatsCache, func(), error) {
	if conf.Cache.RedisURL == "" {
		logger.Warn("no redis url configured: session stats will not be cached")
		return cachesvc.NewNoopStatsCache(), func() {}, nil
	}
	client, err := cachesvc.NewRedisClient(context.Background(), conf.Cache.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("closing redis client", err)
		}
	}
	return cachesvc.NewRedisStatsCache(client, conf.Cache.StatsTTL), closeFn, nil
}
