package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/events"
	"github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/services/ratelimit"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/database/sqlx"
)

type repositories struct {
	tx         core.Transactor
	users      user.Repository
	admissions admission.Repository
	students   student.Repository
	teachers   teacher.Repository
	attendance attendance.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	zl := logsvc.NewZerolog(conf)
	logger := logsvc.NewRollbarLogger(zl, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	accessLog := zl.With().Str("component", "http").Logger()

	ctx := context.Background()
	healthChecks := make(map[string]echoapi.HealthCheck)

	// set up storage
	repos, closeDB, err := setUpStorage(conf, healthChecks)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer closeDB()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var publisher core.EventPublisher = eventsvc.NewLogPublisher(logger)
	if conf.RabbitMQ.URL != "" {
		rmq, err := eventsvc.NewRabbitMQPublisher(conf.RabbitMQ)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to rabbitmq: %v", err), err)
		}
		defer func() {
			if err := rmq.Close(); err != nil {
				logger.Error("closing rabbitmq publisher", err)
			}
		}()
		publisher = rmq
	}

	limiter, err := setUpRateLimiter(ctx, conf, healthChecks)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up rate limiter: %v", err), err)
	}

	usrSvc := user.NewService(repos.users, mailSvc, conf)
	studentSvc := student.NewService(repos.students, usrSvc, repos.tx)
	teacherSvc := teacher.NewService(repos.teachers, usrSvc, repos.tx)
	admissionSvc := admission.NewService(repos.admissions, usrSvc, studentSvc, repos.tx, publisher, logger)
	attendanceSvc := attendance.NewService(repos.attendance, studentSvc, teacherSvc, repos.tx, publisher, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	student.InitValidators(validate, translator)
	teacher.InitValidators(validate, translator)
	admission.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, !conf.Debug)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(conf.Server.Address, &echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		AccessLog:     &accessLog,
		Validate:      validate,
		Translator:    translator,
		RateLimiter:   limiter,
		HealthChecks:  healthChecks,
		UserSvc:       usrSvc,
		AdmissionSvc:  admissionSvc,
		AttendanceSvc: attendanceSvc,
		StudentSvc:    studentSvc,
		TeacherSvc:    teacherSvc,
	})

	go server.Start()
	logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
				os.Exit(1)
			}
		}
	}
}

// setUpStorage opens the configured store; the returned func releases it.
func setUpStorage(conf *core.Config, checks map[string]echoapi.HealthCheck) (*repositories, func(), error) {
	if conf.Storage == "memory" {
		db := inmemdb.Open()
		return &repositories{
			tx:         db,
			users:      inmemdb.NewUserRepository(db),
			admissions: inmemdb.NewAdmissionRepository(db),
			students:   inmemdb.NewStudentRepository(db),
			teachers:   inmemdb.NewTeacherRepository(db),
			attendance: inmemdb.NewAttendanceRepository(db),
		}, func() {}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return nil, nil, err
	}
	checks["database"] = db.PingContext
	return &repositories{
		tx:         database.NewTransactor(db),
		users:      sqlxrepos.NewUserRepository(db),
		admissions: sqlxrepos.NewAdmissionRepository(db),
		students:   sqlxrepos.NewStudentRepository(db),
		teachers:   sqlxrepos.NewTeacherRepository(db),
		attendance: sqlxrepos.NewAttendanceRepository(db),
	}, func() { _ = db.Close() }, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setUpRateLimiter(ctx context.Context, conf *core.Config, checks map[string]echoapi.HealthCheck) (core.RateLimiter, error) {
	switch conf.RateLimit.Backend {
	case "redis":
		client, err := ratelimit.NewRedisClient(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return ratelimit.NewRedisLimiter(client, conf.RateLimit.PerMinute), nil
	case "", "memory":
		return ratelimit.NewTokenBucket(conf.RateLimit.Burst, conf.RateLimit.PerMinute), nil
	default:
		return nil, errors.Errorf("unknown rate limit backend %q", conf.RateLimit.Backend)
	}
}
