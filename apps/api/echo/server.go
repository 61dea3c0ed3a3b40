package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

type (
	// HealthCheck reports whether a backing service is reachable.
	HealthCheck func(ctx context.Context) error

	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		AccessLog    *zerolog.Logger // nil disables request logs
		Validate     *validator.Validate
		Translator   ut.Translator
		RateLimiter  core.RateLimiter
		HealthChecks map[string]HealthCheck

		UserSvc       *user.Service
		AdmissionSvc  *admission.Service
		AttendanceSvc *attendance.Service
		StudentSvc    *student.Service
		TeacherSvc    *teacher.Service
	}

	Server struct {
		deps     *ServerDeps
		app      *echo.Echo
		jwt      *JWTIssuer
		metrics  *metrics
		address  string
		shutdown chan os.Signal
		errors   chan error
	}
)

func NewServer(address string, deps *ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwt:      NewJWTIssuer(deps.Conf),
		metrics:  newMetrics("academia"),
		address:  address,
		shutdown: make(chan os.Signal, 1),
		errors:   make(chan error, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.HidePort = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.Recover())
	}
	if s.deps.AccessLog != nil {
		s.app.Use(requestLogger(*s.deps.AccessLog))
	}
	s.app.Use(s.metrics.middleware())
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     conf.Server.AllowedOrigins,
		AllowCredentials: true,
	}))

	s.app.GET("/", home)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	v1 := s.app.Group("/api/v1")
	auth := authMiddleware(s.jwt, s.deps.UserSvc)
	limit := rateLimitMiddleware(s.deps.RateLimiter, s.deps.Logger)

	registerAuthAPI(v1, auth, limit, s.jwt, s.deps)
	registerAdmissionAPI(v1, auth, limit, s.deps)
	registerAttendanceAPI(v1, auth, s.deps)
	registerTeacherAPI(v1, auth, s.deps)
	registerStudentAPI(v1, auth, s.deps)
}

func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			evt := logger.Info()
			if v.Error != nil {
				evt = logger.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}

// Start listens until the server is shut down; listener failures are sent to Errors.
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.address)
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Academia API!")
}

func (s *Server) healthz(ctx echo.Context) error {
	status := make(map[string]string, len(s.deps.HealthChecks))
	healthy := true
	for name, check := range s.deps.HealthChecks {
		if err := check(ctx.Request().Context()); err != nil {
			healthy = false
			status[name] = err.Error()
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, Response{Success: healthy, Data: status})
}
