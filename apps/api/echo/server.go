package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core"
	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/dashboard"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

type (
	// Deps holds the services the API is built on.
	Deps struct {
		DB         core.DB // optional; pinged by /health-check
		Validate   *validator.Validate
		Translator ut.Translator
		UserSvc    user.Service
		CourseSvc  course.Service
		DashSvc    dashboard.Service
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		deps     Deps
		auth     *Authenticator
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, deps Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		deps:     deps,
		auth:     NewAuthenticator(conf),
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	if !s.conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, s.deps.Translator, s.SignalShutdown)

	s.app.GET("/", s.home)
	s.app.GET("/health-check", s.healthCheck)

	v1 := s.app.Group("/v1")
	jwt := jwtMiddleware(s.auth)

	registerUserAPI(v1, jwt, s.auth, s.deps)
	registerCourseAPI(v1, jwt, s.deps)
	registerDashboardAPI(v1, s.auth, s.deps)
}

// Start blocks until the server stops; a failure is sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown asks the app to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// Authenticator signs the tokens this server accepts.
func (s *Server) Authenticator() *Authenticator { return s.auth }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"app":          s.conf.AppName,
		"build":        s.conf.Build,
		"grade_levels": course.GradeLevels,
	})
}

func (s *Server) healthCheck(ctx echo.Context) error {
	if s.deps.DB != nil {
		var one int
		if err := s.deps.DB.QueryRowContext(ctx.Request().Context(), "SELECT 1").Scan(&one); err != nil {
			return errors.Wrap(err, "pinging database")
		}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
