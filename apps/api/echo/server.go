package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/teamfeed/teamfeed/core"
	"github.com/teamfeed/teamfeed/core/account"
	"github.com/teamfeed/teamfeed/core/course"
	"github.com/teamfeed/teamfeed/core/feedback"
	"github.com/teamfeed/teamfeed/core/instructor"
	"github.com/teamfeed/teamfeed/core/search"
	"github.com/teamfeed/teamfeed/core/student"
)

type (
	Options struct {
		Conf      *core.Config
		Logger    core.Logger
		Validator *core.Validator
		Metrics   *Metrics // optional

		// SignalShutdown is called when a handler hits a shutdown error.
		SignalShutdown func()

		AccountSvc    *account.Service
		CourseSvc     *course.Service
		StudentSvc    *student.Service
		InstructorSvc *instructor.Service
		FeedbackSvc   *feedback.Service
		SearchSvc     *search.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		auth *tokenAuth
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		auth: newTokenAuth(opts.Conf, opts.AccountSvc),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf
	signalShutdown := s.opts.SignalShutdown
	if signalShutdown == nil {
		signalShutdown = func() {}
	}

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if s.opts.Metrics != nil {
		s.app.Use(metricsMiddleware(s.opts.Metrics))
	}
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Validator.Translator(), signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()
	limiter := rateLimitMiddleware(newIPRateLimiter(20, 10))

	s.registerAccountAPI(v1, jwt, limiter)
	s.registerCourseAPI(v1, jwt, limiter)
	s.registerSessionAPI(v1, jwt)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Teamfeed API!")
}
