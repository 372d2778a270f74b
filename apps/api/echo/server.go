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
	"github.com/labstack/gommon/log"

	"github.com/chatgpa/backend/core"
	"github.com/chatgpa/backend/core/folder"
	"github.com/chatgpa/backend/core/note"
	"github.com/chatgpa/backend/core/quiz"
	"github.com/chatgpa/backend/core/ratelimit"
	"github.com/chatgpa/backend/core/token"
	aisvc "github.com/chatgpa/backend/services/ai"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		NoteSvc    *note.Service
		FolderSvc  *folder.Service
		QuizSvc    *quiz.Service
		TokenSvc   *token.Service
		AI         *aisvc.Client
		Limiter    *ratelimit.Limiter
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		metrics  *routerMetrics
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		metrics:  newRouterMetrics(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(conf, s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)
	s.app.GET("/api/health", s.health)

	api := s.app.Group("/api")
	api.POST("/chat", s.chat, rateLimitMiddleware(s.deps.Limiter), s.metrics.middleware("chat"))

	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	v1 := api.Group("/v1", jwt)

	registerWorkspaceAPI(v1, s.metrics, workspaceApi{
		noteSvc:   s.deps.NoteSvc,
		folderSvc: s.deps.FolderSvc,
		validate:  s.deps.Validate,
	})
	registerQuizAPI(v1, s.metrics, s.deps.Limiter, quizApi{
		quizSvc:  s.deps.QuizSvc,
		noteSvc:  s.deps.NoteSvc,
		validate: s.deps.Validate,
	})
	registerAttemptAPI(v1, s.metrics, attemptApi{
		quizSvc:  s.deps.QuizSvc,
		validate: s.deps.Validate,
	})
	registerUtilAPI(v1, s.metrics, utilApi{
		tokenSvc: s.deps.TokenSvc,
		logger:   s.deps.Logger,
		conf:     conf,
		validate: s.deps.Validate,
		health:   s.health,
	})

	s.legacyRedirects(api)
}

// legacyRedirects keeps the old single-purpose paths alive; they permanently
// redirect into the action gateway.
func (s *server) legacyRedirects(api *echo.Group) {
	redirect := func(target string) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			return ctx.Redirect(http.StatusPermanentRedirect, target)
		}
	}

	api.POST("/attempts/start", redirect("/api/v1/attempts?action=start"))
	api.POST("/attempts/autosave", redirect("/api/v1/attempts?action=autosave"))
	api.POST("/attempts/submit", redirect("/api/v1/attempts?action=submit"))
	api.GET("/folders", redirect("/api/v1/workspace?action=flat"))
	api.POST("/folders", redirect("/api/v1/workspace?action=create"))
	api.GET("/notes", redirect("/api/v1/workspace?action=notes"))
	api.POST("/notes", redirect("/api/v1/workspace?action=create_note"))
	api.POST("/quizzes/generate", redirect("/api/v1/quizzes?action=generate"))
}

func (s *server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.Server.Address())
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errs
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to ChatGPA API!")
}
