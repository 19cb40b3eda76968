package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/issuetracker/issues-api/docs"
	"github.com/issuetracker/issues-api/internal/api/handler"
	"github.com/issuetracker/issues-api/internal/api/middleware"
	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/pkg/validation"
)

// Deps are the collaborators the router hands to handlers and middleware.
// Everything is built once at startup and injected here.
type Deps struct {
	AuthService  ports.AuthService
	IssueService ports.IssueService
	Sessions     ports.SessionValidator
	Renderer     handler.DescriptionRenderer
	// Limiter throttles the credential routes. Nil disables rate limiting.
	Limiter ports.RateLimiter
	// Pingers are checked by the readiness probe, keyed by display name.
	Pingers map[string]handler.Pinger
	Logger  zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	e.Validator = validation.New()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Metrics())
	e.Use(middleware.RequestLogger(deps.Logger))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	issueHandler := handler.NewIssueHandler(deps.IssueService, deps.Renderer)
	healthHandler := handler.NewHealthHandler(deps.Pingers)

	authMiddleware := middleware.Auth(deps.Sessions)
	rateLimit := middleware.RateLimit(deps.Limiter, deps.Logger)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, rateLimit)
	auth.POST("/login", authHandler.Login, rateLimit)
	auth.GET("/session", authHandler.Session, authMiddleware)

	// --- Issue routes (authenticated, owner-scoped) ---
	issues := e.Group("/issues", authMiddleware)
	issues.POST("", issueHandler.Create)
	issues.GET("", issueHandler.List)
	issues.GET("/:id", issueHandler.Get)
	issues.PATCH("/:id", issueHandler.Update)
	issues.DELETE("/:id", issueHandler.Delete)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
