package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/staybook/booking-api/internal/api/handler"
	"github.com/staybook/booking-api/internal/api/middleware"
	"github.com/staybook/booking-api/internal/core/domain"
	"github.com/staybook/booking-api/internal/core/ports"
	"github.com/staybook/booking-api/internal/infrastructure/http/handlers"
)

// Deps holds everything the router wires into handlers.
type Deps struct {
	Log            zerolog.Logger
	AllowedOrigins []string

	Auth        ports.AuthService
	Housing     ports.HousingService
	Tokens      ports.TokenValidator
	Revocations ports.RevocationStore
	Readiness   *handlers.HealthDependenciesHandler
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: d.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomiddleware.BodyLimit("1M"))

	requireAuth := middleware.Auth(d.Tokens, d.Revocations)
	adminOnly := middleware.RBAC(domain.RoleAdmin)

	// --- Account routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	account := e.Group("/api/account")
	account.POST("/register", authHandler.Register)
	account.POST("/login", authHandler.Login)
	account.POST("/generateRefreshToken", authHandler.Refresh)
	account.GET("/logout", authHandler.Logout, requireAuth)

	// --- Housing routes ---
	housingHandler := handler.NewHousingHandler(d.Housing)
	housing := e.Group("/api/housing")
	housing.GET("", housingHandler.List)
	housing.GET("/:id", housingHandler.Get)
	housing.POST("", housingHandler.Create, requireAuth, adminOnly)
	housing.PUT("/:id", housingHandler.Update, requireAuth, adminOnly)
	housing.DELETE("/:id", housingHandler.Delete, requireAuth, adminOnly)
	housing.PUT("/:id/book", housingHandler.Book, requireAuth)
	housing.PUT("/:id/unBook", housingHandler.UnBook, requireAuth)
	housing.GET("/:id/history", housingHandler.History, requireAuth, adminOnly)

	// --- Health probes (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness) // liveness  – is the process alive?
	if d.Readiness != nil {
		e.GET("/health/ready", d.Readiness.Readiness) // readiness – are dependencies up?
	}

	// --- Ops ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
