package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/KurtDue/iono-pi-access-control/internal/api/handler"
	"github.com/KurtDue/iono-pi-access-control/internal/api/middleware"
	"github.com/KurtDue/iono-pi-access-control/internal/core/domain"
	"github.com/KurtDue/iono-pi-access-control/internal/core/ports"
)

// Deps carries the constructed services the router wires into handlers.
// The hardware-facing pieces (door controller, scanner) are built and
// started by main; the router only reads from them.
type Deps struct {
	Engine ports.AccessEngine
	Auth   ports.AuthService
	Door   ports.DoorController
	Audit  ports.AuditStore

	JWTSecret string
	TokenTTL  time.Duration

	ScannerEnabled   bool
	ScannerConnected func() bool
	DeviceID         string

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("accessd"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.TokenTTL)
	accessHandler := handler.NewAccessHandler(deps.Engine)
	statusHandler := handler.NewStatusHandler(
		deps.Engine, deps.Door, deps.ScannerEnabled, deps.ScannerConnected, deps.DeviceID)
	logsHandler := handler.NewLogsHandler(deps.Audit)

	// --- Public routes ---
	e.POST("/auth/token", authHandler.Token)
	e.GET("/health", statusHandler.Health)
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Authenticated routes ---
	auth := middleware.Auth(deps.JWTSecret)
	anyOperator := middleware.RBAC(domain.RoleAdmin, domain.RoleOperator)

	e.POST("/access/open", accessHandler.Open, auth, anyOperator)
	e.POST("/access/verify", accessHandler.Verify, auth, anyOperator)
	e.GET("/status", statusHandler.Status, auth, anyOperator)

	// Audit history is admin-only; operators see the live state via /status.
	e.GET("/logs/access", logsHandler.List, auth, middleware.RBAC(domain.RoleAdmin))

	return e
}
