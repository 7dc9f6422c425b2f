package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/endlessworld/campusnav/docs"
	"github.com/endlessworld/campusnav/internal/api/handler"
	"github.com/endlessworld/campusnav/internal/api/middleware"
	"github.com/endlessworld/campusnav/internal/core/domain"
	"github.com/endlessworld/campusnav/internal/core/ports"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	JWTSecret  string
	Auth       ports.AuthService
	Navigation ports.NavigationService
	Locations  ports.LocationService
	// Notifications backs the polled inbox under /v1/notifications.
	Notifications ports.NotificationService
	// WebSocket serves GET /v1/navigation/ws. Clients authenticate with
	// their first message, so the route sits outside the Auth middleware.
	WebSocket    http.Handler
	HealthChecks map[string]handler.Check
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("campusnav"))

	// --- Operational endpoints (no auth required) ---
	health := handler.NewHealthHandler(d.HealthChecks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	v1 := e.Group("/v1")
	if d.WebSocket != nil {
		v1.GET("/navigation/ws", echo.WrapHandler(d.WebSocket))
	}

	secured := v1.Group("", middleware.Auth(d.JWTSecret))

	nav := handler.NewNavigationHandler(d.Navigation)
	secured.POST("/navigation/fixes", nav.SubmitFix)
	secured.POST("/navigation/position-errors", nav.ReportPositionError)
	secured.PUT("/navigation/route", nav.SetRoute)
	secured.DELETE("/navigation/route", nav.ClearRoute)
	secured.POST("/navigation/watch", nav.StartWatch)
	secured.POST("/navigation/directions", nav.Directions)
	secured.POST("/navigation/recalculate", nav.Recalculate)
	secured.GET("/navigation/session", nav.Session)

	loc := handler.NewLocationHandler(d.Locations)
	secured.GET("/locations", loc.Search)
	secured.GET("/locations/:id", loc.Get)
	secured.PUT("/locations/:id", loc.Put, middleware.RBAC(domain.RoleAdmin))

	notes := handler.NewNotificationHandler(d.Notifications)
	secured.GET("/notifications", notes.List)
	secured.GET("/notifications/unread_count", notes.UnreadCount)
	secured.POST("/notifications/:id/read", notes.MarkRead)

	return e
}

// requestLogger logs one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
