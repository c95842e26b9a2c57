// Package router registers the HTTP routes of the booking API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/config"
	"github.com/iliyamo/local-services-booking/internal/handler"
	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/payment"
)

// Options carries what the route groups need besides their handlers.
type Options struct {
	JWTSecret      string
	InternalSecret string
	RateLimit      config.RateLimitConfig
	Redis          *redis.Client // nil disables rate limiting
	Logger         logrus.FieldLogger
}

// RegisterRoutes registers probes and the Prometheus scrape endpoint. None
// of them require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterBookings registers the status change endpoint and booking reads.
// Every role may call them; the booking service decides per booking what
// the caller may do.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, o Options) {
	g := e.Group(
		"/bookings",
		middleware.JWTAuth(o.JWTSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RoleBusiness, middleware.RoleAdmin),
		middleware.RateLimit(o.RateLimit, o.Redis, o.Logger),
	)
	g.PATCH("", h.UpdateStatus)
	g.GET("/:id", h.Get)
}

// RegisterInternal registers service-to-service endpoints guarded by the
// internal secret.
func RegisterInternal(e *echo.Echo, h *handler.RefundHandler, o Options) {
	e.POST(payment.RefundPath, h.Create, middleware.InternalSecret(o.InternalSecret))
}

// RegisterInbox registers the caller's notifications and conversations
// under /v1.
func RegisterInbox(e *echo.Echo, h *handler.InboxHandler, o Options) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(o.JWTSecret),
		middleware.RequireRole(middleware.RoleCustomer, middleware.RoleBusiness, middleware.RoleAdmin),
	)
	g.GET("/notifications", h.ListNotifications)
	g.PATCH("/notifications/:id/read", h.MarkRead)
	g.GET("/conversations/:id/messages", h.ListMessages)
}
