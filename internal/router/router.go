// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/civicworks/facility-reservation/internal/config"
	"github.com/civicworks/facility-reservation/internal/handler"
	"github.com/civicworks/facility-reservation/internal/middleware"
	"github.com/civicworks/facility-reservation/internal/model"
)

// RegisterRoutes registers the unauthenticated infrastructure routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints. Login and refresh are
// public; logout and /v1/me require a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated facility catalogue and
// the cached availability preview.
func RegisterPublic(e *echo.Echo, f *handler.FacilityHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	e.GET("/v1/facilities", f.List)
	e.GET("/v1/facilities/:id", f.Get)
	e.GET("/v1/facilities/:id/availability", f.Availability,
		middleware.NewRedisCache(cacheCfg, rdb))
}

// RegisterResident registers the resident reservation endpoints. All
// roles may read and submit; the engine enforces per-reservation
// ownership beyond the role gate.
func RegisterResident(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleResident, model.RoleStaff, model.RoleAdmin),
		rl)
	g.POST("/reservations", h.Submit)
	g.GET("/my-reservations", h.ListMine)
	g.GET("/reservations/:id", h.Get)
	g.DELETE("/reservations/:id", h.Cancel)
	g.PATCH("/reservations/:id", h.Reschedule)
	g.GET("/my-notifications", h.Notifications)
	g.POST("/my-notifications/:id/read", h.MarkNotificationRead)
}

// RegisterStaff registers the review-queue endpoints for staff and
// admins.
func RegisterStaff(e *echo.Echo, h *handler.StaffReservationHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin),
		rl)
	g.GET("/reservations", h.List)
	g.POST("/reservations/:id/approve", h.Approve)
	g.POST("/reservations/:id/deny", h.Deny)
	g.DELETE("/reservations/:id", h.Cancel)
	g.POST("/reservations/:id/complete", h.Complete)
	g.GET("/reservations/:id/history", h.History)
}
