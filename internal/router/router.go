package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/field-reservation/internal/handler"
	"github.com/iliyamo/field-reservation/internal/middleware"
)

// RegisterHealth mounts the liveness probe.  Kept separate so it stays
// outside every middleware group.
func RegisterHealth(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account endpoints under /v1/auth plus the
// authenticated /v1/me profile lookup.
func RegisterAuth(e *echo.Echo, h *handler.AuthHandler, jwtSecret string) {
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)

	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.GET("/me", h.Me)
}

// RegisterPublic registers the browse and availability endpoints.  No
// authentication is required: guests can inspect branches, fields and
// free slots before deciding to sign up.
func RegisterPublic(e *echo.Echo, h *handler.AvailabilityHandler) {
	g := e.Group("/v1")

	// ---- Browse ----
	g.GET("/branches", h.ListBranches)
	g.GET("/branches/:id", h.GetBranch)
	g.GET("/branches/:id/fields", h.ListBranchFields)

	// ---- Availability ----
	g.GET("/fields/:id/slots", h.GetFieldSlots)    // free slots for one field and date
	g.GET("/fields/:id/check", h.CheckWindow)      // yes/no for an explicit window, never cached
	g.GET("/availability/overview", h.GetOverview) // per-field picture for a whole date
}

// RegisterReservations registers booking endpoints under /v1.  All
// routes require a valid JWT; ownership is enforced in the handlers.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.POST("/reservations", h.Create)
	g.GET("/reservations/:id", h.Get)
	g.DELETE("/reservations/:id", h.Cancel)
	g.POST("/reservations/:id/payment", h.ConfirmPayment)
	g.GET("/my-reservations", h.ListMine)
}
