package streams

import (
	"github.com/labstack/echo/v4"

	"github.com/autumndb/autumndb/pkg/auth"
)

// RegisterRoutes registers the stream subscription endpoint.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/stream")
	g.Use(authMiddleware.RequireAuth())
	g.POST("", h.Subscribe)
}
