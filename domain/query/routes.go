package query

import (
	"github.com/labstack/echo/v4"

	"github.com/autumndb/autumndb/pkg/auth"
)

// RegisterRoutes registers the query endpoint.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/query")
	g.Use(authMiddleware.RequireAuth())
	g.POST("", h.Query)
}
