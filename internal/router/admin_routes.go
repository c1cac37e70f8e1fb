package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/handler"
	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/model"
)

// RegisterAdmin registers spot management under /v1/admin.  All routes
// require the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/spots", h.AddSpot)
	g.PATCH("/spots/:id/status", h.SetStatus)
}
