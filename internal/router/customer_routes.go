package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/handler"
	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/model"
)

// RegisterCustomer registers the endpoints of signed-in users under /v1:
// reservations, booking history, profile and the live streams.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, p *handler.ProfileHandler, s *handler.StreamHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleUser),
	)
	g.POST("/spots/:id/reserve", b.Reserve)
	g.GET("/bookings", b.List)
	g.GET("/bookings/recent", b.Recent)

	g.GET("/profile", p.Get)
	g.PUT("/profile", p.Update)
	g.POST("/profile/image", p.UploadImage)
	g.GET("/profile/image", p.ImageURL)

	// Browsers pass the token as ?access_token= on WebSocket upgrades.
	ws := e.Group(
		"/v1/ws",
		middleware.StreamAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleUser),
	)
	ws.GET("/spots", s.SpotStream)
	ws.GET("/bookings", s.BookingStream)
}
