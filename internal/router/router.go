package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/handler"
	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the session endpoints.  Register, login and
// refresh live under /v1/auth without a token; logout accepts an optional
// access token so that a caller without a refresh token can revoke all of
// its sessions.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout, optionalJWT(jwtSecret))

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin, model.RoleUser))
	auth.GET("/me", a.Me)
}

// optionalJWT authenticates the request when it carries a token and lets
// anonymous requests through untouched.
func optionalJWT(secret string) echo.MiddlewareFunc {
	authn := middleware.JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withToken := authn(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withToken(c)
		}
	}
}

// RegisterPublic registers the read-only spot endpoints.  The legend is
// static and wrapped with the response cache.
func RegisterPublic(e *echo.Echo, s *handler.SpotHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/spots", s.List)
	e.GET("/v1/spots/stats", s.Stats)
	e.GET("/v1/spots/legend", s.Legend, cache)
	e.GET("/v1/spots/:id", s.Get)
}

// RegisterBlobs serves the local blob store.  Only mounted when blobs are
// kept on the local filesystem.
func RegisterBlobs(e *echo.Echo, b *handler.BlobHandler) {
	e.GET("/v1/blobs/*", b.Serve)
}
