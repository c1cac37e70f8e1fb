package middleware // reusable HTTP middleware for the echo router

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sup-parking/internal/utils"
)

// JWTAuth returns an Echo middleware that validates the access token of a
// "Bearer" Authorization header and injects its subject and role into the
// request context, where handlers read them via `c.Get("user_id")` and
// `c.Get("role")`.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return jwtAuth(secret, headerToken)
}

// StreamAuth is JWTAuth for WebSocket upgrades.  Browsers cannot set
// headers on an upgrade, so the token may also come as an `access_token`
// query parameter.  Only mount it on stream routes.
func StreamAuth(secret string) echo.MiddlewareFunc {
	return jwtAuth(secret, func(c echo.Context) string {
		if raw := headerToken(c); raw != "" {
			return raw
		}
		return c.QueryParam("access_token")
	})
}

// Identify stores the identity of a valid bearer token and lets every
// request through, authenticated or not.  It runs ahead of the rate
// limiter so buckets can be keyed per user.
func Identify(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := headerToken(c); raw != "" {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set("user_id", claims.UserID)
					c.Set("role", claims.Role)
				}
			}
			return next(c)
		}
	}
}

func jwtAuth(secret string, token func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := token(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set("user_id", claims.UserID)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

func headerToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
