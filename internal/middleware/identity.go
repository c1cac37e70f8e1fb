package middleware

import "github.com/labstack/echo/v4"

// UserID returns the authenticated user id stored by JWTAuth, or "" when
// the request is anonymous.
func UserID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok {
		return s
	}
	return ""
}

// Role returns the role claim stored by JWTAuth.
func Role(c echo.Context) string {
	if s, ok := c.Get("role").(string); ok {
		return s
	}
	return ""
}

// rateIdentity keys anonymous callers as "anon".
func rateIdentity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
