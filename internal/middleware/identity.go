package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUserID returns the authenticated user's id from context.
// JWTAuth stores the raw "sub" claim, which arrives as a float64 from
// the JSON decoder.
func CurrentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// CurrentRole returns the authenticated user's role claim.
func CurrentRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

// identityKey returns a stable per-user key for rate limiting, falling
// back to "guest" on public routes.
func identityKey(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
