package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestID assigns each request a unique identifier, honoring an inbound
// X-Request-ID header when present.
// RequestIDFromContext returns the id assigned by RequestID, or "" when
// the middleware is not installed.
func RequestIDFromContext(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}

func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set("request_id", rid)
			c.Response().Header().Set("X-Request-ID", rid)
			return next(c)
		}
	}
}
