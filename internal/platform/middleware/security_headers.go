package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets response headers for a loopback JSON bridge that
// carries patient data. HSTS is omitted because the bridge is plain HTTP on
// 127.0.0.1.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cross-Origin-Resource-Policy", "same-origin")

			// Responses may contain patient identifiers.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
