package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Logger writes one line per bridge request. Liveness probes are logged at
// debug so a polling UI does not flood the log.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			rid, _ := c.Get("request_id").(string)

			err := next(c)
			if err != nil {
				// Let echo's error handler set the final status before logging.
				c.Error(err)
			}

			evt := logger.Info()
			switch {
			case err != nil || c.Response().Status >= 500:
				evt = logger.Error().Err(err)
			case c.Response().Status >= 400:
				evt = logger.Warn()
			case req.URL.Path == "/healthz" || c.Path() == "/bridge/api/health":
				evt = logger.Debug()
			}

			evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")

			return nil
		}
	}
}
