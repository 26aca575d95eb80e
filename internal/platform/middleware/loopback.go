package middleware

import (
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// LoopbackOnly rejects requests that did not originate on this machine or
// that name a non-loopback Host, which blocks DNS-rebinding pages from
// reaching the bridge through a browser.
func LoopbackOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !loopbackHost(req.RemoteAddr) {
				return echo.NewHTTPError(http.StatusForbidden, "bridge accepts loopback connections only")
			}
			if !loopbackHost(req.Host) {
				return echo.NewHTTPError(http.StatusForbidden, "unexpected host header")
			}
			return next(c)
		}
	}
}

func loopbackHost(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
