package middleware

import (
	"github.com/labstack/echo/v4"
)

const (
	corsAllowMethods = "GET,OPTIONS"
	corsAllowHeaders = "Content-Type"
)

// CORS returns an Echo middleware that stamps the cross-origin headers on every
// response. Headers are set before the handler runs so that early returns,
// errors and recovered panics carry them too. Preflight answers are left to the
// route handler.
func CORS(allowOrigin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, allowOrigin)
			h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
			if allowOrigin != "*" {
				h.Add(echo.HeaderVary, echo.HeaderOrigin)
			}
			return next(c)
		}
	}
}
