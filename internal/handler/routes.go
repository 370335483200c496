package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"appointments-proxy/internal/config"
	"appointments-proxy/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// The proxy takes every method on "/" so it can answer preflight and 405 itself.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, proxy *ProxyHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(m.Handler()))
	}

	e.Any("/", proxy.Handle)
	e.HTTPErrorHandler = proxyMethodErrors(e.HTTPErrorHandler, proxy)
}

// proxyMethodErrors hands methods that Any does not register (PURGE, MKCOL,
// custom tokens) on "/" back to the proxy handler, so they get its 405 body
// instead of the router's.
func proxyMethodErrors(next echo.HTTPErrorHandler, proxy *ProxyHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if errors.Is(err, echo.ErrMethodNotAllowed) && c.Request().URL.Path == "/" && !c.Response().Committed {
			c.Response().Header().Del(echo.HeaderAllow)
			if err = proxy.Handle(c); err == nil {
				return
			}
		}
		next(err, c)
	}
}
