package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"appointments-proxy/internal/model"
	"appointments-proxy/internal/service"
)

const (
	dueDateParam       = "dueDate"
	defaultContentType = "application/json"

	msgMethodNotAllowed = "Method not allowed"
	msgMissingDueDate   = "Missing dueDate query param"
	msgProxyFailed      = "Proxy call failed"
)

// ProxyHandler relays browser requests to the getBusinessAppointments endpoint.
type ProxyHandler struct {
	service *service.AppointmentsService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.AppointmentsService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle answers preflight requests, rejects anything but GET, and otherwise
// relays the upstream status, content type and body unchanged.
// CORS headers are set by middleware before this runs.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	switch req.Method {
	case http.MethodOptions:
		return c.NoContent(http.StatusNoContent)
	case http.MethodGet:
	default:
		return writeError(c, http.StatusMethodNotAllowed, model.ErrorResponse{Error: msgMethodNotAllowed})
	}

	dueDate := c.QueryParam(dueDateParam)
	if dueDate == "" {
		dueDate = rawQueryValue(req.URL.RawQuery, dueDateParam)
	}
	if dueDate == "" {
		return writeError(c, http.StatusBadRequest, model.ErrorResponse{Error: msgMissingDueDate})
	}

	resp, err := h.service.Fetch(req.Context(), dueDate)
	if err != nil {
		return h.mapError(c, err)
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	return c.Blob(resp.StatusCode, contentType, resp.Body)
}

// mapError reports every failed upstream call as a 500. Timeouts are told apart
// by the "upstream call timed out" prefix in details.
func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrUpstreamTimeout) {
		h.logger.Warn("upstream timeout", "err", err)
	} else {
		h.logger.Error("proxy error", "err", err)
	}
	return writeError(c, http.StatusInternalServerError, model.ErrorResponse{
		Error:   msgProxyFailed,
		Details: err.Error(),
	})
}

// writeError sends body as compact JSON without the trailing newline c.JSON adds.
func writeError(c echo.Context, status int, body model.ErrorResponse) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.JSONBlob(status, b)
}
