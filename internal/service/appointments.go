// Package service implements the getBusinessAppointments forwarding logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"appointments-proxy/internal/client"
	"appointments-proxy/internal/config"
	"appointments-proxy/internal/model"
)

// ErrUpstreamTimeout is returned when the upstream call exceeds upstream.timeout_seconds.
var ErrUpstreamTimeout = errors.New("upstream call timed out")

const (
	apiKeyHeader = "x-api-key"
	dueDateParam = "dueDate"
	userAgent    = "appointments-proxy/1.0"
	redacted     = "[REDACTED]"
)

// Upstream performs the single GET to the appointments service.
type Upstream interface {
	Get(ctx context.Context, url string, header http.Header) (*model.UpstreamResponse, error)
}

// AppointmentsService builds and sends the upstream request for one dueDate.
type AppointmentsService struct {
	upstream Upstream
	apiKey   string
	logger   *slog.Logger
	baseURL  *url.URL
}

// NewAppointmentsService creates an AppointmentsService.
func NewAppointmentsService(c *client.AppointmentsClient, cfg *config.Config, logger *slog.Logger) (*AppointmentsService, error) {
	return newAppointmentsService(c, cfg, logger)
}

func newAppointmentsService(up Upstream, cfg *config.Config, logger *slog.Logger) (*AppointmentsService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q is not absolute", cfg.Upstream.BaseURL)
	}

	return &AppointmentsService{
		upstream: up,
		apiKey:   cfg.Appointments.APIKey,
		logger:   logger.With("component", "appointments_service"),
		baseURL:  u,
	}, nil
}

// Fetch calls the upstream once for dueDate. Any upstream status is returned as a
// response; only transport failures produce an error. Errors never contain the API key.
func (s *AppointmentsService) Fetch(ctx context.Context, dueDate string) (*model.UpstreamResponse, error) {
	header := make(http.Header)
	header.Set(apiKeyHeader, s.apiKey)
	header.Set("User-Agent", userAgent)

	s.logger.Debug("fetching appointments", "due_date", dueDate)

	resp, err := s.upstream.Get(ctx, s.BuildUpstreamURL(dueDate), header)
	if err != nil {
		err = s.redactError(err)
		if client.IsTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("fetch appointments: %w", err)
	}
	return resp, nil
}

// BuildUpstreamURL appends the percent-encoded dueDate to the configured base URL.
// A query already present on the base URL is kept.
func (s *AppointmentsService) BuildUpstreamURL(dueDate string) string {
	u := *s.baseURL
	param := dueDateParam + "=" + EscapeQueryValue(dueDate)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String()
}

// componentUnescaper undoes the url.QueryEscape escapes that JavaScript's
// encodeURIComponent leaves literal, and spells a space as %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeQueryValue percent-encodes v for use as a query value, producing the
// same bytes as encodeURIComponent.
func EscapeQueryValue(v string) string {
	return componentUnescaper.Replace(url.QueryEscape(v))
}

// redactError returns err with every occurrence of the API key masked, keeping
// the chain intact for errors.Is/As.
func (s *AppointmentsService) redactError(err error) error {
	if s.apiKey == "" || !strings.Contains(err.Error(), s.apiKey) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), s.apiKey, redacted), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
