package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"appointments-proxy/internal/client"
	"appointments-proxy/internal/config"
	"appointments-proxy/internal/metrics"
	"appointments-proxy/internal/middleware"
	"appointments-proxy/internal/service"
)

const testAPIKey = "super-secret-key"

// fakeUpstream is a mocked getBusinessAppointments endpoint that records what it received.
type fakeUpstream struct {
	*httptest.Server
	calls    atomic.Int32
	apiKey   atomic.Value
	rawQuery atomic.Value
}

func newFakeUpstream(t *testing.T, h http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.apiKey.Store(r.Header.Get("x-api-key"))
		f.rawQuery.Store(r.URL.RawQuery)
		h(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Appointments: config.AppointmentsConfig{APIKey: testAPIKey},
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
			MaxBodyBytes:    1 << 20,
		},
		CORS:    config.CORSConfig{AllowOrigin: "*"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// newTestEcho builds the same middleware chain as the binary around RegisterRoutes.
func newTestEcho(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	svc, err := service.NewAppointmentsService(client.NewAppointmentsClient(cfg, logger, m), cfg, logger)
	if err != nil {
		t.Fatalf("NewAppointmentsService: %v", err)
	}

	e := echo.New()
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.CORS(cfg.CORS.AllowOrigin))
	e.Use(middleware.MetricsMiddleware(m))
	RegisterRoutes(e, cfg, NewProxyHandler(svc, logger), NewHealthHandler(cfg, "test"), m)
	return e
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func assertCORSHeaders(t *testing.T, rec *httptest.ResponseRecorder, origin string) {
	t.Helper()
	h := rec.Result().Header
	if got := h.Get("Access-Control-Allow-Origin"); got != origin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, origin)
	}
	if got := h.Get("Access-Control-Allow-Methods"); got != "GET,OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q, want %q", got, "GET,OPTIONS")
	}
	if got := h.Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("Access-Control-Allow-Headers = %q, want %q", got, "Content-Type")
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %q: %v", rec.Body.String(), err)
	}
	return body
}
