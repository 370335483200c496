package handler

import (
	"net/http"
	"strings"
	"testing"
)

func TestRegisterRoutes(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	e := newTestEcho(t, testConfig(up.URL))

	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
	}{
		{"healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"status", http.MethodGet, "/proxy/status", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"proxy", http.MethodGet, "/?dueDate=2024-05-01", http.StatusOK},
		{"preflight", http.MethodOptions, "/", http.StatusNoContent},
		{"unknown path", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, tt.method, tt.target)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.wantStatus)
			}
			assertCORSHeaders(t, rec, "*")
		})
	}
}

func TestRegisterRoutes_MetricsExposition(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	e := newTestEcho(t, testConfig(up.URL))

	serve(e, http.MethodGet, "/?dueDate=2024-05-01")
	rec := serve(e, http.MethodGet, "/metrics")

	body := rec.Body.String()
	for _, want := range []string{
		"appointments_proxy_http_requests_total",
		"appointments_proxy_upstream_responses_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
	if strings.Contains(body, "2024-05-01") {
		t.Error("metrics output contains request query data")
	}
}

func TestRegisterRoutes_MetricsDisabled(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	cfg := testConfig(up.URL)
	cfg.Metrics.Enabled = false
	e := newTestEcho(t, cfg)

	rec := serve(e, http.MethodGet, "/metrics")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRegisterRoutes_CustomMetricsPath(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, _ *http.Request) {})
	cfg := testConfig(up.URL)
	cfg.Metrics.Path = "/internal/metrics"
	e := newTestEcho(t, cfg)

	if rec := serve(e, http.MethodGet, "/internal/metrics"); rec.Code != http.StatusOK {
		t.Errorf("GET /internal/metrics = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := serve(e, http.MethodGet, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
