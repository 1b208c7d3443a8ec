package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/straye-as/renovation-api/internal/config"
	"github.com/straye-as/renovation-api/internal/http/middleware"
	"github.com/straye-as/renovation-api/internal/http/router"
	"github.com/straye-as/renovation-api/internal/metrics"
	"github.com/straye-as/renovation-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T, cfg *config.Config, metricsHandler http.Handler) http.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	rt := router.NewRouter(cfg, logger, db, middleware.NewRateLimiter(&cfg.RateLimit, logger), metricsHandler,
		nil, nil, nil, nil, nil)
	return rt.Setup()
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthEndpoints(t *testing.T) {
	h := setupRouter(t, &config.Config{}, nil)

	w := get(h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = get(h, "/health/db")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "sqlite", body["driver"])

	assert.Equal(t, http.StatusNotFound, get(h, "/metrics").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.ObserveStageChange("won")

	h := setupRouter(t, &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/internal/metrics"}}, m.Handler())

	w := get(h, "/internal/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `stage_changes_total{stage="won"} 1`))
}

func TestSwaggerToggle(t *testing.T) {
	h := setupRouter(t, &config.Config{}, nil)
	assert.Equal(t, http.StatusNotFound, get(h, "/swagger/doc.json").Code)

	h = setupRouter(t, &config.Config{Server: config.ServerConfig{EnableSwagger: true}}, nil)
	w := get(h, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Straye Renovation API")
}
