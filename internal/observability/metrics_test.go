package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/cache"
)

func TestMetricsHandlerExposesRegisteredCollectors(t *testing.T) {
	metrics := NewMetrics()
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "odyssey_test_total", Help: "test"})
	require.NoError(t, metrics.Registerer().Register(extra))
	extra.Inc()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "odyssey_test_total 1")
	require.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestCacheMetricsShareRegistry(t *testing.T) {
	metrics := NewMetrics()
	first, err := cache.NewMetrics(metrics.Registerer())
	require.NoError(t, err)
	second, err := cache.NewMetrics(metrics.Registerer())
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, second)
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/vehicles/")
	req := httptest.NewRequest(http.MethodGet, "/api/vehicles/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("/api/vehicles/", http.MethodGet, "418")))
	require.Zero(t, testutil.ToFloat64(metrics.inFlight))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	require.NotNil(t, m.Middleware(next))
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
