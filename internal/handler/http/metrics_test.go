package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paper-trail/internal/handler/http/route"
	"paper-trail/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddleware_NormalizesPath(t *testing.T) {
	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/politicians/{id}/votes", "200")
	before := testutil.ToFloat64(counter)

	h := MetricsMiddleware(okHandler())
	for _, path := range []string{"/politicians/1/votes", "/politicians/22/votes", "/politicians/333/votes"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, before+3, testutil.ToFloat64(counter))
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/politicians/{id}/donations", "200")
	before := testutil.ToFloat64(counter)

	mux := http.NewServeMux()
	mux.Handle("GET /politicians/{id}/donations", okHandler())
	h := MetricsMiddleware(Timeout(time.Second)(route.Mux(mux)))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/politicians/5/donations", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/runs/latest", routeLabel("GET /runs/latest", "/runs/latest"))
	assert.Equal(t, "/health", routeLabel("/health", "/health"))
	assert.Equal(t, "other", routeLabel("", "/wp-login.php"))
}

func TestMetricsMiddleware_StatusLabel(t *testing.T) {
	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/politicians/{id}", "404")
	before := testutil.ToFloat64(counter)

	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/politicians/404", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMetricsMiddleware_ActiveConnectionsReturnToZero(t *testing.T) {
	before := testutil.ToFloat64(metrics.ActiveConnections)

	var during float64
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		during = testutil.ToFloat64(metrics.ActiveConnections)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/runs/latest", nil))

	assert.Equal(t, before+1, during)
	assert.Equal(t, before, testutil.ToFloat64(metrics.ActiveConnections))
}

func TestMetricsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
}
