package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"paper-trail/internal/handler/http/pathutil"
	"paper-trail/internal/handler/http/responsewriter"
	"paper-trail/internal/handler/http/route"
	"paper-trail/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsMiddleware records request count, latency and response size per
// route. The label is the path of the matched ServeMux pattern when the mux
// is wrapped with route.Mux, and the normalized URL path otherwise, so
// politician IDs never become label values.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		r, pattern := route.Track(r)
		rw := responsewriter.Wrap(w)
		start := time.Now()
		next.ServeHTTP(rw, r)

		metrics.RecordHTTPRequest(
			r.Method,
			routeLabel(pattern(), r.URL.Path),
			strconv.Itoa(rw.StatusCode()),
			time.Since(start),
			rw.BytesWritten(),
		)
	})
}

// routeLabel drops the method from a "GET /politicians/{id}" pattern.
func routeLabel(pattern, path string) string {
	if pattern == "" {
		return pathutil.NormalizePath(path)
	}
	if _, p, ok := strings.Cut(pattern, " "); ok {
		return p
	}
	return pattern
}

// MetricsHandler serves the Prometheus exposition format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
