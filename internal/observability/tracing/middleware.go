package tracing

import (
	"net/http"

	"paper-trail/internal/handler/http/responsewriter"
	"paper-trail/internal/handler/http/route"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader echoes the trace ID so clients can quote it in reports.
const TraceIDHeader = "X-Trace-Id"

// Middleware starts a server span per request, continuing a W3C
// traceparent when the caller sent one. When the mux is wrapped with
// route.Mux the span is renamed to the matched pattern, e.g.
// "GET /politicians/{id}"; otherwise it keeps "METHOD /path". A 5xx
// response fails the span.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := GetTracer().Start(parent, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		w.Header().Set(TraceIDHeader, span.SpanContext().TraceID().String())

		rw := responsewriter.Wrap(w)
		req, pattern := route.Track(r.WithContext(ctx))
		next.ServeHTTP(rw, req)

		status := rw.StatusCode()
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
			attribute.Int("http.status_code", status),
		)
		if p := pattern(); p != "" {
			span.SetName(p)
			span.SetAttributes(attribute.String("http.route", p))
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	})
}
