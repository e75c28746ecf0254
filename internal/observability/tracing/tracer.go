package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies paper-trail spans in the exporter.
const instrumentationName = "paper-trail"

// GetTracer returns the tracer of the globally registered provider.
// It is looked up on every call so that a provider installed after
// package init (or swapped in tests) is picked up.
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts an internal span named name with the given attributes.
//
//	ctx, span := tracing.StartSpan(ctx, "stage.votes", attribute.String("run_id", id))
//	defer tracing.End(span, &err)
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// End finishes span, marking it failed when *errp holds an error.
// errp may be nil.
func End(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		span.RecordError(*errp)
		span.SetStatus(codes.Error, (*errp).Error())
	}
	span.End()
}
