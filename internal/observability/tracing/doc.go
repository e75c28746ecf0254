// Package tracing provides OpenTelemetry tracing integration.
//
// The ingest pipeline opens one span per run and one child span per stage;
// the query API wraps every request in a server span through Middleware.
// Both binaries call Init at start-up, which registers an SDK provider so
// spans carry real trace IDs that the request and run logs can quote.
//
// Example usage:
//
//	import "paper-trail/internal/observability/tracing"
//
//	func runStage(ctx context.Context) (err error) {
//	    ctx, span := tracing.StartSpan(ctx, "stage.bills")
//	    defer tracing.End(span, &err)
//	    // ... run the stage ...
//	}
package tracing
