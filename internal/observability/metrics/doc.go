// Package metrics holds the process-wide Prometheus collectors of both
// binaries, registered on the default registry and served at /metrics.
//
//   - http.go: query API requests
//   - pipeline.go: records read, rejected, deferred and loaded; resolver
//     verdicts; stage and run outcomes
//   - database.go: query latency, pool usage and circuit breaker state
//
// Callers go through the Record helpers rather than the collectors:
//
//	start := time.Now()
//	err := stage.Run(ctx)
//	metrics.RecordStage(stage.Name(), time.Since(start), err)
package metrics
