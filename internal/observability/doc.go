// Package observability groups the logging, metrics and tracing helpers
// shared by the ingest binary and the query API.
//
// Subpackages:
//   - logging: slog construction and context propagation
//   - metrics: Prometheus collectors for pipeline and HTTP activity
//   - tracing: OpenTelemetry spans for runs, stages and HTTP requests
package observability
