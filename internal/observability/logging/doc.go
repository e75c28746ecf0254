// Package logging builds the process loggers on log/slog and carries them
// through contexts.
//
// Both binaries write JSON to stdout at the level named by LOG_LEVEL. The
// ingest CLI can switch to text output for terminals. Loggers pick up
// request IDs in the API and run and stage names in the pipeline:
//
//	logger := logging.WithRun(logging.FromContext(ctx), runID, "votes")
//	logger.Info("stage started")
package logging
