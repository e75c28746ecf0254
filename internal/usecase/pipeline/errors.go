// Package pipeline composes the ingest stages (roster, candidates, members,
// bills, votes, donations) into one run. Each stage reads its sources in
// batches, normalizes a batch in parallel, then resolves, links and loads
// the batch sequentially in input order.
package pipeline

import "errors"

var (
	// ErrSourceFailed wraps an error reading a source file. It fails the
	// stage and the run; the file is not retried.
	ErrSourceFailed = errors.New("source read failed")

	// ErrRunCancelled is returned when the context ends between stages.
	ErrRunCancelled = errors.New("run cancelled")
)
