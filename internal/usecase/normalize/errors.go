// Package normalize canonicalizes raw source records: it parses names into
// matching keys, dates and money into strict types, and rejects malformed
// rows with a reason instead of failing the run.
package normalize

import (
	"errors"
	"fmt"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
)

// Sentinel errors for normalization helpers.
var (
	// ErrEmptyName indicates that a name had no usable tokens after cleanup.
	ErrEmptyName = errors.New("empty name")

	// ErrMalformedDate indicates a date that is not a real calendar date in the expected layout.
	ErrMalformedDate = errors.New("malformed date")

	// ErrMalformedAmount indicates an amount that is not an exact decimal with at most two places.
	ErrMalformedAmount = errors.New("malformed amount")
)

func reject(reason entity.RejectReason, ref entity.SourceRef, o record.Origin, format string, args ...any) error {
	return &entity.Rejection{
		Reason:     reason,
		Ref:        ref,
		Detail:     fmt.Sprintf(format, args...),
		SourceFile: o.SourceFile,
		Line:       o.Line,
	}
}
