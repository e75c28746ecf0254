// Package query provides the read use cases exposed to downstream consumers:
// politicians with their source identities, their votes and donations,
// donors with their donations, the deferred side-channel and the latest run
// report.
package query

import "errors"

// Sentinel errors for query operations.
var (
	// ErrPoliticianNotFound indicates that no politician has the requested ID.
	ErrPoliticianNotFound = errors.New("politician not found")

	// ErrInvalidPoliticianID indicates a non-positive politician ID.
	ErrInvalidPoliticianID = errors.New("invalid politician ID")

	// ErrEmptyQuery indicates a name search without a name.
	ErrEmptyQuery = errors.New("search query is required")

	// ErrDonorNotFound indicates that no donor has the requested ID.
	ErrDonorNotFound = errors.New("donor not found")

	// ErrInvalidDonorID indicates a non-positive donor ID.
	ErrInvalidDonorID = errors.New("invalid donor ID")

	// ErrQueryTooShort indicates a donor search shorter than MinDonorQueryLen.
	ErrQueryTooShort = errors.New("search query must be at least 3 characters")

	// ErrInvalidBillType indicates a vote filter on an unknown bill type.
	ErrInvalidBillType = errors.New("invalid bill type")

	// ErrInvalidSort indicates a sort order other than asc or desc.
	ErrInvalidSort = errors.New("sort must be asc or desc")

	// ErrNoRuns indicates that no ingest run has been recorded yet.
	ErrNoRuns = errors.New("no ingest run recorded")
)
