// Package load writes resolved and linked entities to the store. Every
// operation is one atomic unit of work and reports whether it inserted,
// updated or found an identical row.
package load

import "errors"

// ErrPoliticianMissing indicates an update for a politician the store does not have.
var ErrPoliticianMissing = errors.New("politician missing from store")
