// Package pathutil parses path and query parameters of the query API and
// maps request paths onto bounded metric labels.
package pathutil

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrInvalidID rejects an {id} segment that is not a positive integer.
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidLimit rejects a limit that is not a positive integer.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// ParseID parses an {id} path segment. Surrounding spaces are
// ignored.
func ParseID(segment string) (int64, error) {
	id, ok := positive(strings.TrimSpace(segment), 64)
	if !ok {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseLimit parses the limit query parameter. An empty value returns 0 and
// leaves the default to the query service.
func ParseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, ok := positive(raw, strconv.IntSize)
	if !ok {
		return 0, ErrInvalidLimit
	}
	return int(n), nil
}

func positive(s string, bits int) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, bits)
	return n, err == nil && n > 0
}
