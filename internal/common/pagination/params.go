package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

var (
	// ErrInvalidPage rejects a page that is not a positive integer.
	ErrInvalidPage = errors.New("page must be a positive integer")

	// ErrInvalidLimit rejects a limit outside [1, MaxLimit].
	ErrInvalidLimit = errors.New("invalid limit")
)

// Params represents pagination query parameters from an HTTP request.
type Params struct {
	Page  int // 1-based page number
	Limit int // Items per page
}

// ParseQueryParams reads page and limit from the query string. Missing
// parameters take the config defaults.
func ParseQueryParams(r *http.Request, config Config) (Params, error) {
	params := Params{
		Page:  config.DefaultPage,
		Limit: config.DefaultLimit,
	}

	q := r.URL.Query()
	if s := q.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return params, ErrInvalidPage
		}
		params.Page = page
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 || limit > config.MaxLimit {
			return params, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, config.MaxLimit)
		}
		params.Limit = limit
	}
	return params, nil
}

// Validate checks params against config.
func (p Params) Validate(config Config) error {
	if p.Page < 1 {
		return ErrInvalidPage
	}
	if p.Limit < 1 || p.Limit > config.MaxLimit {
		return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, config.MaxLimit)
	}
	return nil
}

// WithDefaults replaces a non-positive page or limit with the config
// default and caps limit at MaxLimit.
func (p Params) WithDefaults(config Config) Params {
	if p.Page <= 0 {
		p.Page = config.DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = config.DefaultLimit
	}
	if p.Limit > config.MaxLimit {
		p.Limit = config.MaxLimit
	}
	return p
}

// Offset returns the row offset of the first item on the page.
func (p Params) Offset() int {
	return CalculateOffset(p.Page, p.Limit)
}
