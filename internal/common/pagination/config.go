// Package pagination provides offset-based paging for list endpoints:
// query parameter parsing, offset and page-count arithmetic and the
// response envelope.
package pagination

// Config holds the paging defaults of one endpoint.
type Config struct {
	DefaultPage  int // Default page number (1)
	DefaultLimit int // Default items per page
	MaxLimit     int // Maximum allowed items per page
}

// DefaultConfig returns page=1, limit=50, max=500.
func DefaultConfig() Config {
	return Config{
		DefaultPage:  1,
		DefaultLimit: 50,
		MaxLimit:     500,
	}
}
