package pathutil

import (
	"regexp"
	"strings"
)

type pathPattern struct {
	pattern  *regexp.Regexp
	template string
}

// Most specific first.
var pathPatterns = []pathPattern{
	{regexp.MustCompile(`^/politicians/[^/]+/votes$`), "/politicians/{id}/votes"},
	{regexp.MustCompile(`^/politicians/[^/]+/donations$`), "/politicians/{id}/donations"},
	{regexp.MustCompile(`^/politicians/[^/]+$`), "/politicians/{id}"},
	{regexp.MustCompile(`^/donors/[^/]+/donations$`), "/donors/{id}/donations"},
}

// NormalizePath maps a request path to its route template so that metrics
// labels stay bounded:
//
//	NormalizePath("/politicians/42")        // "/politicians/{id}"
//	NormalizePath("/politicians/42/votes/") // "/politicians/{id}/votes"
//	NormalizePath("/runs/latest")           // "/runs/latest"
//
// Paths outside the API are collapsed to "other".
func NormalizePath(path string) string {
	if i := strings.IndexByte(path, '?'); i != -1 {
		path = path[:i]
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	for _, p := range pathPatterns {
		if p.pattern.MatchString(path) {
			return p.template
		}
	}
	if _, ok := staticPaths[path]; ok {
		return path
	}
	return "other"
}

var staticPaths = map[string]struct{}{
	"/politicians": {},
	"/donors":      {},
	"/deferred":    {},
	"/runs/latest": {},
	"/health":      {},
	"/ready":       {},
	"/live":        {},
	"/metrics":     {},
}
