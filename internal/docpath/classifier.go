// Package docpath recognizes request paths that belong to API documentation
// and UI tooling (swagger resources, api-docs endpoints, webjars).
package docpath

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrNoMarkers is returned when a classifier is built from an empty marker set
	ErrNoMarkers = errors.New("docpath: marker set is empty")

	// ErrBlankMarker is returned for markers that are empty or only whitespace
	ErrBlankMarker = errors.New("docpath: blank marker")

	// ErrNilInput is returned by MatchURL when given nil
	ErrNilInput = errors.New("docpath: nil input")
)

// DefaultMarkers are the substrings that identify documentation resources
var DefaultMarkers = []string{
	"swagger-resources",
	"v2/api-docs",
	"v3/api-docs",
	"webjars",
	"swagger-ui.html",
}

// Classifier answers whether a path references a documentation resource.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	markers []string // lowered, deduplicated, input order
}

var defaultClassifier = mustNew(DefaultMarkers)

// New creates a classifier over the given markers.
// Duplicates (compared case-insensitively) are dropped, keeping the first one.
func New(markers []string) (*Classifier, error) {
	if len(markers) == 0 {
		return nil, ErrNoMarkers
	}

	seen := make(map[string]bool, len(markers))
	lowered := make([]string, 0, len(markers))

	for i, m := range markers {
		if strings.TrimSpace(m) == "" {
			return nil, fmt.Errorf("marker %d: %w", i, ErrBlankMarker)
		}
		l := asciiLower(m)
		if seen[l] {
			continue
		}
		seen[l] = true
		lowered = append(lowered, l)
	}

	return &Classifier{markers: lowered}, nil
}

func mustNew(markers []string) *Classifier {
	c, err := New(markers)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the classifier over DefaultMarkers
func Default() *Classifier {
	return defaultClassifier
}

// IsDocumentationResource reports whether path contains one of the default markers
func IsDocumentationResource(path string) bool {
	return defaultClassifier.IsDocumentationResource(path)
}

// IsDocumentationResource reports whether path contains any marker, ignoring ASCII case.
// Matching is plain substring containment: no anchoring or segment parsing.
func (c *Classifier) IsDocumentationResource(path string) bool {
	if path == "" {
		return false
	}

	p := asciiLower(path)
	for _, m := range c.markers {
		if strings.Contains(p, m) {
			return true
		}
	}
	return false
}

// Markers returns a copy of the normalized marker set
func (c *Classifier) Markers() []string {
	out := make([]string, len(c.markers))
	copy(out, c.markers)
	return out
}

// MatchURL classifies the path component of u
func (c *Classifier) MatchURL(u *url.URL) (bool, error) {
	if u == nil {
		return false, ErrNilInput
	}
	return c.IsDocumentationResource(u.Path), nil
}

// asciiLower lowers A-Z only, so byte offsets and non-ASCII text are preserved
func asciiLower(s string) string {
	hasUpper := false
	for i := 0; i < len(s); i++ {
		if c := s[i]; 'A' <= c && c <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
