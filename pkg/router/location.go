package router

import (
	"net/url"

	"github.com/vango-dev/querysync/internal/errors"
)

// Location is a path plus its query mapping.
type Location struct {
	Path  string
	Query Query
}

// ParseLocation parses a URL reference such as "/users?page=2".
// Scheme and host, if present, are ignored. An empty path becomes "/".
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.New("Q021").
			WithDetail("cannot parse location " + raw).
			Wrap(err)
	}

	q, err := ParseQuery(u.RawQuery)
	if err != nil {
		return Location{}, errors.New("Q021").
			WithDetail("cannot parse query of " + raw).
			Wrap(err)
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	return Location{Path: path, Query: q}, nil
}

// MustParseLocation is ParseLocation that panics on error.
func MustParseLocation(raw string) Location {
	loc, err := ParseLocation(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// String returns the path followed by the encoded query, if any.
func (l Location) String() string {
	path := l.Path
	if path == "" {
		path = "/"
	}
	if len(l.Query) == 0 {
		return path
	}
	return path + "?" + l.Query.Encode()
}

// Equal reports whether both locations have the same path and query.
func (l Location) Equal(other Location) bool {
	return l.Path == other.Path && l.Query.Equal(other.Query)
}

// WithQuery returns a copy of l with its query replaced by a clone of q.
func (l Location) WithQuery(q Query) Location {
	return Location{Path: l.Path, Query: q.Clone()}
}
