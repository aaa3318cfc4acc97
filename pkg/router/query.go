package router

import (
	"net/url"
	"sort"
	"strings"
)

// Query is a flat query-string mapping. A key that is absent from the map is
// absent from the URL; a key mapped to "" is present but empty.
type Query map[string]string

// ParseQuery parses a raw query string, with or without a leading "?".
// Repeated keys keep their first value.
func ParseQuery(raw string) (Query, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, err
	}

	q := make(Query, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			q[k] = vs[0]
		}
	}
	return q, nil
}

// Lookup returns the value for key and whether it is present.
func (q Query) Lookup(key string) (string, bool) {
	v, ok := q[key]
	return v, ok
}

// Has reports whether key is present.
func (q Query) Has(key string) bool {
	_, ok := q[key]
	return ok
}

// Clone returns a copy of q. The copy is never nil.
func (q Query) Clone() Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// Equal reports whether q and other hold the same keys and values.
// A nil Query equals an empty one.
func (q Query) Equal(other Query) bool {
	if len(q) != len(other) {
		return false
	}
	for k, v := range q {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// Keys returns the keys in sorted order.
func (q Query) Keys() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode serializes q in URL-encoded form, sorted by key, without a leading "?".
func (q Query) Encode() string {
	values := make(url.Values, len(q))
	for k, v := range q {
		values.Set(k, v)
	}
	return values.Encode()
}
