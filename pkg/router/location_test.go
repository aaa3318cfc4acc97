package router

import (
	"errors"
	"testing"

	qerrors "github.com/vango-dev/querysync/internal/errors"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw      string
		wantPath string
		wantURL  string
	}{
		{"/list?page=2", "/list", "/list?page=2"},
		{"/", "/", "/"},
		{"?page=2", "/", "/?page=2"},
		{"", "/", "/"},
		{"/a?b=2&a=1", "/a", "/a?a=1&b=2"},
		{"/x?page=2#top", "/x", "/x?page=2"},
	}

	for _, tt := range tests {
		loc, err := ParseLocation(tt.raw)
		if err != nil {
			t.Errorf("ParseLocation(%q): %v", tt.raw, err)
			continue
		}
		if loc.Path != tt.wantPath {
			t.Errorf("ParseLocation(%q).Path: got %q, want %q", tt.raw, loc.Path, tt.wantPath)
		}
		if got := loc.String(); got != tt.wantURL {
			t.Errorf("ParseLocation(%q).String(): got %q, want %q", tt.raw, got, tt.wantURL)
		}
	}
}

func TestParseLocationErrors(t *testing.T) {
	for _, raw := range []string{"/a?x=%zz", "%zz"} {
		_, err := ParseLocation(raw)
		if err == nil {
			t.Errorf("ParseLocation(%q) should fail", raw)
			continue
		}
		if !errors.Is(err, qerrors.New("Q021")) {
			t.Errorf("ParseLocation(%q): error should carry Q021: %v", raw, err)
		}
	}
}

func TestMustParseLocationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParseLocation should panic on a bad location")
		}
	}()
	MustParseLocation("/a?x=%zz")
}

func TestLocationWithQuery(t *testing.T) {
	loc := MustParseLocation("/list?page=2")
	q := Query{"page": "3"}
	next := loc.WithQuery(q)
	q["page"] = "9"

	if got := next.String(); got != "/list?page=3" {
		t.Errorf("WithQuery: got %q", got)
	}
	if loc.Equal(next) {
		t.Error("locations with different queries should differ")
	}
	if !next.Equal(MustParseLocation("/list?page=3")) {
		t.Error("Equal should compare path and query")
	}
}
