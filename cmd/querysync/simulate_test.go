package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vango-dev/querysync/internal/config"
)

func bound(f float64) *float64 { return &f }

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps([]string{"set=4", "set=", "navigate=/x?a=b", "clear", "back", "unmount"})
	if err != nil {
		t.Fatalf("parseSteps: %v", err)
	}
	want := []step{
		{"set", "4"},
		{"set", ""},
		{"navigate", "/x?a=b"},
		{"clear", ""},
		{"back", ""},
		{"unmount", ""},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d: got %v, want %v", i, steps[i], want[i])
		}
	}

	for _, bad := range []string{"jump", "set", "clear=1", "navigate"} {
		if _, err := parseSteps([]string{bad}); err == nil {
			t.Errorf("parseSteps(%q) should fail", bad)
		}
	}
}

func TestRunSimulate(t *testing.T) {
	var out bytes.Buffer
	err := runSimulate(&out, scenario{
		URL:   "/list?page=3",
		Param: config.ParamConfig{Key: "page", Type: config.TypeNumber, Min: bound(1)},
		Steps: []step{
			{"set", "0"},
			{"navigate", "/list?page=9"},
			{"clear", ""},
			{"unmount", ""},
		},
	})
	if err != nil {
		t.Fatalf("runSimulate: %v", err)
	}

	want := []string{
		"start    /list?page=3",
		"# set 0",
		"replace  /list?page=1",
		"# navigate /list?page=9",
		"push     /list?page=9",
		"# clear",
		"replace  /list",
		"# unmount",
		"final    /list",
		`store    page=(absent)`,
	}
	got := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(got) != len(want) {
		t.Fatalf("output:\n%s\nwant:\n%s", out.String(), strings.Join(want, "\n"))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunSimulateContext(t *testing.T) {
	var out bytes.Buffer
	err := runSimulate(&out, scenario{
		URL:   "/",
		Param: config.ParamConfig{Key: "tab", Context: "users", Type: config.TypeString, Default: "orders"},
	})
	if err != nil {
		t.Fatalf("runSimulate: %v", err)
	}
	if !strings.Contains(out.String(), "replace  /?users_tab=orders") {
		t.Errorf("store default should be written to the URL:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `store    users_tab="orders"`) {
		t.Errorf("final store line missing:\n%s", out.String())
	}
}

func TestRunSimulateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		sc   scenario
	}{
		{"bad type", scenario{URL: "/", Param: config.ParamConfig{Key: "page", Type: "date"}}},
		{"bad url", scenario{URL: "/?a=%zz", Param: config.ParamConfig{Key: "page", Type: config.TypeNumber}}},
		{"bad navigate", scenario{
			URL:   "/",
			Param: config.ParamConfig{Key: "page", Type: config.TypeNumber},
			Steps: []step{{"navigate", "/?a=%zz"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runSimulate(&out, tt.sc); err == nil {
				t.Errorf("expected error, output:\n%s", out.String())
			}
		})
	}
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	if err := runInit(dir, false); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if _, err := config.Load(dir); err != nil {
		t.Errorf("written config does not load: %v", err)
	}
	if err := runInit(dir, false); err == nil {
		t.Error("runInit should refuse to overwrite")
	}
	if err := runInit(dir, true); err != nil {
		t.Errorf("runInit --force: %v", err)
	}
}
