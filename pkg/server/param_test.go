package server

import (
	"testing"

	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/querysync"
)

func bound(f float64) *float64 { return &f }

func TestParamNormalize(t *testing.T) {
	page := config.ParamConfig{Key: "page", Type: config.TypeNumber, Default: "1", Min: bound(1), Max: bound(50)}
	noDefault := config.ParamConfig{Key: "n", Type: config.TypeNumber}
	tab := config.ParamConfig{Key: "tab", Type: config.TypeString}

	tests := []struct {
		name string
		cfg  config.ParamConfig
		in   querysync.Value
		want querysync.Value
	}{
		{"number in range", page, querysync.Int(7), querysync.Int(7)},
		{"clamped high", page, querysync.Int(99), querysync.Int(50)},
		{"clamped low", page, querysync.Int(-3), querysync.Int(1)},
		{"numeric string", page, querysync.String("12"), querysync.Int(12)},
		{"garbage falls back to default", page, querysync.String("abc"), querysync.Int(1)},
		{"garbage without default", noDefault, querysync.String("abc"), querysync.Absent()},
		{"absent stays absent", page, querysync.Absent(), querysync.Absent()},
		{"string param keeps strings", tab, querysync.String("orders"), querysync.String("orders")},
		{"string param stringifies numbers", tab, querysync.Int(3), querysync.String("3")},
		{"string param keeps empty", tab, querysync.String(""), querysync.String("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParam(tt.cfg)
			p.Set(tt.in)
			if got := p.Peek(); !got.Equal(tt.want) {
				t.Errorf("Set(%#v): store %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParamDefault(t *testing.T) {
	p := NewParam(config.ParamConfig{Key: "page", Context: "users", Type: config.TypeNumber, Default: "0", Min: bound(1)})

	if got := p.Peek(); !got.Equal(querysync.Int(1)) {
		t.Errorf("default should be clamped: got %#v", got)
	}
	if p.Key() != "users_page" {
		t.Errorf("Key: got %q", p.Key())
	}

	empty := NewParam(config.ParamConfig{Key: "q", Type: config.TypeString})
	if !empty.Peek().IsAbsent() {
		t.Errorf("no default should be absent: got %#v", empty.Peek())
	}
}
