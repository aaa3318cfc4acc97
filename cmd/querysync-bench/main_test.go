package main

import (
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0, 1},
		{0.5, 5},
		{0.95, 10},
		{1, 10},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v): got %v, want %v", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("percentile of nothing: got %v", got)
	}
}

func TestEventTimeout(t *testing.T) {
	if got := eventTimeout(100); got != 2*time.Second {
		t.Errorf("fast rate: got %v, want 2s floor", got)
	}
	if got := eventTimeout(0.5); got != 20*time.Second {
		t.Errorf("slow rate: got %v, want 20s", got)
	}
}
