package querysync

import (
	"errors"
	"testing"

	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

func TestCoalescerMergesOneReplace(t *testing.T) {
	b, r, q := newTestBinding(t, "/list?keep=1&drop=x")
	c := b.Coalescer()

	c.RequestWrite("a", Int(1))
	c.RequestWrite("b", String("two"))
	c.RequestWrite("drop", Absent())

	if got := c.Pending(); got != 3 {
		t.Errorf("Pending: got %d, want 3", got)
	}
	if got := r.Replacements(); got != 0 {
		t.Fatalf("replace before flush: got %d", got)
	}

	if ran := q.Drain(); ran != 1 {
		t.Errorf("scheduled flushes: got %d, want 1", ran)
	}
	if got := r.Replacements(); got != 1 {
		t.Errorf("Replacements: got %d, want 1", got)
	}
	if got, want := url(r), "/list?a=1&b=two&keep=1"; got != want {
		t.Errorf("url: got %q, want %q", got, want)
	}
	if got := c.Pending(); got != 0 {
		t.Errorf("Pending after flush: got %d", got)
	}
	if got := c.Flushes(); got != 1 {
		t.Errorf("Flushes: got %d", got)
	}

	if _, idx := r.History(); idx != 0 {
		t.Errorf("replace must not push history, index %d", idx)
	}
}

func TestCoalescerLastWriteWins(t *testing.T) {
	tests := []struct {
		name   string
		writes []Value
		want   string
	}{
		{"upsert then delete", []Value{String("v"), Absent()}, "/?other=1"},
		{"delete then upsert", []Value{Absent(), String("v")}, "/?k=v&other=1"},
		{"upsert twice", []Value{Int(1), Int(2)}, "/?k=2&other=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, r, q := newTestBinding(t, "/?k=old&other=1")
			for _, v := range tt.writes {
				b.Coalescer().RequestWrite("k", v)
			}
			if got := b.Coalescer().Pending(); got != 1 {
				t.Errorf("Pending: got %d, want 1", got)
			}
			q.Drain()
			if got := url(r); got != tt.want {
				t.Errorf("url: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCoalescerIntent(t *testing.T) {
	b, _, _ := newTestBinding(t, "/")
	c := b.Coalescer()

	if _, ok := c.Intent("k"); ok {
		t.Error("no intent expected")
	}
	c.RequestWrite("k", Int(5))
	if v, ok := c.Intent("k"); !ok || !v.Equal(Int(5)) {
		t.Errorf("Intent: got %#v %v", v, ok)
	}
	c.RequestWrite("k", Absent())
	if v, ok := c.Intent("k"); !ok || !v.IsAbsent() {
		t.Errorf("Intent after delete: got %#v %v", v, ok)
	}
}

func TestCoalescerRedundantFlushStillReplaces(t *testing.T) {
	b, r, q := newTestBinding(t, "/?k=1")
	b.Coalescer().RequestWrite("k", Int(1))
	q.Drain()

	if got := r.Replacements(); got != 1 {
		t.Errorf("Replacements: got %d, want 1", got)
	}
	if got := url(r); got != "/?k=1" {
		t.Errorf("url: got %q", got)
	}
}

func TestCoalescerWriteDuringNavigationGoesToNextBatch(t *testing.T) {
	b, r, q := newTestBinding(t, "/")
	c := b.Coalescer()

	var seen []string
	fired := false
	r.OnNavigate(func(ev router.NavigationEvent) {
		seen = append(seen, ev.To.String())
		if !fired {
			fired = true
			c.RequestWrite("late", String("yes"))
			if got := c.Pending(); got != 1 {
				t.Errorf("in-flight Pending: got %d, want 1", got)
			}
		}
	})

	c.RequestWrite("first", Int(1))
	q.Drain()

	want := []string{"/?first=1", "/?first=1&late=yes"}
	if len(seen) != len(want) {
		t.Fatalf("navigations: got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("navigation %d: got %q, want %q", i, seen[i], want[i])
		}
	}
	if got := c.Flushes(); got != 2 {
		t.Errorf("Flushes: got %d, want 2", got)
	}
}

func TestCoalescerRearmsAfterPanickingReplace(t *testing.T) {
	q := vango.NewMicrotaskQueue()
	pr := &panicRouter{query: router.Query{}}
	c := NewCoalescer(pr, WithScheduler(q))

	pr.panics = true
	c.RequestWrite("a", Int(1))
	func() {
		defer func() { _ = recover() }()
		q.Drain()
	}()

	pr.panics = false
	c.RequestWrite("b", Int(2))
	if got := q.Len(); got != 1 {
		t.Fatalf("flush not re-armed after panic, queued %d", got)
	}
	q.Drain()
	if got := pr.query.Encode(); got != "b=2" {
		t.Errorf("query: got %q, want %q", got, "b=2")
	}
}

func TestCoalescerWithoutRouterPanics(t *testing.T) {
	c := NewCoalescer(nil, WithScheduler(vango.NewMicrotaskQueue()))

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrRouterNotInstalled) {
			t.Errorf("recover: got %v, want ErrRouterNotInstalled", r)
		}
	}()
	c.RequestWrite("k", Int(1))
}

// panicRouter is a Router whose Replace can be made to panic.
type panicRouter struct {
	query router.Query
	panics bool
}

func (p *panicRouter) Query() router.Query { return p.query }

func (p *panicRouter) Replace(q router.Query) {
	if p.panics {
		panic("navigation failed")
	}
	p.query = q
}
