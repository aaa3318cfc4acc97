package vango

import (
	"reflect"
	"testing"
)

func TestWatchCallsOnChange(t *testing.T) {
	count := NewSignal(1)

	var got [][2]int
	w := Watch(count.Get, func(next, prev int) {
		got = append(got, [2]int{next, prev})
	})
	defer w.Dispose()

	if len(got) != 0 {
		t.Fatalf("watch should not fire at creation, got %v", got)
	}

	count.Set(2)
	count.Set(2)
	count.Set(5)

	want := [][2]int{{2, 1}, {5, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("callbacks: got %v, want %v", got, want)
	}
}

func TestWatchDerivedValueUnchanged(t *testing.T) {
	count := NewSignal(2)
	calls := 0

	w := Watch(func() bool { return count.Get()%2 == 0 }, func(bool, bool) { calls++ })
	defer w.Dispose()

	count.Set(4)
	if calls != 0 {
		t.Errorf("derived value did not change, got %d calls", calls)
	}

	count.Set(5)
	if calls != 1 {
		t.Errorf("derived value changed, got %d calls, want 1", calls)
	}
}

func TestWatchImmediate(t *testing.T) {
	name := NewSignal("a")

	var got []string
	w := Watch(name.Get, func(next, prev string) {
		got = append(got, prev+">"+next)
	}, Immediate())
	defer w.Dispose()

	if !reflect.DeepEqual(got, []string{">a"}) {
		t.Errorf("immediate callback: got %v", got)
	}
}

func TestWatchDynamicDependencies(t *testing.T) {
	useA := NewSignal(true)
	a := NewSignal("a1")
	b := NewSignal("b1")

	var got []string
	w := Watch(func() string {
		if useA.Get() {
			return a.Get()
		}
		return b.Get()
	}, func(next, _ string) { got = append(got, next) })
	defer w.Dispose()

	useA.Set(false)
	a.Set("a2")
	b.Set("b2")

	want := []string{"b1", "b2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("callbacks: got %v, want %v", got, want)
	}
	if a.Subscribers() != 0 {
		t.Errorf("stale source should be unsubscribed, got %d subscribers", a.Subscribers())
	}
}

func TestWatchCallbackIsUntracked(t *testing.T) {
	trigger := NewSignal(0)
	other := NewSignal(0)
	calls := 0

	w := Watch(trigger.Get, func(int, int) {
		calls++
		_ = other.Get()
	})
	defer w.Dispose()

	trigger.Set(1)
	other.Set(1)

	if calls != 1 {
		t.Errorf("callback reads should not become sources, got %d calls", calls)
	}
}

func TestWatchReentrantWrite(t *testing.T) {
	count := NewSignal(0)

	var seen []int
	w := Watch(count.Get, func(next, _ int) {
		seen = append(seen, next)
		if next < 3 {
			count.Set(next + 1)
		}
	})
	defer w.Dispose()

	count.Set(1)

	want := []int{1, 2, 3}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("re-entrant writes: got %v, want %v", seen, want)
	}
}

func TestWatchInBatch(t *testing.T) {
	a := NewSignal(0)
	b := NewSignal(0)
	calls := 0

	w := Watch(func() int { return a.Get() + b.Get() }, func(int, int) { calls++ })
	defer w.Dispose()

	Batch(func() {
		a.Set(1)
		b.Set(1)
	})

	if calls != 1 {
		t.Errorf("batched writes: got %d calls, want 1", calls)
	}
}

func TestWatchSources(t *testing.T) {
	ready := NewSignal(false)
	user := NewSignal("")
	calls := 0

	w := WatchSources([]Source{ready, user}, func() { calls++ })

	if calls != 0 {
		t.Fatalf("WatchSources should not fire at creation, got %d", calls)
	}

	ready.Set(true)
	user.Set("ada")
	ready.Set(true)

	if calls != 2 {
		t.Errorf("calls: got %d, want 2", calls)
	}

	w.Dispose()
	user.Set("grace")
	if calls != 2 {
		t.Errorf("disposed WatchSources fired, got %d calls", calls)
	}
}

func TestWatchSourcesIgnoresNil(t *testing.T) {
	s := NewSignal(0)
	calls := 0

	w := WatchSources([]Source{nil, s}, func() { calls++ })
	defer w.Dispose()

	s.Set(1)
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}
