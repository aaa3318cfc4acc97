package vango

import (
	"sync"
	"testing"
)

// testListener is a simple listener for testing.
type testListener struct {
	id         uint64
	dirtyCount int
	mu         sync.Mutex
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

func TestGetTrackingContext(t *testing.T) {
	ctx1 := getTrackingContext()
	ctx2 := getTrackingContext()

	if ctx1 != ctx2 {
		t.Error("getTrackingContext should return same context for same goroutine")
	}
}

func TestTrackingContextIsolation(t *testing.T) {
	var wg sync.WaitGroup
	var ctxA, ctxB *TrackingContext

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer ReleaseGoroutine()
		ctxA = getTrackingContext()
		incrementBatchDepth()
	}()
	go func() {
		defer wg.Done()
		defer ReleaseGoroutine()
		ctxB = getTrackingContext()
	}()
	wg.Wait()

	if ctxA == ctxB {
		t.Fatal("goroutines should get distinct tracking contexts")
	}
	if ctxB.batchDepth != 0 {
		t.Errorf("batch depth leaked across goroutines: got %d", ctxB.batchDepth)
	}
}

func TestWithListener(t *testing.T) {
	listener := newTestListener()

	var captured Listener
	WithListener(listener, func() {
		captured = getCurrentListener()
	})

	if captured != listener {
		t.Error("listener should be set during WithListener callback")
	}
	if getCurrentListener() != nil {
		t.Error("listener should be restored after WithListener")
	}
}

func TestWithListenerNested(t *testing.T) {
	listener1 := newTestListener()
	listener2 := newTestListener()

	var inner, outerAfterInner Listener

	WithListener(listener1, func() {
		WithListener(listener2, func() {
			inner = getCurrentListener()
		})
		outerAfterInner = getCurrentListener()
	})

	if inner != listener2 {
		t.Error("inner listener should be listener2")
	}
	if outerAfterInner != listener1 {
		t.Error("outer listener should be restored to listener1")
	}
}

func TestWithOwnerRestores(t *testing.T) {
	owner := NewOwner(nil)

	WithOwner(owner, func() {
		if CurrentOwner() != owner {
			t.Error("CurrentOwner should return the owner set by WithOwner")
		}
	})

	if CurrentOwner() != nil {
		t.Error("owner should be restored after WithOwner")
	}
}

func TestBatchDepth(t *testing.T) {
	if getBatchDepth() != 0 {
		t.Fatal("batch depth should start at 0")
	}

	incrementBatchDepth()
	incrementBatchDepth()
	if getBatchDepth() != 2 {
		t.Errorf("batch depth: got %d, want 2", getBatchDepth())
	}

	if decrementBatchDepth() {
		t.Error("decrementBatchDepth should return false when depth > 0")
	}
	if !decrementBatchDepth() {
		t.Error("decrementBatchDepth should return true when reaching 0")
	}
}
