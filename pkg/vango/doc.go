// Package vango provides the reactive core used by querysync.
//
// Dependencies are tracked at runtime: reading a signal while a listener is
// active subscribes that listener to the signal's changes.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := NewSignal(0)
//	value := count.Get()  // Read (subscribes current listener)
//	count.Set(5)          // Write (notifies subscribers)
//	count.Update(func(n int) int { return n + 1 })
//
// Watch observes a derived value and calls back synchronously when it
// changes:
//
//	w := Watch(func() int { return count.Get() * 2 }, func(next, prev int) {
//	    fmt.Println(prev, "->", next)
//	})
//	defer w.Dispose()
//
// WatchSources fires on any notification from a list of sources, without
// comparing values.
//
// # Ownership
//
// An Owner is a lifetime scope. Watchers created while an Owner is current
// (see WithOwner) are disposed with it, and OnUnmount registers cleanups that
// run when the Owner is disposed.
//
// # Batching
//
// Multiple signal updates can be batched to trigger a single notification:
//
//	Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	})  // Single notification after all updates
//
// # Microtasks
//
// MicrotaskQueue models the end of a synchronous burst of work. Deferred
// functions run on Drain, in FIFO order, including functions queued while
// draining. Tick runs a function and then drains the default queue.
//
// # Thread Safety
//
// Primitives are safe to touch from multiple goroutines, but notifications are
// delivered synchronously on the goroutine that performed the write. The
// tracking context is per-goroutine, so spawning goroutines requires explicit
// context propagation via WithOwner.
package vango
