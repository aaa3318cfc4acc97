package vango

import (
	"sync"
	"sync/atomic"
)

// Watcher re-evaluates a tracked computation whenever one of the signals it
// read changes, and invokes a callback synchronously on the writing
// goroutine. Watchers are created with Watch or WatchSources.
type Watcher struct {
	id uint64

	// sources are the signals read during the last evaluation.
	sources   []*signalBase
	sourcesMu sync.Mutex

	// onChange re-evaluates the computation and calls back when needed.
	onChange func()

	// running and rerun serialize re-entrant notifications: a change that
	// arrives while the callback is running is folded into one more pass.
	mu      sync.Mutex
	running bool
	rerun   bool

	disposed atomic.Bool
}

// WatchOption configures a watcher.
type WatchOption interface {
	applyWatch(*watchConfig)
}

type watchConfig struct {
	immediate bool
}

type watchOptionFunc func(*watchConfig)

func (f watchOptionFunc) applyWatch(c *watchConfig) { f(c) }

// Immediate makes Watch invoke its callback once at creation with the
// initial value and the zero value as previous.
func Immediate() WatchOption {
	return watchOptionFunc(func(c *watchConfig) {
		c.immediate = true
	})
}

func newWatcher() *Watcher {
	return &Watcher{id: nextID()}
}

// MarkDirty implements Listener.
func (w *Watcher) MarkDirty() {
	if w.disposed.Load() || w.onChange == nil {
		return
	}

	w.mu.Lock()
	if w.running {
		w.rerun = true
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	for {
		w.onChange()

		w.mu.Lock()
		if !w.rerun || w.disposed.Load() {
			w.running = false
			w.rerun = false
			w.mu.Unlock()
			return
		}
		w.rerun = false
		w.mu.Unlock()
	}
}

// ID implements Listener.
func (w *Watcher) ID() uint64 {
	return w.id
}

// addSource records a signal read during evaluation.
func (w *Watcher) addSource(source *signalBase) {
	w.sourcesMu.Lock()
	defer w.sourcesMu.Unlock()

	for _, s := range w.sources {
		if s == source {
			return
		}
	}
	w.sources = append(w.sources, source)
}

// track drops the previous subscriptions and runs fn with this watcher as
// the current listener, so every signal fn reads becomes a source.
func (w *Watcher) track(fn func()) {
	w.sourcesMu.Lock()
	old := w.sources
	w.sources = nil
	w.sourcesMu.Unlock()

	for _, s := range old {
		s.unsubscribe(w)
	}

	prev := setCurrentListener(w)
	defer setCurrentListener(prev)
	fn()
}

// attach registers the watcher with the current owner, if any.
func (w *Watcher) attach() {
	if owner := getCurrentOwner(); owner != nil {
		if !owner.registerWatcher(w) {
			w.Dispose()
		}
	}
}

// Dispose stops the watcher and unsubscribes it from all sources.
func (w *Watcher) Dispose() {
	if w.disposed.Swap(true) {
		return
	}

	w.sourcesMu.Lock()
	sources := w.sources
	w.sources = nil
	w.sourcesMu.Unlock()

	for _, s := range sources {
		s.unsubscribe(w)
	}
}

// Disposed reports whether Dispose has been called.
func (w *Watcher) Disposed() bool {
	return w.disposed.Load()
}

// Watch evaluates source with dependency tracking and calls cb with the new
// and previous value every time a dependency change produces a different
// value. Values are compared with an Equal(T) bool method when T has one,
// == for scalars, and reflect.DeepEqual otherwise.
//
// The callback runs untracked: signals it reads do not become sources.
// The watcher belongs to the current owner, if any.
//
// Example:
//
//	w := Watch(func() int { return page.Get() }, func(next, prev int) {
//	    log.Printf("page %d -> %d", prev, next)
//	})
//	defer w.Dispose()
func Watch[T any](source func() T, cb func(next, prev T), opts ...WatchOption) *Watcher {
	var cfg watchConfig
	for _, opt := range opts {
		if opt != nil {
			opt.applyWatch(&cfg)
		}
	}

	w := newWatcher()

	var current T
	w.track(func() { current = source() })

	w.onChange = func() {
		var next T
		w.track(func() { next = source() })
		if defaultEquals(current, next) {
			return
		}
		prev := current
		current = next
		Untracked(func() { cb(next, prev) })
	}

	w.attach()

	if cfg.immediate {
		var zero T
		Untracked(func() { cb(current, zero) })
	}

	return w
}

// WatchSources calls cb, untracked, every time any of the sources notifies.
// No value comparison is made: sources notify only when they change.
func WatchSources(sources []Source, cb func()) *Watcher {
	w := newWatcher()

	collect := func() {
		for _, src := range sources {
			if src != nil {
				src.Track()
			}
		}
	}

	w.track(collect)

	w.onChange = func() {
		w.track(collect)
		Untracked(cb)
	}

	w.attach()
	return w
}
