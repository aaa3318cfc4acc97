package querysync

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

// Synchronizer keeps one store value and one query key in agreement.
//
// Query to store: the raw query value is coerced with ParseQueryValue and
// passed to set. If the store adjusts it (clamping, defaults), the adjusted
// value is written back to the URL, as is the canonical spelling of a number
// written unusually ("0x10" becomes "16"). A missing key is filled from the
// store.
//
// Store to query: every change of get() requests a write of its URL form,
// or a delete when it becomes absent, unless the URL already matches.
type Synchronizer struct {
	key       string
	get       func() Value
	set       func(Value)
	binding   *Binding
	router    router.Router
	coalescer *Coalescer
	logger    *slog.Logger

	mu       sync.Mutex
	watchers []*vango.Watcher
	closed   atomic.Bool
}

// rawQuery is a query lookup result, comparable for watchers.
type rawQuery struct {
	value   string
	present bool
}

// Use mounts a Synchronizer for key on b.
//
// Without WithDeps the query value is applied to the store immediately and
// unconditionally. With WithDeps the first application waits for a
// dependency change.
//
// When an owner is current, the Synchronizer is closed when the owner is
// disposed. Otherwise the caller must call Close.
func (b *Binding) Use(key string, get func() Value, set func(Value), opts ...Option) *Synchronizer {
	r, err := b.Router()
	if err != nil {
		panic(err)
	}

	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	s := &Synchronizer{
		key:       QueryKey(key, o.context),
		get:       get,
		set:       set,
		binding:   b,
		router:    r,
		coalescer: b.coalescer,
		logger:    b.logger,
	}
	b.acquire(s.key)

	s.watch(vango.Watch(get, func(next, _ Value) {
		s.storeToQuery(next)
	}))
	s.watch(vango.Watch(s.lookup, func(next, _ rawQuery) {
		s.queryToStore(next, false)
	}))

	if len(o.deps) > 0 {
		s.watch(vango.WatchSources(o.deps, func() {
			s.queryToStore(s.peek(), false)
		}))
	} else {
		vango.Untracked(func() {
			s.queryToStore(s.peek(), true)
		})
	}

	vango.OnUnmount(s.Close)

	s.logger.Debug("query synchronizer mounted", "key", s.key, "deps", len(o.deps))
	return s
}

// Key returns the effective query key.
func (s *Synchronizer) Key() string {
	return s.key
}

// Closed reports whether Close has run.
func (s *Synchronizer) Closed() bool {
	return s.closed.Load()
}

// Close stops both directions of synchronization and requests removal of
// the key from the URL. Safe to call more than once.
func (s *Synchronizer) Close() {
	if s.closed.Swap(true) {
		return
	}

	s.mu.Lock()
	watchers := s.watchers
	s.watchers = nil
	s.mu.Unlock()

	for _, w := range watchers {
		w.Dispose()
	}

	s.binding.release(s.key)
	s.coalescer.RequestWrite(s.key, Absent())

	s.logger.Debug("query synchronizer closed", "key", s.key)
}

func (s *Synchronizer) watch(w *vango.Watcher) {
	s.mu.Lock()
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()
}

// lookup reads the key from the router, tracked.
func (s *Synchronizer) lookup() rawQuery {
	v, ok := s.router.Query().Lookup(s.key)
	return rawQuery{value: v, present: ok}
}

func (s *Synchronizer) peek() rawQuery {
	var q rawQuery
	vango.Untracked(func() { q = s.lookup() })
	return q
}

func (s *Synchronizer) queryToStore(q rawQuery, force bool) {
	if s.closed.Load() {
		return
	}

	if !q.present {
		if current := s.get(); !current.IsAbsent() {
			s.coalescer.RequestWrite(s.key, current)
		}
		return
	}

	candidate := ParseQueryValue(q.value)
	if force || !candidate.Equal(s.get()) {
		s.set(candidate)
	}

	// The store is authoritative: write back what it kept when it adjusted
	// the candidate or when the URL spelling is not the canonical one.
	current := s.get()
	if current.IsAbsent() {
		return
	}
	if !current.Equal(candidate) || current.String() != q.value {
		s.coalescer.RequestWrite(s.key, current)
	}
}

func (s *Synchronizer) storeToQuery(next Value) {
	if s.closed.Load() {
		return
	}

	// A pending intent wins over the URL: the URL will reflect it after
	// the flush, so compare against it.
	if intent, ok := s.coalescer.Intent(s.key); ok {
		if !intent.Equal(next) {
			s.coalescer.RequestWrite(s.key, next)
		}
		return
	}

	q := s.peek()
	if next.IsAbsent() {
		if q.present {
			s.coalescer.RequestWrite(s.key, Absent())
		}
		return
	}
	if !q.present || q.value != next.String() {
		s.coalescer.RequestWrite(s.key, next)
	}
}
