package router

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/querysync/pkg/vango"
)

// MemoryRouter is an in-memory Router with a history stack.
// The current location lives in a vango.Signal, so watchers that read
// Query() or Location() re-run when a navigation changes it.
type MemoryRouter struct {
	current *vango.Signal[Location]

	mu      sync.Mutex
	history []Location
	index   int

	listenersMu sync.Mutex
	listeners   map[uint64]func(NavigationEvent)
	nextID      uint64

	replaces atomic.Uint64

	logger *slog.Logger
}

// MemoryOption configures a MemoryRouter.
type MemoryOption func(*MemoryRouter)

// WithLogger sets the router's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) MemoryOption {
	return func(r *MemoryRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewMemoryRouter creates a router positioned at initial.
func NewMemoryRouter(initial Location, opts ...MemoryOption) *MemoryRouter {
	initial = initial.WithQuery(initial.Query)
	if initial.Path == "" {
		initial.Path = "/"
	}

	r := &MemoryRouter{
		current:   vango.NewSignal(initial),
		history:   []Location{initial},
		listeners: make(map[uint64]func(NavigationEvent)),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the current location, tracked.
func (r *MemoryRouter) Location() Location {
	return r.current.Get()
}

// Peek returns the current location without subscribing.
func (r *MemoryRouter) Peek() Location {
	return r.current.Peek()
}

// Query implements Router.
func (r *MemoryRouter) Query() Query {
	return r.current.Get().Query
}

// Replace implements Router. The history entry at the current index is
// swapped; nothing is pushed.
func (r *MemoryRouter) Replace(q Query) {
	r.replaces.Add(1)

	r.mu.Lock()
	from := r.history[r.index]
	to := from.WithQuery(q)
	r.history[r.index] = to
	r.mu.Unlock()

	r.commit(NavigationReplace, from, to)
}

// ReplaceLocation swaps the current history entry for loc.
func (r *MemoryRouter) ReplaceLocation(loc Location) {
	r.replaces.Add(1)

	r.mu.Lock()
	from := r.history[r.index]
	to := loc.WithQuery(loc.Query)
	r.history[r.index] = to
	r.mu.Unlock()

	r.commit(NavigationReplace, from, to)
}

// Push adds loc as a new history entry, dropping any forward entries.
func (r *MemoryRouter) Push(loc Location) {
	r.mu.Lock()
	from := r.history[r.index]
	to := loc.WithQuery(loc.Query)
	r.history = append(r.history[:r.index+1], to)
	r.index = len(r.history) - 1
	r.mu.Unlock()

	r.commit(NavigationPush, from, to)
}

// Navigate parses raw and pushes it, or replaces the current entry with
// WithReplace.
func (r *MemoryRouter) Navigate(raw string, opts ...NavigateOption) error {
	loc, err := ParseLocation(raw)
	if err != nil {
		return err
	}

	var o NavigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.Replace {
		r.ReplaceLocation(loc)
	} else {
		r.Push(loc)
	}
	return nil
}

// Back moves one entry back in history. Returns false at the first entry.
func (r *MemoryRouter) Back() bool {
	return r.step(-1)
}

// Forward moves one entry forward in history. Returns false at the last entry.
func (r *MemoryRouter) Forward() bool {
	return r.step(1)
}

func (r *MemoryRouter) step(delta int) bool {
	r.mu.Lock()
	next := r.index + delta
	if next < 0 || next >= len(r.history) {
		r.mu.Unlock()
		return false
	}
	from := r.history[r.index]
	r.index = next
	to := r.history[next]
	r.mu.Unlock()

	r.commit(NavigationPop, from, to)
	return true
}

// commit publishes the new location to watchers, then to OnNavigate
// listeners. Unchanged locations notify nobody.
func (r *MemoryRouter) commit(kind NavigationKind, from, to Location) {
	if from.Equal(to) && kind == NavigationReplace {
		r.logger.Debug("redundant navigation", "kind", kind.String(), "url", to.String())
		return
	}

	r.logger.Debug("navigation", "kind", kind.String(), "from", from.String(), "to", to.String())

	r.current.Set(to)

	r.listenersMu.Lock()
	listeners := make([]func(NavigationEvent), 0, len(r.listeners))
	for id := uint64(1); id <= r.nextID; id++ {
		if fn, ok := r.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	r.listenersMu.Unlock()

	ev := NavigationEvent{Kind: kind, From: from, To: to}
	for _, fn := range listeners {
		fn(ev)
	}
}

// OnNavigate registers fn to be called after every navigation that changed
// the location. Listeners run in registration order. The returned function
// unregisters fn.
func (r *MemoryRouter) OnNavigate(fn func(NavigationEvent)) (unsubscribe func()) {
	r.listenersMu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn
	r.listenersMu.Unlock()

	return func() {
		r.listenersMu.Lock()
		delete(r.listeners, id)
		r.listenersMu.Unlock()
	}
}

// Replacements returns how many times Replace or ReplaceLocation was called,
// including redundant calls.
func (r *MemoryRouter) Replacements() uint64 {
	return r.replaces.Load()
}

// History returns a copy of the history stack and the current index.
func (r *MemoryRouter) History() ([]Location, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Location, len(r.history))
	copy(out, r.history)
	return out, r.index
}
