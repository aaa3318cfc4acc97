package vango

import (
	"sync"
	"sync/atomic"
)

// disposer is anything an Owner tears down when it is disposed.
type disposer interface {
	Dispose()
}

// Owner represents a component scope that owns reactive primitives.
// When an Owner is disposed, all watchers, cleanups and child owners it
// contains are also disposed.
//
// Owners form a hierarchy that mirrors the component tree: a session owns
// a root Owner and every mounted component owns a child of it.
type Owner struct {
	id uint64

	// parent is the parent Owner in the hierarchy.
	// nil for the root Owner (typically the session).
	parent *Owner

	children   []*Owner
	childrenMu sync.Mutex

	// watchers owned by this scope.
	watchers   []disposer
	watchersMu sync.Mutex

	// cleanups are unmount functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// values stores context values for this scope.
	values   map[any]any
	valuesMu sync.RWMutex

	disposed atomic.Bool
}

// NewOwner creates a new Owner with the given parent.
// The new Owner is automatically registered as a child of the parent.
// If parent is nil, creates a root Owner.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(o)
	}

	return o
}

// ID returns the unique identifier for this Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil if this is a root Owner.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed returns true if this Owner has been disposed.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

func (o *Owner) addChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	o.children = append(o.children, child)
}

func (o *Owner) removeChild(child *Owner) {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()

	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// registerWatcher adds a watcher to this Owner.
// Returns false if the Owner is already disposed.
func (o *Owner) registerWatcher(w disposer) bool {
	if o.disposed.Load() {
		return false
	}

	o.watchersMu.Lock()
	defer o.watchersMu.Unlock()
	o.watchers = append(o.watchers, w)
	return true
}

// OnCleanup registers a cleanup function to run when this Owner is disposed.
// If the Owner is already disposed, fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	if o.disposed.Load() {
		fn()
		return
	}

	o.cleanupsMu.Lock()
	defer o.cleanupsMu.Unlock()
	o.cleanups = append(o.cleanups, fn)
}

// Children returns a snapshot of the child owners.
func (o *Owner) Children() []*Owner {
	o.childrenMu.Lock()
	defer o.childrenMu.Unlock()
	return append([]*Owner(nil), o.children...)
}

// Dispose disposes this Owner and all its children, watchers, and cleanups.
// Children are disposed in reverse order (last created first), then watchers,
// then cleanups in reverse registration order. Dispose is idempotent.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}

	if o.parent != nil {
		o.parent.removeChild(o)
	}

	o.childrenMu.Lock()
	children := o.children
	o.children = nil
	o.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	o.watchersMu.Lock()
	watchers := o.watchers
	o.watchers = nil
	o.watchersMu.Unlock()

	for _, w := range watchers {
		w.Dispose()
	}

	o.cleanupsMu.Lock()
	cleanups := o.cleanups
	o.cleanups = nil
	o.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// OnUnmount registers a function to run when the current owner is disposed.
// Returns false when no owner is set on this goroutine; the caller is then
// responsible for running fn itself.
func OnUnmount(fn func()) bool {
	owner := getCurrentOwner()
	if owner == nil {
		return false
	}
	owner.OnCleanup(fn)
	return true
}
