package vango

// Listener is anything that can be notified when a dependency changes.
// This interface is implemented by watchers.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during batch processing.
	ID() uint64
}

// Source is a reactive value that can register the current listener as a
// dependent without handing out its value.
type Source interface {
	Track()
}
