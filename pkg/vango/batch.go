package vango

// Batch groups multiple signal updates into a single notification phase.
// All signal updates within the batch function are collected, deduplicated,
// and then all affected listeners are notified once when the batch completes.
//
// Batches can be nested. Notifications only fire when the outermost batch completes.
//
// Example:
//
//	Batch(func() {
//	    page.Set(1)
//	    tab.Set("orders")
//	})
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			processPendingUpdates()
		}
	}()

	fn()
}

// processPendingUpdates deduplicates and notifies all pending listeners.
func processPendingUpdates() {
	updates := drainPendingUpdates()
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]bool, len(updates))
	unique := make([]Listener, 0, len(updates))

	for _, listener := range updates {
		id := listener.ID()
		if !seen[id] {
			seen[id] = true
			unique = append(unique, listener)
		}
	}

	for _, listener := range unique {
		listener.MarkDirty()
	}
}

// Untracked runs a function without tracking signal reads as dependencies.
//
// Example:
//
//	Untracked(func() {
//	    // Reading count here won't subscribe the current watcher
//	    fmt.Println("Current value:", count.Get())
//	})
//
// For single signal reads, use signal.Peek() instead.
func Untracked(fn func()) {
	old := setCurrentListener(nil)
	defer setCurrentListener(old)
	fn()
}
