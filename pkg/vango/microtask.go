package vango

import "sync"

// MicrotaskQueue runs deferred functions at the end of a synchronous burst
// of work. The host decides where a burst ends by calling Drain: the session
// event loop drains after every dispatched function, tests and the CLI use
// Tick.
type MicrotaskQueue struct {
	mu    sync.Mutex
	tasks []func()
}

// NewMicrotaskQueue creates an empty queue.
func NewMicrotaskQueue() *MicrotaskQueue {
	return &MicrotaskQueue{}
}

// Defer queues fn to run on the next Drain.
func (q *MicrotaskQueue) Defer(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
}

// Len returns the number of queued functions.
func (q *MicrotaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs queued functions in FIFO order until the queue is empty,
// including functions queued by the ones it runs. Returns how many ran.
func (q *MicrotaskQueue) Drain() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.tasks = nil
			q.mu.Unlock()
			return n
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
		n++
	}
}

// Tick runs fn and then drains the queue.
func (q *MicrotaskQueue) Tick(fn func()) {
	fn()
	q.Drain()
}

var defaultMicrotasks = NewMicrotaskQueue()

// DefaultMicrotasks returns the process-wide queue.
func DefaultMicrotasks() *MicrotaskQueue {
	return defaultMicrotasks
}

// QueueMicrotask defers fn on the process-wide queue.
func QueueMicrotask(fn func()) {
	defaultMicrotasks.Defer(fn)
}

// DrainMicrotasks drains the process-wide queue.
func DrainMicrotasks() int {
	return defaultMicrotasks.Drain()
}

// Tick runs fn and then drains the process-wide queue.
func Tick(fn func()) {
	defaultMicrotasks.Tick(fn)
}
