package querysync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

// Coalescer collects query writes requested during one tick and applies
// them as a single router replace, merged into the current query.
//
// For each key only the most recent intent of the tick survives: an upsert
// cancels an earlier delete of the same key and a delete cancels an earlier
// upsert.
type Coalescer struct {
	router    router.Router
	scheduler Scheduler
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer

	mu        sync.Mutex
	upserts   map[string]Value
	deletes   map[string]struct{}
	scheduled bool

	flushes atomic.Uint64
}

// NewCoalescer creates a standalone coalescer for r. Bindings create their
// own; use this only to drive a router without Synchronizers.
func NewCoalescer(r router.Router, opts ...InstallOption) *Coalescer {
	return newCoalescer(r, newBindingConfig(opts))
}

func newCoalescer(r router.Router, cfg bindingConfig) *Coalescer {
	return &Coalescer{
		router:    r,
		scheduler: cfg.scheduler,
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
		upserts:   make(map[string]Value),
		deletes:   make(map[string]struct{}),
	}
}

// RequestWrite records that key should be set to v at the end of the tick.
// An absent v requests removal of key. The first call of a batch arms one
// deferred flush.
//
// It panics with ErrRouterNotInstalled when the coalescer has no router.
func (c *Coalescer) RequestWrite(key string, v Value) {
	if c.router == nil {
		panic(notInstalled())
	}

	op := "upsert"
	c.mu.Lock()
	if v.IsAbsent() {
		op = "delete"
		delete(c.upserts, key)
		c.deletes[key] = struct{}{}
	} else {
		c.upserts[key] = v
		delete(c.deletes, key)
	}
	arm := !c.scheduled
	c.scheduled = true
	c.mu.Unlock()

	c.metrics.recordWrite(op)
	if arm {
		c.scheduler.Defer(c.flush)
	}
}

// Pending returns the number of keys with a pending intent.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.upserts) + len(c.deletes)
}

// Intent returns the pending intent for key: the value to write, or Absent
// for a delete. ok is false when key has no pending intent.
func (c *Coalescer) Intent(key string) (v Value, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.upserts[key]; ok {
		return v, true
	}
	_, ok = c.deletes[key]
	return Absent(), ok
}

// Flushes returns how many coalesced replaces have been issued.
func (c *Coalescer) Flushes() uint64 {
	return c.flushes.Load()
}

// flush applies the pending intents with one router replace. The tables are
// detached first, so writes requested by watchers reacting to the replace
// land in the next batch, which is armed once the replace returns.
func (c *Coalescer) flush() {
	c.mu.Lock()
	upserts, deletes := c.upserts, c.deletes
	c.upserts = make(map[string]Value)
	c.deletes = make(map[string]struct{})
	c.mu.Unlock()

	defer c.rearm()

	var current router.Query
	vango.Untracked(func() { current = c.router.Query() })

	next := current.Clone()
	for key := range deletes {
		if _, ok := upserts[key]; !ok {
			delete(next, key)
		}
	}
	for key, v := range upserts {
		next[key] = v.String()
	}
	redundant := next.Equal(current)

	_, span := c.tracer.Start(context.Background(), "querysync.flush",
		trace.WithAttributes(
			attribute.Int("querysync.upserts", len(upserts)),
			attribute.Int("querysync.deletes", len(deletes)),
			attribute.Bool("querysync.redundant", redundant),
		),
	)
	defer span.End()

	c.logger.Debug("query flush",
		"upserts", len(upserts),
		"deletes", len(deletes),
		"redundant", redundant,
		"query", next.Encode())

	c.router.Replace(next)

	c.flushes.Add(1)
	c.metrics.recordFlush(len(upserts)+len(deletes), redundant)
}

func (c *Coalescer) rearm() {
	c.mu.Lock()
	pending := len(c.upserts)+len(c.deletes) > 0
	c.scheduled = pending
	c.mu.Unlock()

	if pending {
		c.scheduler.Defer(c.flush)
	}
}
