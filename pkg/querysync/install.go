package querysync

import (
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/querysync/internal/errors"
	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

// TracerName is the instrumentation name used when no tracer is configured.
const TracerName = "github.com/vango-dev/querysync"

// ErrRouterNotInstalled is returned, or raised by Use, when location state is
// needed before a router has been bound.
var ErrRouterNotInstalled = errors.New("Q001")

// BindingKey is the owner context key under which a Binding can be published
// for the Synchronizers created beneath that owner.
var BindingKey = &struct{ name string }{"QuerySyncBinding"}

// Scheduler defers a function to the end of the current tick.
type Scheduler interface {
	Defer(fn func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(fn func())

// Defer implements Scheduler.
func (f SchedulerFunc) Defer(fn func()) {
	f(fn)
}

// InstallOption configures a Binding.
type InstallOption func(*bindingConfig)

type bindingConfig struct {
	scheduler Scheduler
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

// WithScheduler sets the scheduler that runs coalesced flushes.
// Default: vango.DefaultMicrotasks().
func WithScheduler(s Scheduler) InstallOption {
	return func(c *bindingConfig) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the binding's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) InstallOption {
	return func(c *bindingConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records binding activity on m.
func WithMetrics(m *Metrics) InstallOption {
	return func(c *bindingConfig) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for flush spans.
// Default: otel.Tracer(TracerName).
func WithTracer(t trace.Tracer) InstallOption {
	return func(c *bindingConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

func newBindingConfig(opts []InstallOption) bindingConfig {
	cfg := bindingConfig{
		scheduler: vango.DefaultMicrotasks(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(TracerName)
	}
	return cfg
}

// Binding ties Synchronizers to one router and one Coalescer.
type Binding struct {
	router    router.Router
	coalescer *Coalescer
	logger    *slog.Logger
	metrics   *Metrics

	mu     sync.Mutex
	active map[string]int
}

// NewBinding creates a Binding for r. Each Binding has its own Coalescer.
func NewBinding(r router.Router, opts ...InstallOption) *Binding {
	cfg := newBindingConfig(opts)
	return &Binding{
		router:    r,
		coalescer: newCoalescer(r, cfg),
		logger:    cfg.logger,
		metrics:   cfg.metrics,
		active:    make(map[string]int),
	}
}

// Router returns the bound router, or ErrRouterNotInstalled.
func (b *Binding) Router() (router.Router, error) {
	if b == nil || b.router == nil {
		return nil, notInstalled()
	}
	return b.router, nil
}

// Coalescer returns the binding's write coalescer.
func (b *Binding) Coalescer() *Coalescer {
	return b.coalescer
}

// ActiveKeys returns how many Synchronizers hold each query key.
func (b *Binding) ActiveKeys() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]int, len(b.active))
	for k, n := range b.active {
		out[k] = n
	}
	return out
}

// acquire marks key active. A second holder is logged, never refused.
func (b *Binding) acquire(key string) {
	b.mu.Lock()
	n := b.active[key]
	b.active[key] = n + 1
	b.mu.Unlock()

	b.metrics.mounted(1)
	if n > 0 {
		b.metrics.recordCollision()
		b.logger.Warn("query key collision",
			"code", "Q002",
			"key", key,
			"active", n+1)
	}
}

func (b *Binding) release(key string) {
	b.mu.Lock()
	if n := b.active[key]; n > 1 {
		b.active[key] = n - 1
	} else {
		delete(b.active, key)
	}
	b.mu.Unlock()

	b.metrics.mounted(-1)
}

var (
	defaultMu      sync.RWMutex
	defaultBinding *Binding
)

// Install binds r as the process-wide router and returns the new default
// Binding. Installing again replaces the previous binding; Synchronizers
// already mounted keep the binding they were created with.
func Install(r router.Router, opts ...InstallOption) *Binding {
	b := NewBinding(r, opts...)
	defaultMu.Lock()
	defaultBinding = b
	defaultMu.Unlock()
	return b
}

// Uninstall clears the process-wide binding.
func Uninstall() {
	defaultMu.Lock()
	defaultBinding = nil
	defaultMu.Unlock()
}

// Default returns the process-wide binding, or ErrRouterNotInstalled.
func Default() (*Binding, error) {
	defaultMu.RLock()
	b := defaultBinding
	defaultMu.RUnlock()
	if b == nil || b.router == nil {
		return nil, notInstalled()
	}
	return b, nil
}

// current resolves the binding for a new Synchronizer: the one published on
// the current owner, else the process-wide one.
func current() (*Binding, error) {
	if b, ok := vango.GetContext(BindingKey).(*Binding); ok && b != nil {
		return b, nil
	}
	return Default()
}

// Use creates a Synchronizer on the binding published under BindingKey, or
// the process-wide binding. It panics with ErrRouterNotInstalled when
// neither exists.
func Use(key string, get func() Value, set func(Value), opts ...Option) *Synchronizer {
	b, err := current()
	if err != nil {
		panic(err)
	}
	return b.Use(key, get, set, opts...)
}

// RequestWrite records a write intent on the process-wide coalescer.
func RequestWrite(key string, v Value) error {
	b, err := Default()
	if err != nil {
		return err
	}
	b.coalescer.RequestWrite(key, v)
	return nil
}

func notInstalled() *errors.Error {
	return errors.New("Q001").
		WithSuggestion("Call querysync.Install(router) at startup, or publish a Binding under querysync.BindingKey")
}
