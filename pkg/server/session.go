package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/querysync/internal/config"
	"github.com/vango-dev/querysync/pkg/middleware"
	"github.com/vango-dev/querysync/pkg/querysync"
	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

// DispatchQueueSize is the capacity of a session's dispatch channel.
const DispatchQueueSize = 64

// Session is one websocket client with its own router and synchronizers.
type Session struct {
	// ID is a random identifier of the session.
	ID string

	conn   *websocket.Conn
	config *config.Config
	logger *slog.Logger

	metrics   *middleware.Metrics
	qsMetrics *querysync.Metrics
	tracer    trace.Tracer

	// Reactive state, owned by the event loop.
	owner   *vango.Owner
	queue   *vango.MicrotaskQueue
	router  *router.MemoryRouter
	binding *querysync.Binding
	params  []*Param
	byKey   map[string]*Param
	syncs   map[string]*querysync.Synchronizer
	stopNav func()

	dispatchCh chan func()
	done       chan struct{}
	closed     atomic.Bool
	loopDone   chan struct{}

	// writeMu serializes websocket writes.
	writeMu sync.Mutex

	// state is the snapshot published after every dispatch.
	stateMu sync.RWMutex
	state   SessionState

	// CreatedAt is when the session was created.
	CreatedAt time.Time
}

// SessionState is a point-in-time view of a session.
type SessionState struct {
	ID      string            `json:"id"`
	URL     string            `json:"url,omitempty"`
	Values  map[string]string `json:"values,omitempty"`
	Flushes uint64            `json:"flushes"`
}

func newSession(conn *websocket.Conn, cfg *config.Config, logger *slog.Logger, metrics *middleware.Metrics, qsMetrics *querysync.Metrics, tracer trace.Tracer) *Session {
	id := generateSessionID()
	s := &Session{
		ID:         id,
		conn:       conn,
		config:     cfg,
		logger:     logger.With("session", id),
		metrics:    metrics,
		qsMetrics:  qsMetrics,
		tracer:     tracer,
		owner:      vango.NewOwner(nil),
		queue:      vango.NewMicrotaskQueue(),
		byKey:      make(map[string]*Param),
		syncs:      make(map[string]*querysync.Synchronizer),
		dispatchCh: make(chan func(), DispatchQueueSize),
		done:       make(chan struct{}),
		loopDone:   make(chan struct{}),
		CreatedAt:  time.Now(),
	}
	s.state = SessionState{ID: id}

	for _, pc := range cfg.Params {
		p := NewParam(pc)
		s.params = append(s.params, p)
		s.byKey[p.Key()] = p
	}
	return s
}

// Start starts the read and event loops.
func (s *Session) Start() {
	go s.EventLoop()
	go s.ReadLoop()
}

// Dispatch queues a function to run on the session's event loop.
// After it returns, the microtask queue is drained and state is reported.
func (s *Session) Dispatch(fn func()) {
	if s.closed.Load() {
		return
	}
	select {
	case s.dispatchCh <- fn:
	case <-s.done:
	default:
		s.logger.Warn("dispatch queue full, discarding callback")
	}
}

// State returns the last published snapshot.
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Close stops the session. Reactive teardown runs on the event loop.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)

	s.writeMu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.conn.Close()
	s.writeMu.Unlock()
}

// Done returns a channel that's closed when the session's event loop has
// torn down its synchronizers.
func (s *Session) Done() <-chan struct{} {
	return s.loopDone
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// handle runs one client message on the event loop.
func (s *Session) handle(msg ClientMessage) {
	_, span := s.tracer.Start(context.Background(), "querysync.message",
		trace.WithAttributes(
			attribute.String("querysync.session", s.ID),
			attribute.String("querysync.message_type", msg.Type),
		),
	)
	defer span.End()

	if err := s.apply(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.MessageHandled(msg.Type, "error")
		s.logger.Warn("message rejected", "type", msg.Type, "error", err)
		s.send(errorMessage(err))
		return
	}
	span.SetStatus(codes.Ok, "")
	s.metrics.MessageHandled(msg.Type, "ok")
}

func (s *Session) apply(msg ClientMessage) error {
	if msg.Type == MsgHello {
		return s.hello(msg.URL)
	}
	if s.router == nil {
		return badMessage("send hello first")
	}

	switch msg.Type {
	case MsgNavigate:
		return s.router.Navigate(msg.URL)

	case MsgSet:
		p, err := s.param(msg.Param)
		if err != nil {
			return err
		}
		p.Set(querysync.ParseQueryValue(*msg.Value))

	case MsgClear:
		p, err := s.param(msg.Param)
		if err != nil {
			return err
		}
		p.Set(querysync.Absent())

	case MsgUnmount:
		qs, ok := s.syncs[msg.Param]
		if !ok {
			return badMessage("param " + msg.Param + " is not mounted")
		}
		qs.Close()
		delete(s.syncs, msg.Param)
	}
	return nil
}

// hello positions the router at raw and mounts every param. A second
// hello replaces the location of the running session.
func (s *Session) hello(raw string) error {
	loc, err := router.ParseLocation(raw)
	if err != nil {
		return err
	}

	if s.router != nil {
		s.router.ReplaceLocation(loc)
		return nil
	}

	s.router = router.NewMemoryRouter(loc, router.WithLogger(s.logger))
	s.binding = querysync.NewBinding(s.router,
		querysync.WithScheduler(s.queue),
		querysync.WithLogger(s.logger),
		querysync.WithMetrics(s.qsMetrics),
		querysync.WithTracer(s.tracer),
	)
	s.owner.SetValue(querysync.BindingKey, s.binding)

	s.stopNav = s.router.OnNavigate(func(ev router.NavigationEvent) {
		if ev.Kind == router.NavigationReplace {
			s.send(ServerMessage{Type: MsgReplace, URL: ev.To.String()})
		}
	})

	for _, p := range s.params {
		var opts []querysync.Option
		opts = append(opts, querysync.WithContext(p.cfg.Context))
		if len(p.cfg.Deps) > 0 {
			deps := make([]vango.Source, 0, len(p.cfg.Deps))
			for _, key := range p.cfg.Deps {
				if dep, ok := s.byKey[key]; ok {
					deps = append(deps, dep)
				}
			}
			opts = append(opts, querysync.WithDeps(deps...))
		}
		s.syncs[p.Key()] = querysync.Use(p.cfg.Key, p.Get, p.Set, opts...)
	}

	s.logger.Info("session mounted", "url", loc.String(), "params", len(s.params))
	return nil
}

func (s *Session) param(key string) (*Param, error) {
	p, ok := s.byKey[key]
	if !ok {
		return nil, badMessage("unknown param " + key)
	}
	return p, nil
}

// publish records and sends the current state.
func (s *Session) publish() {
	st := SessionState{ID: s.ID}
	if s.router != nil {
		st.URL = s.router.Peek().String()
		st.Flushes = s.binding.Coalescer().Flushes()
		st.Values = make(map[string]string, len(s.params))
		for _, p := range s.params {
			if v := p.Peek(); !v.IsAbsent() {
				st.Values[p.Key()] = v.String()
			}
		}
	}

	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()

	if s.router != nil {
		s.send(ServerMessage{Type: MsgState, URL: st.URL, Values: st.Values})
	}
}

// teardown disposes the session's reactive state. Runs on the event loop.
func (s *Session) teardown() {
	s.owner.Dispose()
	if s.stopNav != nil {
		s.stopNav()
	}
	s.logger.Info("session closed", "url", s.State().URL)
}

func generateSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("session-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
