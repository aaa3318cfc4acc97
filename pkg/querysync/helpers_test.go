package querysync

import (
	"testing"

	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

// newTestBinding returns a binding on a memory router at raw whose flushes
// run when the returned queue is drained.
func newTestBinding(t *testing.T, raw string, opts ...InstallOption) (*Binding, *router.MemoryRouter, *vango.MicrotaskQueue) {
	t.Helper()
	r := router.NewMemoryRouter(router.MustParseLocation(raw))
	q := vango.NewMicrotaskQueue()
	b := NewBinding(r, append([]InstallOption{WithScheduler(q)}, opts...)...)
	return b, r, q
}

// testStore is a Value signal with an optional adjusting setter.
type testStore struct {
	sig    *vango.Signal[Value]
	adjust func(Value) Value
	sets   int
}

func newTestStore(initial Value) *testStore {
	return &testStore{sig: vango.NewSignal(initial)}
}

func (s *testStore) get() Value {
	return s.sig.Get()
}

func (s *testStore) set(v Value) {
	s.sets++
	if s.adjust != nil {
		v = s.adjust(v)
	}
	s.sig.Set(v)
}

// clampTo returns an adjuster that keeps numbers within [min, max].
func clampTo(min, max float64) func(Value) Value {
	return func(v Value) Value {
		n, ok := v.Num()
		if !ok {
			return v
		}
		if n < min {
			return Number(min)
		}
		if n > max {
			return Number(max)
		}
		return v
	}
}

func url(r *router.MemoryRouter) string {
	return r.Peek().String()
}
