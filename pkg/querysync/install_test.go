package querysync

import (
	"errors"
	"strings"
	"testing"

	"github.com/vango-dev/querysync/pkg/router"
	"github.com/vango-dev/querysync/pkg/vango"
)

func TestUseBeforeInstallPanics(t *testing.T) {
	Uninstall()
	t.Cleanup(Uninstall)

	if _, err := Default(); !errors.Is(err, ErrRouterNotInstalled) {
		t.Fatalf("Default: got %v, want ErrRouterNotInstalled", err)
	}

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recover: got %v, want an error", r)
		}
		if !errors.Is(err, ErrRouterNotInstalled) {
			t.Errorf("panic: got %v, want ErrRouterNotInstalled", err)
		}
		if !strings.Contains(err.Error(), "Q001") {
			t.Errorf("panic message %q should carry the code", err.Error())
		}
	}()

	store := newTestStore(Absent())
	Use("page", store.get, store.set)
}

func TestRequestWriteBeforeInstall(t *testing.T) {
	Uninstall()
	t.Cleanup(Uninstall)

	if err := RequestWrite("page", Int(1)); !errors.Is(err, ErrRouterNotInstalled) {
		t.Errorf("RequestWrite: got %v, want ErrRouterNotInstalled", err)
	}
}

func TestInstallBindsDefault(t *testing.T) {
	t.Cleanup(Uninstall)

	r := router.NewMemoryRouter(router.MustParseLocation("/?page=2"))
	q := vango.NewMicrotaskQueue()
	installed := Install(r, WithScheduler(q))

	b, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if b != installed {
		t.Error("Default should return the installed binding")
	}

	page := newTestStore(Absent())
	s := Use("page", page.get, page.set)
	defer s.Close()

	if got := page.sig.Peek(); !got.Equal(Int(2)) {
		t.Errorf("store: got %#v, want 2", got)
	}

	if err := RequestWrite("tab", String("a")); err != nil {
		t.Fatalf("RequestWrite: %v", err)
	}
	q.Drain()
	if got, want := url(r), "/?page=2&tab=a"; got != want {
		t.Errorf("url: got %q, want %q", got, want)
	}
}

func TestInstallWithNilRouter(t *testing.T) {
	t.Cleanup(Uninstall)

	Install(nil)
	if _, err := Default(); !errors.Is(err, ErrRouterNotInstalled) {
		t.Errorf("Default: got %v, want ErrRouterNotInstalled", err)
	}
}

func TestUseFindsBindingOnOwner(t *testing.T) {
	Uninstall()
	t.Cleanup(Uninstall)

	b, r, q := newTestBinding(t, "/?page=6")
	root := vango.NewOwner(nil)
	root.SetValue(BindingKey, b)
	child := vango.NewOwner(root)

	page := newTestStore(Absent())
	var s *Synchronizer
	vango.WithOwner(child, func() {
		s = Use("page", page.get, page.set)
	})

	if got := page.sig.Peek(); !got.Equal(Int(6)) {
		t.Errorf("store: got %#v, want 6", got)
	}

	root.Dispose()
	q.Drain()
	if !s.Closed() {
		t.Error("disposing the root owner should close the synchronizer")
	}
	if got := url(r); got != "/" {
		t.Errorf("url: got %q", got)
	}
}

func TestKeyCollisionIsTracked(t *testing.T) {
	b, r, q := newTestBinding(t, "/")
	first := newTestStore(Absent())
	second := newTestStore(Absent())

	s1 := b.Use("page", first.get, first.set)
	s2 := b.Use("page", second.get, second.set)

	if got := b.ActiveKeys()["page"]; got != 2 {
		t.Errorf("holders: got %d, want 2", got)
	}

	first.sig.Set(Int(1))
	q.Drain()
	if got := second.sig.Peek(); !got.Equal(Int(1)) {
		t.Errorf("shared key should propagate: got %#v", got)
	}

	s1.Close()
	if got := b.ActiveKeys()["page"]; got != 1 {
		t.Errorf("holders after close: got %d, want 1", got)
	}
	s2.Close()
	q.Drain()
	if got := url(r); got != "/" {
		t.Errorf("url: got %q", got)
	}
}

func TestSchedulerFunc(t *testing.T) {
	var deferred []func()
	s := SchedulerFunc(func(fn func()) { deferred = append(deferred, fn) })

	r := router.NewMemoryRouter(router.MustParseLocation("/"))
	c := NewCoalescer(r, WithScheduler(s))
	c.RequestWrite("a", Int(1))
	c.RequestWrite("b", Int(2))

	if len(deferred) != 1 {
		t.Fatalf("deferred: got %d, want 1", len(deferred))
	}
	deferred[0]()
	if got := url(r); got != "/?a=1&b=2" {
		t.Errorf("url: got %q", got)
	}
}
