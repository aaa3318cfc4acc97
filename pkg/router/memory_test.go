package router

import (
	"testing"

	"github.com/vango-dev/querysync/pkg/vango"
)

func TestMemoryRouterReplace(t *testing.T) {
	r := NewMemoryRouter(MustParseLocation("/list?page=1"))

	var events []NavigationEvent
	unsubscribe := r.OnNavigate(func(ev NavigationEvent) {
		events = append(events, ev)
	})

	r.Replace(Query{"page": "2"})
	if got := r.Peek().String(); got != "/list?page=2" {
		t.Errorf("after Replace: got %q", got)
	}
	history, index := r.History()
	if len(history) != 1 || index != 0 {
		t.Errorf("Replace should not push: history %v index %d", history, index)
	}
	if len(events) != 1 || events[0].Kind != NavigationReplace {
		t.Fatalf("events: got %+v", events)
	}
	if events[0].From.String() != "/list?page=1" || events[0].To.String() != "/list?page=2" {
		t.Errorf("event: got %s -> %s", events[0].From, events[0].To)
	}

	// Redundant replace is counted but not committed.
	r.Replace(Query{"page": "2"})
	if len(events) != 1 {
		t.Errorf("redundant replace should not notify, got %d events", len(events))
	}
	if got := r.Replacements(); got != 2 {
		t.Errorf("Replacements: got %d, want 2", got)
	}

	unsubscribe()
	r.Replace(Query{"page": "3"})
	if len(events) != 1 {
		t.Errorf("unsubscribed listener was called")
	}
}

func TestMemoryRouterReplaceCopiesQuery(t *testing.T) {
	r := NewMemoryRouter(MustParseLocation("/"))
	q := Query{"page": "2"}
	r.Replace(q)
	q["page"] = "5"

	if got := r.Peek().String(); got != "/?page=2" {
		t.Errorf("router should keep its own copy: got %q", got)
	}
}

func TestMemoryRouterHistory(t *testing.T) {
	r := NewMemoryRouter(MustParseLocation("/?page=1"))

	if err := r.Navigate("/?page=2"); err != nil {
		t.Fatal(err)
	}
	if err := r.Navigate("/?page=3"); err != nil {
		t.Fatal(err)
	}

	if !r.Back() {
		t.Fatal("Back should succeed")
	}
	if got := r.Peek().String(); got != "/?page=2" {
		t.Errorf("after Back: got %q", got)
	}

	if err := r.Navigate("/?page=4", WithReplace()); err != nil {
		t.Fatal(err)
	}
	if !r.Forward() {
		t.Fatal("Forward should succeed")
	}
	if got := r.Peek().String(); got != "/?page=3" {
		t.Errorf("after Forward: got %q", got)
	}
	if r.Forward() {
		t.Error("Forward past the end should fail")
	}

	r.Back()
	if got := r.Peek().String(); got != "/?page=4" {
		t.Errorf("replaced entry: got %q", got)
	}

	// Push truncates forward history.
	r.Push(MustParseLocation("/other"))
	history, index := r.History()
	if len(history) != 3 || index != 2 {
		t.Errorf("history after push: %v index %d", history, index)
	}
	if r.Forward() {
		t.Error("push should drop forward entries")
	}

	r.Back()
	r.Back()
	if r.Back() {
		t.Error("Back past the start should fail")
	}
}

func TestMemoryRouterNavigateError(t *testing.T) {
	r := NewMemoryRouter(MustParseLocation("/"))
	if err := r.Navigate("/?x=%zz"); err == nil {
		t.Error("Navigate should reject a bad location")
	}
	if _, index := r.History(); index != 0 {
		t.Errorf("failed navigation moved history to %d", index)
	}
}

func TestMemoryRouterQueryIsReactive(t *testing.T) {
	r := NewMemoryRouter(MustParseLocation("/?page=1"))
	owner := vango.NewOwner(nil)
	defer owner.Dispose()

	var seen []string
	vango.WithOwner(owner, func() {
		vango.Watch(func() string {
			v, _ := r.Query().Lookup("page")
			return v
		}, func(page, _ string) {
			seen = append(seen, page)
		})
	})

	r.Navigate("/?page=2")
	r.Replace(Query{"page": "3"})
	r.Back()

	want := []string{"2", "3", "1"}
	if len(seen) != len(want) {
		t.Fatalf("seen: got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d]: got %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestNavigationKindString(t *testing.T) {
	tests := []struct {
		kind NavigationKind
		want string
	}{
		{NavigationPush, "push"},
		{NavigationReplace, "replace"},
		{NavigationPop, "pop"},
		{NavigationKind(0), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String(): got %q, want %q", tt.kind, got, tt.want)
		}
	}
}
