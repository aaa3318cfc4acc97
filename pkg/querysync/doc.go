// Package querysync keeps a store value synchronized, in both directions,
// with one named parameter of the current URL's query string.
//
// A Synchronizer owns the mapping between a get/set pair and one query key.
// All Synchronizers bound to the same Binding share one Coalescer, which
// collects the query writes requested during a tick and applies them as a
// single router replace, merged with the parameters nobody touched.
//
// # Installation
//
// Bind the router once at startup, before any Synchronizer is constructed:
//
//	r := router.NewMemoryRouter(router.MustParseLocation("/users?page=2"))
//	querysync.Install(r, querysync.WithScheduler(vango.DefaultMicrotasks()))
//
// Constructing a Synchronizer before Install panics with the Q001 error.
// Servers that host many independent pages create one Binding per page with
// NewBinding and either call (*Binding).Use directly or publish the Binding
// on an owner under BindingKey.
//
// # Synchronizing a Value
//
//	page := vango.NewSignal(querysync.Absent())
//	s := querysync.Use("page", page.Get, page.Set, querysync.WithContext("users"))
//	defer s.Close()
//
// The effective query key is "users_page". Query values are coerced on the
// way in: "" stays the empty string, numeric strings become numbers, and
// anything else stays a string.
//
// # Ticks
//
// The Coalescer arms one deferred flush through its Scheduler on the first
// write of a batch. With vango.MicrotaskQueue as the scheduler, the flush
// runs when the host drains the queue:
//
//	vango.Tick(func() {
//	    page.Set(querysync.Int(3))
//	    tab.Set(querysync.String("orders"))
//	}) // one router.Replace with both changes
package querysync
