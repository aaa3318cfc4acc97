// Package router provides the navigation collaborator used by querysync.
//
// A Router exposes the current location's query as a reactive read and one
// mutation, Replace, that swaps the query without pushing a history entry:
//
//	type Router interface {
//	    Query() Query
//	    Replace(q Query)
//	}
//
// MemoryRouter is the reference implementation. It keeps a history stack,
// supports external navigations (Push, Navigate, Back, Forward), and backs
// its current location with a vango.Signal so watchers observing Query() are
// notified synchronously when a navigation changes it.
//
// # Query Model
//
// Query is a flat string-to-string mapping. Multi-valued parameters are not
// supported: when parsing, only the first value of a repeated key is kept.
//
//	q, _ := router.ParseQuery("page=2&tab=users")
//	v, ok := q.Lookup("page") // "2", true
package router
