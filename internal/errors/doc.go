// Package errors provides structured, coded errors for querysync.
//
// Every error has a registered code (e.g. "Q001") that maps to a category,
// a short message, a detailed explanation and a documentation URL.
//
// # Error Categories
//
//   - runtime: startup-ordering and synchronization problems
//   - config: configuration file problems
//   - protocol: malformed client messages and locations
//
// # Usage
//
//	err := errors.New("Q001").
//	    WithSuggestion("Call querysync.Install(router) during startup")
//
//	fmt.Println(err.Format())
//
// Errors compare by code with errors.Is, so a freshly built error matches a
// package-level sentinel with the same code:
//
//	if errors.Is(err, querysync.ErrRouterNotInstalled) { ... }
package errors
