// Package middleware provides the HTTP middleware of the querysync server.
//
// This package includes:
//   - Prometheus metrics for HTTP requests, websocket sessions and client messages
//   - OpenTelemetry tracing for HTTP requests
//
// Both are plain func(http.Handler) http.Handler values and plug into chi:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("querysync"))
//	r := chi.NewRouter()
//	r.Use(m.Handler)
//	r.Use(middleware.OpenTelemetry(middleware.WithTracerName("querysync")))
//
// Routes are labelled by their chi pattern, not the raw path, so label
// cardinality stays bounded.
//
// # Session Metrics
//
// The server reports websocket activity on the same Metrics:
//
//	m.SessionOpened()
//	defer m.SessionClosed()
//	m.MessageHandled("set", "ok")
//
// A nil *Metrics records nothing.
package middleware
