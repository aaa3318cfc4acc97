// Package server serves query-synchronized sessions over websockets.
//
// Each websocket connection gets a Session with its own memory router,
// microtask queue, querysync.Binding and root vango.Owner. The session
// mounts one Synchronizer per configured param, each backed by a store
// signal whose setter clamps and type-checks values.
//
// # Architecture
//
// A Session runs two goroutines:
//   - ReadLoop: decodes client messages and dispatches them
//   - EventLoop: runs dispatched functions, drains the microtask queue so
//     coalesced query writes flush, then reports state
//
// All reactive state of a session is touched only by its EventLoop.
//
// # Protocol
//
// Messages are JSON text frames. The client sends:
//
//	{"type":"hello","url":"/users?page=2"}
//	{"type":"navigate","url":"/users?page=5"}
//	{"type":"set","param":"page","value":"7"}
//	{"type":"clear","param":"page"}
//	{"type":"unmount","param":"page"}
//
// The server answers with {"type":"replace","url":...} for every URL
// replace the session performs and {"type":"state",...} after every
// message. Malformed messages produce {"type":"error",...} with code Q020.
//
// # HTTP Routes
//
//	GET /ws        websocket endpoint
//	GET /healthz   liveness and session count
//	GET /state     snapshot of every session
//	GET /metrics   Prometheus metrics (path configurable)
package server
