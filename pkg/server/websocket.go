package server

import (
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/querysync/pkg/vango"
)

// ReadLoop continuously reads messages from the websocket connection and
// dispatches them to the event loop. It blocks until the connection is
// closed or an error occurs.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		if timeout := s.config.IdleTimeout(); timeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(timeout))
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
				s.metrics.WebSocketError("read")
			}
			return
		}

		msg, err := DecodeClientMessage(data)
		if err != nil {
			s.logger.Warn("message decode error", "error", err)
			s.metrics.MessageHandled("invalid", "error")
			s.send(errorMessage(err))
			continue
		}

		s.Dispatch(func() { s.handle(msg) })
	}
}

// EventLoop runs dispatched functions until the session is closed, then
// tears the session's reactive state down on the same goroutine.
func (s *Session) EventLoop() {
	defer close(s.loopDone)
	defer vango.ReleaseGoroutine()
	defer s.teardown()

	s.metrics.SessionOpened()
	defer s.metrics.SessionClosed()

	for {
		select {
		case fn := <-s.dispatchCh:
			s.executeDispatch(fn)

		case <-s.done:
			return
		}
	}
}

// executeDispatch runs fn under the session owner with panic recovery,
// drains the microtask queue so pending query writes flush, and publishes
// the resulting state.
func (s *Session) executeDispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	vango.WithOwner(s.owner, func() {
		fn()
		s.queue.Drain()
	})

	s.publish()
}

// send writes msg to the client. Errors are logged; the read loop notices
// a broken connection and closes the session.
func (s *Session) send(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return
	}
	if timeout := s.config.WriteTimeout(); timeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Error("write error", "error", err, "type", msg.Type)
		s.metrics.WebSocketError("write")
	}
}
