package webserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// wsWriteWait bounds a single message write to a websocket peer.
const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSink maps the Write/Flush protocol onto websocket messages: writes
// accumulate into the current text message and Flush sends it.
type wsSink struct {
	conn *websocket.Conn
	w    io.WriteCloser
}

func (s *wsSink) Write(p []byte) (int, error) {
	if s.w == nil {
		s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		w, err := s.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return 0, err
		}
		s.w = w
	}
	return s.w.Write(p)
}

func (s *wsSink) Flush() error {
	if s.w == nil {
		return nil
	}
	err := s.w.Close()
	s.w = nil
	return err
}

func (s *Server) handleTimeSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("websocket upgrade failed", "request_id", requestID(r.Context()), "err", err)
		return
	}
	defer conn.Close()

	// A hijacked connection no longer cancels r.Context() on disconnect, so
	// the session gets its own signal driven by the read side.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.runStream(ctx, "websocket", &wsSink{conn: conn})
}
