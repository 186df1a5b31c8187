package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/felixgeelhaar/shiplift/pkg/domain/progress"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The surface serves localhost tooling and the bundled dashboard.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleProgressWS streams progress events to a websocket client. On connect
// the client receives the latest snapshot per kind, then live updates. A
// client that cannot keep up is disconnected by the write deadline.
func (s *Server) handleProgressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := s.publisher.Subscribe()
	defer cancel()

	for _, event := range s.publisher.SnapshotAll() {
		if err := writeEvent(conn, event); err != nil {
			return
		}
	}

	// Inbound messages are discarded; the read pump exists to notice the
	// peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(conn, event); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event progress.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(event)
}
