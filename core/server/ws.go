package server

import (
	"net/http"
	"time"

	"github.com/d2oracle/oracle/core/infra/logging"
	"github.com/d2oracle/oracle/core/oracle"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// handleStream scores every inbound frame and answers with one envelope per frame, in order.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("ws", "upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn("ws", "stream closed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		ctx := oracle.WithRequestID(r.Context(), uuid.NewString())
		reply := s.scoreEnvelope(ctx, data)
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			return
		}
	}
}
