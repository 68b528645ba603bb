package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quizstack/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// streamCommand is an event sent by the client over the socket
type streamCommand struct {
	Action string `json:"action"`
	Option string `json:"option,omitempty"`
}

// StreamHandler pushes session snapshots over a websocket and accepts
// answer, skip and undo commands on the same connection.
type StreamHandler struct {
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewStreamHandler creates a stream handler. allowedOrigins empty accepts any origin.
func NewStreamHandler(allowedOrigins []string, log *zap.Logger) *StreamHandler {
	return &StreamHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
		log: log,
	}
}

// Stream upgrades the request and relays snapshots until the session ends
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		respondWithError(h.log, w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.String("session_id", session.ID), zap.Error(err))
		return
	}

	updates, cancel := session.Subscribe()
	done := make(chan struct{})

	go h.readPump(conn, session, done)
	h.writePump(conn, updates, done)

	cancel()
	conn.Close()
}

// readPump applies client commands. Snapshots reach the client through the
// subscription, so commands get no direct reply.
func (h *StreamHandler) readPump(conn *websocket.Conn, session *service.Session, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Websocket read error", zap.String("session_id", session.ID), zap.Error(err))
			}
			return
		}

		var cmd streamCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			h.log.Debug("Ignoring malformed stream command", zap.Error(err))
			continue
		}
		switch cmd.Action {
		case "answer":
			session.Submit(cmd.Option)
		case "skip":
			session.Skip()
		case "undo":
			session.Undo()
		default:
			h.log.Debug("Ignoring unknown stream command", zap.String("action", cmd.Action))
		}
	}
}

func (h *StreamHandler) writePump(conn *websocket.Conn, updates <-chan service.Snapshot, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case snapshot, ok := <-updates:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"))
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
