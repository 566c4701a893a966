package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"boardgame-rental-backend/internal/broadcast"
	"boardgame-rental-backend/internal/domain"
	"boardgame-rental-backend/internal/logger"
	"boardgame-rental-backend/internal/security"
	"boardgame-rental-backend/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
)

// Subscriber is the local fan-out the push channel attaches to.
type Subscriber interface {
	Subscribe() (*broadcast.Subscription, func())
}

// WSHandler streams inventory and rental changes to connected clients.
type WSHandler struct {
	tokenManager security.TokenManager
	snapshots    service.SnapshotService
	hub          Subscriber
	upgrader     websocket.Upgrader
}

func NewWSHandler(tm security.TokenManager, snapshots service.SnapshotService, hub Subscriber) *WSHandler {
	return &WSHandler{
		tokenManager: tm,
		snapshots:    snapshots,
		hub:          hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Clients authenticate with a bearer token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func wsToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return bearerToken(r)
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	caller, authErr := h.tokenManager.Authenticate(wsToken(r))

	if !websocket.IsWebSocketUpgrade(r) {
		if authErr != nil {
			writeError(w, r, authErr)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "websocket upgrade required"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		logger.WarnContext(r.Context(), "WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	if authErr != nil {
		logger.WarnContext(r.Context(), "Rejected push channel subscriber", "remote", r.RemoteAddr, "error", authErr)
		closeWith(conn, websocket.ClosePolicyViolation, "invalid credentials")
		return
	}

	h.stream(r, conn, caller)
}

func (h *WSHandler) stream(r *http.Request, conn *websocket.Conn, caller domain.Caller) {
	// Subscribe before reading the snapshot so no committed change falls
	// between the two; a duplicate event is harmless.
	sub, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	log := logger.WithComponent("ws").With("subscriber_id", sub.ID, "user_id", caller.UserID)
	log.Info("Subscriber connected", "role", caller.Role)

	snap, err := h.snapshots.Snapshot(r.Context())
	if err != nil {
		log.Error("Failed to build snapshot", "error", err)
		closeWith(conn, websocket.CloseInternalServerErr, "snapshot unavailable")
		return
	}
	if err := writeEvent(conn, broadcast.SnapshotEvent(snap)); err != nil {
		log.Warn("Failed to send snapshot", "error", err)
		return
	}

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				log.Warn("Subscriber fell behind, disconnecting")
				closeWith(conn, websocket.CloseTryAgainLater, "subscriber fell behind")
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				log.Debug("Subscriber write failed", "error", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("Subscriber ping failed", "error", err)
				return
			}
		case <-done:
			log.Info("Subscriber disconnected")
			return
		}
	}
}

// readPump consumes control frames so pongs and close frames are processed.
// Clients send nothing else; any data frame is discarded.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev broadcast.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		logger.Debug("Failed to send close frame", "code", code, "error", err)
	}
}
