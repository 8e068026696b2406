package wshandler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"whatsapp-gateway/pkg/notifier"
	"whatsapp-gateway/pkg/notifier/ws"
	"whatsapp-gateway/pkg/utils/id"
)

const (
	readLimit = 512
	pongWait  = 60 * time.Second
)

type WSHandler struct {
	manager  *ws.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWSHandler builds the pairing feed handler. checkOrigin may be nil to
// accept any origin.
func NewWSHandler(manager *ws.Manager, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WSHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.Named("ws-handler"),
	}
}

// HandlePairing upgrades HTTP -> WebSocket and registers the viewer.
// The viewer gets a greeting and every lifecycle message from then on.
func (h *WSHandler) HandlePairing(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := h.manager.Add(id.Generate("viewer"), conn)
	defer h.manager.Remove(c)

	h.manager.Send(c, ws.Message{Event: "message", Data: notifier.MsgConnecting})

	// Reader loop: listen for pongs and client frames
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		c.Touch()
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		c.Touch()
	}
}
