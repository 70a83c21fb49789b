package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/relay"
)

// SignalWSHandler upgrades signaling connections and pumps envelopes between
// the socket and the relay hub.
// Path: /ws/signal?user_id=&email=&role=&company=
// Identity is supplied by the identity service upstream; it arrives here
// already authenticated.
type SignalWSHandler struct {
	hub      *relay.Hub
	upgrader websocket.Upgrader
	maxMsg   int64
	logger   *zap.Logger
}

// NewSignalWSHandler creates the signaling WebSocket handler.
func NewSignalWSHandler(hub *relay.Hub, readBuf, writeBuf int, maxMessageSize int64, logger *zap.Logger) *SignalWSHandler {
	return &SignalWSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			// Allow all origins for dev; in prod set CheckOrigin.
		},
		maxMsg: maxMessageSize,
		logger: logger,
	}
}

// ServeWS upgrades the request and runs the read loop until the socket drops.
func (h *SignalWSHandler) ServeWS(c *gin.Context) {
	id := model.Identity{
		UserID:  c.Query("user_id"),
		Email:   c.Query("email"),
		Role:    model.Role(c.Query("role")),
		Company: c.Query("company"),
	}
	if id.UserID == "" || id.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and email required"})
		return
	}
	if id.Role != model.RoleOperator && id.Role != model.RoleCapturer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be operator or capturer"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	if h.maxMsg > 0 {
		conn.SetReadLimit(h.maxMsg)
	}

	client := relay.NewClient(id)
	h.hub.Connect(client)

	go h.writePump(client, conn)
	h.readPump(client, conn)
}

func (h *SignalWSHandler) readPump(client *relay.Client, conn *websocket.Conn) {
	defer h.hub.Disconnect(client)
	for {
		var env model.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("read error", zap.String("socket_id", client.ID), zap.Error(err))
			}
			return
		}
		h.hub.Dispatch(client, env)
	}
}

// writePump drains the hub's send queue into the connection. The hub closes
// client.Send on disconnect, which ends the loop.
func (h *SignalWSHandler) writePump(client *relay.Client, conn *websocket.Conn) {
	defer conn.Close()
	for env := range client.Send {
		if err := conn.WriteJSON(env); err != nil {
			return
		}
	}
}
