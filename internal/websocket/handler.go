package websocket

import (
	"net/http"

	"agency-portal/internal/chat"
	"agency-portal/internal/domain/user"
	"agency-portal/internal/middleware"
	"agency-portal/internal/services"
	"agency-portal/internal/transport/httpdto"
	"agency-portal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the gateway in front of the portal.
		return true
	},
}

// SessionFactory builds a chat session for an authenticated identity with
// a sink already bound.
type SessionFactory func(identity user.Identity, sink chat.Sink) *chat.Session

// Handler upgrades authenticated portal clients onto the chat session
// protocol.
type Handler struct {
	hub     *Hub
	factory SessionFactory
	actions MessageActions
	log     *logger.Logger
}

func NewHandler(hub *Hub, factory SessionFactory, actions MessageActions, log *logger.Logger) *Handler {
	return &Handler{hub: hub, factory: factory, actions: actions, log: log}
}

func (h *Handler) Serve(c *gin.Context) {
	identity, ok := services.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorf("ws upgrade failed: %v", err)
		}
		return
	}

	// The sink is the client itself, so the session can push deltas as
	// soon as it exists.
	var client *Client
	session := h.factory(identity, chat.SinkFunc(func(event string, payload any) {
		if client != nil {
			client.Push(event, payload)
		}
	}))
	client = NewClient(conn, session, h.actions, h.log)

	h.hub.Register(client)
	middleware.WSConnectionOpened()
	defer func() {
		h.hub.Unregister(client)
		middleware.WSConnectionClosed()
	}()

	ctx := c.Request.Context()
	go client.WriteLoop(ctx)
	client.ReadLoop(ctx)
}
