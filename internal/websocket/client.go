package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"agency-portal/internal/chat"
	"agency-portal/internal/domain/message"
	"agency-portal/internal/domain/user"
	"agency-portal/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageActions is the slice of the message service edits and deletes go
// through. Both are confirmed to the session only via the change feed.
type MessageActions interface {
	Edit(ctx context.Context, actor user.Identity, messageID uuid.UUID, content string) error
	Delete(ctx context.Context, actor user.Identity, messageID uuid.UUID) error
}

// ClientCommand is one inbound frame from the connected portal client.
type ClientCommand struct {
	Action      string               `json:"action"`
	RoomID      string               `json:"room_id,omitempty"`
	MessageID   string               `json:"message_id,omitempty"`
	Content     string               `json:"content,omitempty"`
	Attachments []message.Attachment `json:"attachments,omitempty"`
	Pinned      bool                 `json:"pinned,omitempty"`
	IsTyping    bool                 `json:"is_typing,omitempty"`
}

// ServerFrame is one outbound frame: a session state delta or an error.
type ServerFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Client is one WebSocket connection. It feeds inbound commands to its
// session and implements chat.Sink for the outbound direction.
type Client struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	session *chat.Session
	actions MessageActions
	log     *logger.Logger

	writeMu sync.Mutex
}

func NewClient(conn *websocket.Conn, session *chat.Session, actions MessageActions, log *logger.Logger) *Client {
	return &Client{
		ID:      session.ConnectionID(),
		Conn:    conn,
		Send:    make(chan []byte, 256),
		session: session,
		actions: actions,
		log:     log,
	}
}

// Push implements chat.Sink.
func (c *Client) Push(event string, payload any) {
	data, err := json.Marshal(ServerFrame{Event: event, Data: payload})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		// Slow consumer; frame dropped rather than blocking the feed.
	}
}

func (c *Client) pushError(action string, err error) {
	data, merr := json.Marshal(ServerFrame{Event: "error", Data: map[string]string{"action": action}, Error: err.Error()})
	if merr != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// ReadLoop consumes commands until the connection closes.
func (c *Client) ReadLoop(ctx context.Context) {
	defer c.session.Close(context.WithoutCancel(ctx))

	c.Conn.SetReadLimit(64 << 10)
	_ = c.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			c.pushError("", err)
			continue
		}
		c.handle(ctx, cmd)
	}
}

func (c *Client) handle(ctx context.Context, cmd ClientCommand) {
	switch cmd.Action {
	case "open_room":
		roomID, err := uuid.Parse(cmd.RoomID)
		if err != nil {
			c.pushError(cmd.Action, err)
			return
		}
		if err := c.session.OpenRoom(ctx, roomID); err != nil {
			c.pushError(cmd.Action, err)
		}

	case "send_message":
		_, err := c.session.Send(ctx, chat.SendInput{
			Content:     cmd.Content,
			Attachments: cmd.Attachments,
		})
		if err != nil {
			c.pushError(cmd.Action, err)
		}

	case "edit_message":
		id, err := uuid.Parse(cmd.MessageID)
		if err != nil {
			c.pushError(cmd.Action, err)
			return
		}
		if err := c.actions.Edit(ctx, c.session.User(), id, cmd.Content); err != nil {
			c.pushError(cmd.Action, err)
		}

	case "delete_message":
		id, err := uuid.Parse(cmd.MessageID)
		if err != nil {
			c.pushError(cmd.Action, err)
			return
		}
		if err := c.actions.Delete(ctx, c.session.User(), id); err != nil {
			c.pushError(cmd.Action, err)
		}

	case "load_older":
		if err := c.session.LoadOlder(ctx); err != nil {
			c.pushError(cmd.Action, err)
		}

	case "mark_read":
		if err := c.session.MarkRead(ctx); err != nil {
			c.pushError(cmd.Action, err)
		}

	case "typing":
		if err := c.session.Typing(ctx, cmd.IsTyping); err != nil && c.log != nil {
			c.log.Errorf("typing indicator failed: %v", err)
		}

	case "set_pinned":
		c.session.SetPinned(cmd.Pinned)

	case "jump_to_bottom":
		c.session.JumpToBottom()

	default:
		if c.log != nil {
			c.log.Warnf("unknown ws action %q", cmd.Action)
		}
	}
}

// WriteLoop drains the Send channel and keeps the connection alive.
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.close()
				return
			}
			c.writeMu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-ticker.C:
			c.writeMu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.writeMu.Lock()
	_ = c.Conn.Close()
	c.writeMu.Unlock()
}
