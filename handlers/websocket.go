package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/campushq/chat-server/auth"
	"github.com/campushq/chat-server/chat"
	"github.com/campushq/chat-server/config"
	"github.com/campushq/chat-server/models"
)

// Client is one live websocket session. It implements chat.Conn: outbound
// events go through a buffered channel so the core never blocks on a slow
// socket, and a dedicated writer goroutine owns all writes.
type Client struct {
	conn     *websocket.Conn
	core     *chat.Core
	id       string
	identity auth.Identity

	sendChan chan models.Event
	doneChan chan struct{}
}

func NewClient(conn *websocket.Conn, core *chat.Core, identity auth.Identity) *Client {
	return &Client{
		conn:     conn,
		core:     core,
		id:       uuid.NewString(),
		identity: identity,
		sendChan: make(chan models.Event, config.SendBufferSize),
		doneChan: make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.identity.UserID }
func (c *Client) Name() string   { return c.identity.Name }

// Send queues an event for delivery. Best-effort by design: when the buffer
// is full the event is dropped and the client reconciles on its next fetch.
func (c *Client) Send(evt models.Event) {
	select {
	case c.sendChan <- evt:
	case <-c.doneChan:
	default:
		slog.Warn("send buffer full, dropping event",
			"user", c.identity.UserID, "conn", c.id, "event", evt.Event)
	}
}

// sendError reports a failed inbound event back to this connection only.
func (c *Client) sendError(event, message, tempID string) {
	c.Send(models.NewEvent(models.EventError, models.ErrorEvent{
		Event:   event,
		Message: message,
		TempID:  tempID,
	}))
}

// readPump reads frames from the socket and dispatches them. Events from a
// single connection are processed in order; there is no ordering guarantee
// across a user's other connections.
func (c *Client) readPump(ctx context.Context) {
	defer close(c.doneChan)

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket read error", "user", c.identity.UserID, "error", err)
			}
			return
		}

		var evt models.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			c.sendError("", "Malformed event", "")
			continue
		}
		c.dispatch(ctx, evt)
	}
}

// dispatch routes one inbound event. Every handler catches at this boundary
// and degrades to an error event; nothing here may take down the process.
func (c *Client) dispatch(ctx context.Context, evt models.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", "event", evt.Event, "user", c.identity.UserID, "panic", r)
			c.sendError(evt.Event, "Internal error", "")
		}
	}()

	switch evt.Event {
	case models.EventJoinChat:
		var p models.JoinChatPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			c.sendError(evt.Event, "Malformed payload", "")
			return
		}
		c.core.Presence.JoinChat(c.identity.UserID, c.identity.Name, p.FriendID)

	case models.EventLeaveChat:
		c.core.Presence.LeaveChat(c.identity.UserID, c.identity.Name)

	case models.EventMessage:
		var p models.SendMessagePayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			c.sendError(evt.Event, "Malformed payload", "")
			return
		}
		if err := c.core.Router.Send(ctx, c, p); err != nil {
			slog.Error("message send failed", "user", c.identity.UserID, "error", err)
			c.sendError(evt.Event, "Failed to send message", p.TempID)
		}

	case models.EventMarkRead:
		var p models.MarkReadPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			c.sendError(evt.Event, "Malformed payload", "")
			return
		}
		if err := c.core.Receipts.MarkRead(ctx, c, p.MessageIDs); err != nil {
			slog.Error("mark read failed", "user", c.identity.UserID, "error", err)
			c.sendError(evt.Event, "Failed to mark messages as read", "")
		}

	case models.EventDeleteMessage:
		var p models.DeleteMessagePayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			c.sendError(evt.Event, "Malformed payload", "")
			return
		}
		if err := c.core.Router.Delete(ctx, c, p.MessageID); err != nil {
			slog.Warn("delete failed", "user", c.identity.UserID, "message_id", p.MessageID, "error", err)
			c.sendError(evt.Event, "Cannot delete this message", "")
		}

	case models.EventTyping:
		var p models.TypingPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return // best-effort path, not worth an error round-trip
		}
		c.core.Typing.Relay(c, p)

	case models.EventGetNotifications:
		if err := c.core.Notifier.GetNotifications(ctx, c); err != nil {
			slog.Error("get notifications failed", "user", c.identity.UserID, "error", err)
			c.sendError(evt.Event, "Failed to get notifications", "")
		}

	case models.EventMarkNotificationsRead:
		var p models.MarkNotificationsReadPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			c.sendError(evt.Event, "Malformed payload", "")
			return
		}
		if err := c.core.Notifier.MarkNotificationsRead(ctx, c, p.NotificationIDs); err != nil {
			slog.Error("mark notifications read failed", "user", c.identity.UserID, "error", err)
			c.sendError(evt.Event, "Failed to mark notifications as read", "")
		}

	default:
		c.sendError(evt.Event, "Unknown event", "")
	}
}

// writePump writes queued events to the socket and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case evt := <-c.sendChan:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				slog.Debug("websocket write error", "user", c.identity.UserID, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.doneChan:
			return
		}
	}
}

// HandleWebSocket manages the lifecycle of one authenticated connection.
// The identity was resolved by middleware before the upgrade and stashed in
// Locals; connections that failed auth never reach this point.
func HandleWebSocket(conn *websocket.Conn, core *chat.Core) {
	identity, ok := conn.Locals("identity").(auth.Identity)
	if !ok || identity.UserID == "" {
		conn.Close()
		return
	}

	client := NewClient(conn, core, identity)
	slog.Info("client connected", "user", identity.UserID, "conn", client.ID())

	core.Connect(client)
	defer func() {
		core.Disconnect(client.ID())
		conn.Close()
		slog.Info("client disconnected", "user", identity.UserID, "conn", client.ID())
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.writePump()
	client.readPump(ctx)
}
