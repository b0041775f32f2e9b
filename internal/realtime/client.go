package realtime

import (
	"context"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lexflow/lexflow-api/internal/modules/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	accessTimeout  = 5 * time.Second
)

// Client is one websocket connection of an authenticated user.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   uuid.UUID
	username string
	tenantID uuid.UUID

	// guarded by hub.mu
	rooms map[string]struct{}
}

func newClient(h *Hub, conn *websocket.Conn, userID, tenantID uuid.UUID, username string) *Client {
	return &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, h.sendBuffer),
		userID:   userID,
		username: username,
		tenantID: tenantID,
		rooms:    make(map[string]struct{}),
	}
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.disconnect()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("realtime read", zap.String("user_id", c.userID.String()), zap.Error(err))
			}
			return
		}
		var f Frame
		if err := sonic.Unmarshal(raw, &f); err != nil || f.Event == "" {
			c.hub.sendTo(c, "error", map[string]any{"message": "invalid frame"})
			continue
		}
		c.handle(ctx, f)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect leaves every room and tells the remaining members.
func (c *Client) disconnect() {
	c.hub.announceLeft(c, c.hub.unregister(c))
}

func (c *Client) handle(ctx context.Context, f Frame) {
	if f.Data == nil {
		f.Data = map[string]any{}
	}
	switch f.Event {
	case "join_project":
		c.joinProject(ctx, f.Data)
	case "leave_project":
		c.leaveProject(f.Data)
	case "task_update":
		c.relay(f.Data, "task", "task_updated", false)
	case "project_update":
		c.relay(f.Data, "project", "project_updated", false)
	case "comment_added":
		c.relay(f.Data, "comment", "comment_added", true)
	case "user_typing":
		c.typing(f.Data)
	case "cursor_position":
		c.cursor(f.Data)
	default:
		c.hub.sendTo(c, "error", map[string]any{"message": "unknown event: " + f.Event})
	}
}

func (c *Client) joinProject(ctx context.Context, data map[string]any) {
	raw, _ := data["project_id"].(string)
	if raw == "" {
		c.fail("user_id and project_id required")
		return
	}
	projectID, err := uuid.Parse(raw)
	if err != nil {
		c.fail("invalid project_id")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, accessTimeout)
	defer cancel()
	ok, err := c.hub.access.CanAccess(ctx, c.tenantID, c.userID, projectID)
	if err != nil {
		c.hub.log.Error("realtime access check", zap.String("project_id", raw), zap.Error(err))
		c.fail("could not verify project access")
		return
	}
	if !ok {
		c.fail("project not found")
		return
	}

	room := service.ProjectRoom(projectID)
	c.hub.join(c, room)

	userName, _ := data["user_name"].(string)
	if userName == "" {
		userName = c.username
	}
	c.hub.broadcast(room, "user_joined", map[string]any{
		"user_id":    c.userID.String(),
		"user_name":  userName,
		"project_id": projectID.String(),
		"timestamp":  c.hub.timestamp(),
	}, c)
	c.hub.sendTo(c, "active_users", map[string]any{
		"project_id": projectID.String(),
		"users":      c.hub.ActiveUsers(room),
	})
}

func (c *Client) leaveProject(data map[string]any) {
	room, pid, ok := c.room(data)
	if !ok {
		return
	}
	if !c.hub.leave(c, room) {
		return
	}
	c.hub.Broadcast(room, "user_left", map[string]any{
		"user_id":    c.userID.String(),
		"project_id": pid,
		"timestamp":  c.hub.timestamp(),
	})
}

// relay forwards a payload field to the room of a project the client has
// joined. includeSelf also echoes it to the sender.
func (c *Client) relay(data map[string]any, field, event string, includeSelf bool) {
	room, pid, ok := c.room(data)
	payload, has := data[field]
	if !ok || !has || payload == nil {
		c.fail("project_id and " + field + " data required")
		return
	}
	if !c.hub.inRoom(c, room) {
		c.fail("join the project first")
		return
	}

	out := map[string]any{
		"project_id": pid,
		field:        payload,
		"timestamp":  c.hub.timestamp(),
	}
	if includeSelf {
		out["added_by"] = c.userID.String()
		c.hub.Broadcast(room, event, out)
		return
	}
	action, _ := data["action"].(string)
	if action == "" {
		action = "update"
	}
	out["action"] = action
	out["updated_by"] = c.userID.String()
	c.hub.broadcast(room, event, out, c)
}

func (c *Client) typing(data map[string]any) {
	room, pid, ok := c.room(data)
	if !ok || !c.hub.inRoom(c, room) {
		return
	}
	isTyping, _ := data["is_typing"].(bool)
	c.hub.broadcast(room, "user_typing_status", map[string]any{
		"project_id": pid,
		"user_id":    c.userID.String(),
		"is_typing":  isTyping,
		"element_id": data["element_id"],
		"timestamp":  c.hub.timestamp(),
	}, c)
}

func (c *Client) cursor(data map[string]any) {
	room, pid, ok := c.room(data)
	position := data["position"]
	if !ok || position == nil || !c.hub.inRoom(c, room) {
		return
	}
	c.hub.broadcast(room, "cursor_position_update", map[string]any{
		"project_id": pid,
		"user_id":    c.userID.String(),
		"position":   position,
		"timestamp":  c.hub.timestamp(),
	}, c)
}

func (c *Client) room(data map[string]any) (room, projectID string, ok bool) {
	raw, _ := data["project_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", "", false
	}
	return service.ProjectRoom(id), id.String(), true
}

func (c *Client) fail(msg string) {
	c.hub.sendTo(c, "error", map[string]any{"message": msg})
}

func roomProject(room string) string {
	return strings.TrimPrefix(room, "project_")
}
