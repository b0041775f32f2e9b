package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const defaultSendBuffer = 64

// AccessChecker decides whether a user may follow a project room.
type AccessChecker interface {
	CanAccess(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error)
}

// AccessFunc adapts a function to AccessChecker.
type AccessFunc func(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error)

func (f AccessFunc) CanAccess(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
	return f(ctx, tenantID, userID, projectID)
}

// Frame is the websocket message shape in both directions.
type Frame struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data"`
}

// Hub tracks connected clients and their project rooms. Membership lives in
// memory only.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	access     AccessChecker
	log        *zap.Logger
	gauge      prometheus.Gauge
	sendBuffer int
	now        func() time.Time
}

type HubOption func(*Hub)

// WithConnectionGauge reports the number of open connections to g.
func WithConnectionGauge(g prometheus.Gauge) HubOption {
	return func(h *Hub) { h.gauge = g }
}

// WithSendBuffer sets the per-client outbound queue length.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func NewHub(access AccessChecker, log *zap.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		access:     access,
		log:        log,
		sendBuffer: defaultSendBuffer,
		now:        time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Inc()
	}
}

// unregister removes c from every room, closes its queue and returns the
// rooms it was in. It is safe to call more than once.
func (h *Hub) unregister(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropLocked(c)
}

func (h *Hub) dropLocked(c *Client) []string {
	if _, ok := h.clients[c]; !ok {
		return nil
	}
	delete(h.clients, c)

	left := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		h.leaveLocked(c, room)
		left = append(left, room)
	}
	close(c.send)
	if h.gauge != nil {
		h.gauge.Dec()
	}
	return left
}

func (h *Hub) join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := c.rooms[room]; !ok {
		return false
	}
	h.leaveLocked(c, room)
	return true
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) inRoom(c *Client, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

// ActiveUsers lists the distinct users currently in room.
func (h *Hub) ActiveUsers(room string) []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[uuid.UUID]bool)
	out := make([]map[string]any, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if seen[c.userID] {
			continue
		}
		seen[c.userID] = true
		out = append(out, map[string]any{
			"user_id":   c.userID.String(),
			"user_name": c.username,
			"status":    "online",
		})
	}
	return out
}

// Broadcast sends event to every client in room.
func (h *Hub) Broadcast(room, event string, data map[string]any) {
	h.broadcast(room, event, data, nil)
}

func (h *Hub) broadcast(room, event string, data map[string]any, except *Client) {
	msg, err := sonic.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.log.Error("encode realtime frame", zap.String("event", event), zap.Error(err))
		return
	}

	var dropped []departure
	h.mu.Lock()
	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.log.Warn("dropping slow realtime client",
				zap.String("user_id", c.userID.String()),
				zap.String("room", room),
			)
			dropped = append(dropped, departure{client: c, rooms: h.dropLocked(c)})
		}
	}
	h.mu.Unlock()

	for _, d := range dropped {
		h.announceLeft(d.client, d.rooms)
	}
}

type departure struct {
	client *Client
	rooms  []string
}

// announceLeft tells the remaining members of rooms that c is gone.
func (h *Hub) announceLeft(c *Client, rooms []string) {
	for _, room := range rooms {
		h.Broadcast(room, "user_disconnected", map[string]any{
			"project_id": roomProject(room),
			"user_id":    c.userID.String(),
			"timestamp":  h.timestamp(),
		})
	}
}

// sendTo queues a frame for a single client.
func (h *Hub) sendTo(c *Client, event string, data map[string]any) {
	msg, err := sonic.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		h.log.Error("encode realtime frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	var left []string
	select {
	case c.send <- msg:
	default:
		left = h.dropLocked(c)
	}
	h.mu.Unlock()

	h.announceLeft(c, left)
}

// Connections returns the number of registered clients.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}
