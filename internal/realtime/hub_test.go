package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/service"
)

type MockAccess struct {
	mock.Mock
}

func (m *MockAccess) CanAccess(ctx context.Context, tenantID, userID, projectID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, userID, projectID)
	return args.Bool(0), args.Error(1)
}

func decode(t *testing.T, raw []byte) Frame {
	t.Helper()
	var f Frame
	require.NoError(t, sonic.Unmarshal(raw, &f))
	return f
}

func TestHub_BroadcastOnlyToRoom(t *testing.T) {
	h := NewHub(&MockAccess{}, zap.NewNop())
	room := service.ProjectRoom(uuid.New())

	a := newClient(h, nil, uuid.New(), uuid.New(), "alice")
	b := newClient(h, nil, uuid.New(), uuid.New(), "bob")
	outsider := newClient(h, nil, uuid.New(), uuid.New(), "eve")
	for _, c := range []*Client{a, b, outsider} {
		h.register(c)
	}
	h.join(a, room)
	h.join(b, room)

	h.broadcast(room, "task_updated", map[string]any{"x": 1}, a)

	assert.Len(t, a.send, 0)
	assert.Len(t, outsider.send, 0)
	require.Len(t, b.send, 1)
	f := decode(t, <-b.send)
	assert.Equal(t, "task_updated", f.Event)
	assert.EqualValues(t, 1, f.Data["x"])
}

func TestHub_DropsSlowClient(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ws_test"})
	h := NewHub(&MockAccess{}, zap.NewNop(), WithSendBuffer(1), WithConnectionGauge(gauge))
	room := service.ProjectRoom(uuid.New())

	slow := newClient(h, nil, uuid.New(), uuid.New(), "slow")
	h.register(slow)
	h.join(slow, room)
	assert.Equal(t, 1.0, testutil.ToFloat64(gauge))

	h.Broadcast(room, "activity", map[string]any{"n": 1})
	h.Broadcast(room, "activity", map[string]any{"n": 2})

	assert.Equal(t, 0, h.Connections())
	assert.Empty(t, h.ActiveUsers(room))
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge))

	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)

	// a second unregister is a no-op
	assert.Nil(t, h.unregister(slow))
}

func TestHub_DroppedClientAnnouncedInEveryRoom(t *testing.T) {
	h := NewHub(&MockAccess{}, zap.NewNop())
	roomA := service.ProjectRoom(uuid.New())
	roomB := service.ProjectRoom(uuid.New())

	slow := newClient(h, nil, uuid.New(), uuid.New(), "slow")
	slow.send = make(chan []byte) // nobody reads it
	a := newClient(h, nil, uuid.New(), uuid.New(), "alice")
	b := newClient(h, nil, uuid.New(), uuid.New(), "bob")
	for _, c := range []*Client{slow, a, b} {
		h.register(c)
	}
	h.join(slow, roomA)
	h.join(slow, roomB)
	h.join(a, roomA)
	h.join(b, roomB)

	h.Broadcast(roomA, "activity", map[string]any{"n": 1})
	assert.Equal(t, 2, h.Connections())

	require.Len(t, a.send, 2)
	assert.Equal(t, "activity", decode(t, <-a.send).Event)
	gone := decode(t, <-a.send)
	assert.Equal(t, "user_disconnected", gone.Event)
	assert.Equal(t, slow.userID.String(), gone.Data["user_id"])
	assert.Equal(t, roomProject(roomA), gone.Data["project_id"])

	require.Len(t, b.send, 1)
	gone = decode(t, <-b.send)
	assert.Equal(t, "user_disconnected", gone.Event)
	assert.Equal(t, roomProject(roomB), gone.Data["project_id"])

	// the read loop's own disconnect finds nothing left to announce
	slow.disconnect()
	assert.Len(t, a.send, 0)
	assert.Len(t, b.send, 0)
}

func TestHub_SendToDropsFullClient(t *testing.T) {
	h := NewHub(&MockAccess{}, zap.NewNop())
	room := service.ProjectRoom(uuid.New())

	slow := newClient(h, nil, uuid.New(), uuid.New(), "slow")
	slow.send = make(chan []byte)
	peer := newClient(h, nil, uuid.New(), uuid.New(), "peer")
	h.register(slow)
	h.register(peer)
	h.join(slow, room)
	h.join(peer, room)

	h.sendTo(slow, "active_users", map[string]any{})

	assert.Equal(t, 1, h.Connections())
	require.Len(t, peer.send, 1)
	assert.Equal(t, "user_disconnected", decode(t, <-peer.send).Event)
}

func TestHub_ActiveUsersDistinct(t *testing.T) {
	h := NewHub(&MockAccess{}, zap.NewNop())
	room := service.ProjectRoom(uuid.New())
	uid := uuid.New()

	tab1 := newClient(h, nil, uid, uuid.New(), "alice")
	tab2 := newClient(h, nil, uid, uuid.New(), "alice")
	h.register(tab1)
	h.register(tab2)
	h.join(tab1, room)
	h.join(tab2, room)

	users := h.ActiveUsers(room)
	require.Len(t, users, 1)
	assert.Equal(t, uid.String(), users[0]["user_id"])
	assert.Equal(t, "online", users[0]["status"])

	assert.True(t, h.leave(tab1, room))
	assert.False(t, h.leave(tab1, room))
	assert.Len(t, h.ActiveUsers(room), 1)
}

type wsPeer struct {
	t    *testing.T
	conn *websocket.Conn
}

func (p *wsPeer) send(event string, data map[string]any) {
	p.t.Helper()
	raw, err := sonic.Marshal(Frame{Event: event, Data: data})
	require.NoError(p.t, err)
	require.NoError(p.t, p.conn.WriteMessage(websocket.TextMessage, raw))
}

func (p *wsPeer) next() Frame {
	p.t.Helper()
	_ = p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := p.conn.ReadMessage()
	require.NoError(p.t, err)
	return decode(p.t, raw)
}

func startServer(t *testing.T, access AccessChecker, users map[string]*model.User) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHub(access, zap.NewNop())

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		if u, ok := users[c.Query("as")]; ok {
			c.Set("user", u)
		}
		c.Next()
	}, h.ServeWS([]string{"*"}))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url, as string) *wsPeer {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?as="+as, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsPeer{t: t, conn: conn}
}

func TestServeWS_RoomRelay(t *testing.T) {
	tenant := uuid.New()
	alice := &model.User{ID: uuid.New(), TenantID: tenant, Username: "alice"}
	bob := &model.User{ID: uuid.New(), TenantID: tenant, Username: "bob"}
	projectID := uuid.New()
	foreign := uuid.New()

	access := &MockAccess{}
	access.On("CanAccess", mock.Anything, tenant, mock.Anything, projectID).Return(true, nil)
	access.On("CanAccess", mock.Anything, tenant, mock.Anything, foreign).Return(false, nil)

	h, url := startServer(t, access, map[string]*model.User{"alice": alice, "bob": bob})
	a := dial(t, url, "alice")
	b := dial(t, url, "bob")
	pid := projectID.String()

	a.send("join_project", map[string]any{"project_id": pid})
	f := a.next()
	assert.Equal(t, "active_users", f.Event)

	b.send("join_project", map[string]any{"project_id": pid})
	assert.Equal(t, "active_users", b.next().Event)
	f = a.next()
	assert.Equal(t, "user_joined", f.Event)
	assert.Equal(t, bob.ID.String(), f.Data["user_id"])
	assert.Equal(t, "bob", f.Data["user_name"])

	a.send("task_update", map[string]any{"project_id": pid, "task": map[string]any{"title": "Write brief"}, "action": "create"})
	f = b.next()
	assert.Equal(t, "task_updated", f.Event)
	assert.Equal(t, "create", f.Data["action"])
	assert.Equal(t, alice.ID.String(), f.Data["updated_by"])
	assert.NotEmpty(t, f.Data["timestamp"])

	// the sender's next frame is bob's comment, not its own task update
	b.send("comment_added", map[string]any{"project_id": pid, "comment": map[string]any{"content": "done"}})
	assert.Equal(t, "comment_added", a.next().Event)
	assert.Equal(t, "comment_added", b.next().Event)

	a.send("join_project", map[string]any{"project_id": foreign.String()})
	f = a.next()
	assert.Equal(t, "error", f.Event)
	assert.Equal(t, "project not found", f.Data["message"])

	a.send("task_update", map[string]any{"project_id": foreign.String(), "task": map[string]any{}})
	f = a.next()
	assert.Equal(t, "error", f.Event)
	assert.Equal(t, "join the project first", f.Data["message"])

	require.NoError(t, b.conn.Close())
	f = a.next()
	assert.Equal(t, "user_disconnected", f.Event)
	assert.Equal(t, bob.ID.String(), f.Data["user_id"])
	assert.Eventually(t, func() bool { return h.Connections() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServeWS_JoinValidation(t *testing.T) {
	alice := &model.User{ID: uuid.New(), TenantID: uuid.New(), Username: "alice"}
	_, url := startServer(t, &MockAccess{}, map[string]*model.User{"alice": alice})
	a := dial(t, url, "alice")

	a.send("join_project", map[string]any{})
	f := a.next()
	assert.Equal(t, "error", f.Event)
	assert.Equal(t, "user_id and project_id required", f.Data["message"])

	a.send("join_project", map[string]any{"project_id": "nope"})
	assert.Equal(t, "invalid project_id", a.next().Data["message"])

	a.send("dance", nil)
	assert.Equal(t, "unknown event: dance", a.next().Data["message"])
}

func TestServeWS_RequiresUser(t *testing.T) {
	_, url := startServer(t, &MockAccess{}, nil)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}
