package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/model"
)

func newTestClient(h *Hub, id string) *Client {
	return NewClient(id, h, nil, model.NewSession("user-"+id), config.WebSocketConfig{SendBuffer: 16})
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatalf("client %s: no frame delivered", c.ID)
		return nil
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("client %s: unexpected frame %s", c.ID, data)
	default:
	}
}

func TestBroadcastToRoomReachesEveryMember(t *testing.T) {
	h := NewHub()
	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = newTestClient(h, string(rune('a'+i)))
		h.Register(clients[i])
		h.JoinRoom(clients[i], "event-1")
	}

	h.BroadcastToRoom("event-1", []byte("hello"), nil)

	for _, c := range clients {
		require.Equal(t, []byte("hello"), recvFrame(t, c))
	}
}

func TestBroadcastToRoomExcludesOrigin(t *testing.T) {
	h := NewHub()
	origin := newTestClient(h, "origin")
	other := newTestClient(h, "other")
	for _, c := range []*Client{origin, other} {
		h.Register(c)
		h.JoinRoom(c, "event-1")
	}

	h.BroadcastToRoom("event-1", []byte("notice"), origin)

	require.Equal(t, []byte("notice"), recvFrame(t, other))
	requireNoFrame(t, origin)
}

func TestBroadcastToRoomStaysInRoom(t *testing.T) {
	h := NewHub()
	inRoom := newTestClient(h, "in")
	elsewhere := newTestClient(h, "elsewhere")
	h.Register(inRoom)
	h.Register(elsewhere)
	h.JoinRoom(inRoom, "event-1")
	h.JoinRoom(elsewhere, "event-2")

	h.BroadcastToRoom("event-1", []byte("only here"), nil)

	require.Equal(t, []byte("only here"), recvFrame(t, inRoom))
	requireNoFrame(t, elsewhere)
}

func TestBroadcastAllIgnoresRooms(t *testing.T) {
	h := NewHub()
	joined := newTestClient(h, "joined")
	lurker := newTestClient(h, "lurker")
	h.Register(joined)
	h.Register(lurker)
	h.JoinRoom(joined, "event-1")

	h.BroadcastAll([]byte("feed"))

	require.Equal(t, []byte("feed"), recvFrame(t, joined))
	require.Equal(t, []byte("feed"), recvFrame(t, lurker))
}

func TestJoinRoomSwitchesRooms(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "a")
	h.Register(c)

	h.JoinRoom(c, "event-1")
	require.Len(t, h.Members("event-1"), 1)

	h.JoinRoom(c, "event-2")
	require.Empty(t, h.Members("event-1"))
	require.Len(t, h.Members("event-2"), 1)
}

func TestJoinRoomRequiresRegistration(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "ghost")

	h.JoinRoom(c, "event-1")
	require.Empty(t, h.Members("event-1"))
}

func TestLeaveRoomReportsVacatedRoom(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "a")
	h.Register(c)
	h.JoinRoom(c, "event-1")

	require.Equal(t, "event-1", h.LeaveRoom(c))
	require.Equal(t, "", h.LeaveRoom(c))
	require.Empty(t, h.Members("event-1"))
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "a")
	h.Register(c)
	h.JoinRoom(c, "event-1")

	h.Unregister(c)
	h.Unregister(c)

	require.Equal(t, 0, h.ClientCount())
	require.Empty(t, h.Members("event-1"))

	_, open := <-c.Send
	require.False(t, open)
}

func TestSendToAfterUnregisterIsSafe(t *testing.T) {
	h := NewHub()
	c := newTestClient(h, "a")
	h.Register(c)
	h.Unregister(c)

	// Must not panic on the closed channel, and must not deliver.
	h.SendTo(c, []byte("late"))
}

func TestBroadcastDropsSlowClient(t *testing.T) {
	h := NewHub()
	slow := NewClient("slow", h, nil, model.NewSession("user-slow"), config.WebSocketConfig{SendBuffer: 1})
	fast := newTestClient(h, "fast")
	for _, c := range []*Client{slow, fast} {
		h.Register(c)
		h.JoinRoom(c, "event-1")
	}

	h.BroadcastToRoom("event-1", []byte("one"), nil)
	h.BroadcastToRoom("event-1", []byte("two"), nil)

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.Equal(t, []byte("one"), recvFrame(t, fast))
	require.Equal(t, []byte("two"), recvFrame(t, fast))
}

func TestSendJSONDeliversToOneClient(t *testing.T) {
	h := NewHub()
	target := newTestClient(h, "target")
	bystander := newTestClient(h, "bystander")
	for _, c := range []*Client{target, bystander} {
		h.Register(c)
		h.JoinRoom(c, "event-1")
	}

	require.NoError(t, target.SendJSON(map[string]string{"type": "test"}))

	require.JSONEq(t, `{"type":"test"}`, string(recvFrame(t, target)))
	requireNoFrame(t, bystander)
}
