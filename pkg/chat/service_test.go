package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/hub"
	"github.com/gatherly/chat-service/pkg/model"
	"github.com/gatherly/chat-service/pkg/presence"
	"github.com/gatherly/chat-service/pkg/snowflake"
	"github.com/gatherly/chat-service/pkg/store"
)

// flakyStore wraps the in-memory store with switchable failures.
type flakyStore struct {
	*store.MemoryStore
	mu         sync.Mutex
	failAppend bool
	failRecent bool
}

func (s *flakyStore) setFailures(appendFails, recentFails bool) {
	s.mu.Lock()
	s.failAppend = appendFails
	s.failRecent = recentFails
	s.mu.Unlock()
}

func (s *flakyStore) Append(ctx context.Context, msg *model.ChatMessage) (int64, error) {
	s.mu.Lock()
	fail := s.failAppend
	s.mu.Unlock()
	if fail {
		return 0, errors.New("store unavailable")
	}
	return s.MemoryStore.Append(ctx, msg)
}

func (s *flakyStore) RecentByRoom(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	fail := s.failRecent
	s.mu.Unlock()
	if fail {
		return nil, errors.New("store unavailable")
	}
	return s.MemoryStore.RecentByRoom(ctx, roomID, limit)
}

type fixture struct {
	hub      *hub.Hub
	store    *flakyStore
	presence *presence.Registry
	svc      *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ids, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		hub:      hub.NewHub(),
		store:    &flakyStore{MemoryStore: store.NewMemoryStore(ids)},
		presence: presence.NewRegistry(nil),
	}
	f.svc = NewService(f.hub, f.store, f.presence, opts...)
	return f
}

func (f *fixture) connect(userID string) *hub.Client {
	c := hub.NewClient("conn-"+userID, f.hub, nil, model.NewSession(userID), config.WebSocketConfig{SendBuffer: 64})
	f.hub.Register(c)
	return c
}

func (f *fixture) join(t *testing.T, c *hub.Client, roomID, name string) {
	t.Helper()
	require.NoError(t, f.svc.HandleJoin(context.Background(), c, roomID, name))
}

func recvFrame(t *testing.T, c *hub.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatalf("client %s: no frame delivered", c.ID)
		return nil
	}
}

func requireNoFrame(t *testing.T, c *hub.Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("client %s: unexpected frame %s", c.ID, data)
	default:
	}
}

func drain(c *hub.Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func TestJoinRepliesHistoryOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := f.store.Append(ctx, &model.ChatMessage{
			RoomID:     "event-1",
			SenderName: "Earlier",
			Content:    fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
	}

	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")

	batch := recvFrame(t, alice)
	require.Equal(t, model.FramePreviousMessages, batch["type"])
	messages := batch["messages"].([]interface{})
	require.Len(t, messages, 3)
	for i, raw := range messages {
		m := raw.(map[string]interface{})
		require.Equal(t, fmt.Sprintf("m%d", i+1), m["content"])
	}
}

func TestJoinNoticeSkipsTheJoiner(t *testing.T) {
	f := newFixture(t)

	bob := f.connect("u-bob")
	f.join(t, bob, "event-1", "Bob")
	drain(bob)

	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")

	notice := recvFrame(t, bob)
	require.Equal(t, model.FrameUserJoined, notice["type"])
	require.Equal(t, "Alice joined the chat", notice["content"])
	require.Equal(t, model.SystemSenderName, notice["senderName"])

	// The joiner gets the history batch and nothing else.
	batch := recvFrame(t, alice)
	require.Equal(t, model.FramePreviousMessages, batch["type"])
	requireNoFrame(t, alice)
}

func TestJoinRejectsEmptyFields(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("u-alice")

	err := f.svc.HandleJoin(context.Background(), alice, "  ", "Alice")
	require.ErrorIs(t, err, ErrEmptyRoom)

	frame := recvFrame(t, alice)
	require.Equal(t, model.FrameError, frame["type"])
	require.Equal(t, model.ErrCodeBadRequest, frame["code"])
}

func TestJoinSurvivesStoreOutage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.Append(ctx, &model.ChatMessage{RoomID: "event-1", Content: "lost to the outage"})
	require.NoError(t, err)
	f.store.setFailures(true, true)

	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")

	batch := recvFrame(t, alice)
	require.Equal(t, model.FramePreviousMessages, batch["type"])
	require.Empty(t, batch["messages"])

	// The session is fully joined despite the outage.
	roomID, _, joined := alice.Session.Room()
	require.True(t, joined)
	require.Equal(t, "event-1", roomID)
}

func TestSendBroadcastIncludesSender(t *testing.T) {
	f := newFixture(t)

	alice := f.connect("u-alice")
	bob := f.connect("u-bob")
	f.join(t, alice, "event-1", "Alice")
	f.join(t, bob, "event-1", "Bob")
	drain(alice)
	drain(bob)

	require.NoError(t, f.svc.HandleSendMessage(context.Background(), alice, "event-1", "hello room"))

	for _, c := range []*hub.Client{alice, bob} {
		frame := recvFrame(t, c)
		require.Equal(t, model.FrameNewMessage, frame["type"])
		require.Equal(t, "hello room", frame["content"])
		require.Equal(t, "Alice", frame["senderName"])
		require.NotZero(t, frame["id"])
	}
}

func TestSendRequiresJoin(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("u-alice")

	err := f.svc.HandleSendMessage(context.Background(), alice, "event-1", "too soon")
	require.ErrorIs(t, err, ErrNotJoined)

	frame := recvFrame(t, alice)
	require.Equal(t, model.ErrCodeNotJoined, frame["code"])
}

func TestSendRejectsRoomMismatch(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")
	drain(alice)

	err := f.svc.HandleSendMessage(context.Background(), alice, "event-2", "wrong room")
	require.ErrorIs(t, err, ErrRoomMismatch)

	frame := recvFrame(t, alice)
	require.Equal(t, model.ErrCodeRoomMismatch, frame["code"])

	history, err := f.store.RecentByRoom(context.Background(), "event-2", 50)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestSendRejectsEmptyContent(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")
	drain(alice)

	err := f.svc.HandleSendMessage(context.Background(), alice, "event-1", "   ")
	require.ErrorIs(t, err, ErrEmptyContent)

	frame := recvFrame(t, alice)
	require.Equal(t, model.ErrCodeBadRequest, frame["code"])
}

func TestSendFailureToldToSenderOnly(t *testing.T) {
	f := newFixture(t)

	alice := f.connect("u-alice")
	bob := f.connect("u-bob")
	f.join(t, alice, "event-1", "Alice")
	f.join(t, bob, "event-1", "Bob")
	drain(alice)
	drain(bob)

	f.store.setFailures(true, false)

	err := f.svc.HandleSendMessage(context.Background(), alice, "event-1", "doomed")
	require.Error(t, err)

	frame := recvFrame(t, alice)
	require.Equal(t, model.FrameError, frame["type"])
	require.Equal(t, model.ErrCodeSendFailed, frame["code"])
	requireNoFrame(t, bob)
}

func TestTypingIsEphemeralAndExcludesSender(t *testing.T) {
	f := newFixture(t)

	alice := f.connect("u-alice")
	bob := f.connect("u-bob")
	f.join(t, alice, "event-1", "Alice")
	f.join(t, bob, "event-1", "Bob")
	drain(alice)
	drain(bob)

	before, err := f.store.RecentByRoom(context.Background(), "event-1", 50)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleTyping(context.Background(), alice, true))

	frame := recvFrame(t, bob)
	require.Equal(t, model.FrameUserTyping, frame["type"])
	require.Equal(t, "Alice", frame["senderName"])
	require.Equal(t, true, frame["isTyping"])
	requireNoFrame(t, alice)

	after, err := f.store.RecentByRoom(context.Background(), "event-1", 50)
	require.NoError(t, err)
	require.Len(t, after, len(before))
}

func TestTypingRequiresJoin(t *testing.T) {
	f := newFixture(t)
	alice := f.connect("u-alice")

	err := f.svc.HandleTyping(context.Background(), alice, true)
	require.ErrorIs(t, err, ErrNotJoined)
}

func TestDisconnectAnnouncesOnce(t *testing.T) {
	f := newFixture(t)

	alice := f.connect("u-alice")
	bob := f.connect("u-bob")
	f.join(t, alice, "event-1", "Alice")
	f.join(t, bob, "event-1", "Bob")
	drain(alice)
	drain(bob)

	ctx := context.Background()
	require.NoError(t, f.svc.HandleDisconnect(ctx, alice))
	require.NoError(t, f.svc.HandleDisconnect(ctx, alice))

	notice := recvFrame(t, bob)
	require.Equal(t, model.FrameUserLeft, notice["type"])
	require.Equal(t, "Alice left the chat", notice["content"])
	requireNoFrame(t, bob)

	require.Len(t, f.hub.Members("event-1"), 1)
	_, ok := f.presence.Get(alice.ID)
	require.False(t, ok)
}

func TestDisconnectBeforeJoinIsQuiet(t *testing.T) {
	f := newFixture(t)

	bob := f.connect("u-bob")
	f.join(t, bob, "event-1", "Bob")
	drain(bob)

	lurker := f.connect("u-lurker")
	require.NoError(t, f.svc.HandleDisconnect(context.Background(), lurker))
	requireNoFrame(t, bob)
}

func TestRoomSwitchAnnouncesLeave(t *testing.T) {
	f := newFixture(t)

	alice := f.connect("u-alice")
	bob := f.connect("u-bob")
	f.join(t, bob, "event-1", "Bob")
	f.join(t, alice, "event-1", "Alice")
	drain(alice)
	drain(bob)

	f.join(t, alice, "event-2", "Alice")

	notice := recvFrame(t, bob)
	require.Equal(t, model.FrameUserLeft, notice["type"])
	require.Equal(t, "Alice left the chat", notice["content"])

	require.Len(t, f.hub.Members("event-1"), 1)
	require.Len(t, f.hub.Members("event-2"), 1)

	entry, ok := f.presence.Get(alice.ID)
	require.True(t, ok)
	require.Equal(t, "event-2", entry.RoomID)
}

func TestHistoryLimitOption(t *testing.T) {
	f := newFixture(t, WithHistoryLimit(2))
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := f.store.Append(ctx, &model.ChatMessage{
			RoomID:  "event-1",
			Content: fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
	}

	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")

	batch := recvFrame(t, alice)
	messages := batch["messages"].([]interface{})
	require.Len(t, messages, 2)
	require.Equal(t, "m4", messages[0].(map[string]interface{})["content"])
	require.Equal(t, "m5", messages[1].(map[string]interface{})["content"])
}

type capturingPublisher struct {
	mu   sync.Mutex
	msgs []model.ChatMessage
}

func (p *capturingPublisher) Publish(ctx context.Context, msg *model.ChatMessage) error {
	p.mu.Lock()
	p.msgs = append(p.msgs, *msg)
	p.mu.Unlock()
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.msgs)
}

func TestSendPublishesDownstream(t *testing.T) {
	pub := &capturingPublisher{}
	f := newFixture(t, WithPublisher(pub))

	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")
	drain(alice)

	require.NoError(t, f.svc.HandleSendMessage(context.Background(), alice, "event-1", "for the projection"))

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Equal(t, "for the projection", pub.msgs[0].Content)
	require.Equal(t, "u-alice", pub.msgs[0].SenderID)
	require.NotZero(t, pub.msgs[0].ID)
}

// Messages from concurrent senders must land in the same order on every
// member's connection.
func TestConcurrentSendersObserveOneOrder(t *testing.T) {
	f := newFixture(t)

	alice := f.connect("u-alice")
	bob := f.connect("u-bob")
	carol := f.connect("u-carol")
	f.join(t, alice, "event-1", "Alice")
	f.join(t, bob, "event-1", "Bob")
	f.join(t, carol, "event-1", "Carol")
	drain(alice)
	drain(bob)
	drain(carol)

	const perSender = 20
	var wg sync.WaitGroup
	for _, sender := range []*hub.Client{alice, bob} {
		wg.Add(1)
		go func(c *hub.Client) {
			defer wg.Done()
			_, name, _ := c.Session.Room()
			for i := 0; i < perSender; i++ {
				err := f.svc.HandleSendMessage(context.Background(), c, "event-1", fmt.Sprintf("%s-%d", name, i))
				if err != nil {
					t.Errorf("send %s-%d: %v", name, i, err)
				}
			}
		}(sender)
	}
	wg.Wait()

	collect := func(c *hub.Client) []string {
		var contents []string
		for i := 0; i < 2*perSender; i++ {
			frame := recvFrame(t, c)
			require.Equal(t, model.FrameNewMessage, frame["type"])
			contents = append(contents, frame["content"].(string))
		}
		requireNoFrame(t, c)
		return contents
	}

	carolOrder := collect(carol)
	require.Equal(t, carolOrder, collect(alice))
	require.Equal(t, carolOrder, collect(bob))

	// Each sender's own messages stay in send order.
	perName := map[string][]string{}
	for _, content := range carolOrder {
		name := "Bob"
		if strings.HasPrefix(content, "Alice-") {
			name = "Alice"
		}
		perName[name] = append(perName[name], content)
	}
	for name, msgs := range perName {
		require.Len(t, msgs, perSender)
		for i, content := range msgs {
			require.Equal(t, fmt.Sprintf("%s-%d", name, i), content)
		}
	}
}

// Two users meet in a room: history replay, join and leave notices and
// message broadcasts all flowing through one service.
func TestTwoUserConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.connect("u-alice")
	f.join(t, alice, "event-1", "Alice")
	batch := recvFrame(t, alice)
	require.Empty(t, batch["messages"])

	require.NoError(t, f.svc.HandleSendMessage(ctx, alice, "event-1", "anyone here?"))
	echo := recvFrame(t, alice)
	require.Equal(t, "anyone here?", echo["content"])

	bob := f.connect("u-bob")
	f.join(t, bob, "event-1", "Bob")

	// Bob replays Alice's join notice and her message, in order.
	batch = recvFrame(t, bob)
	messages := batch["messages"].([]interface{})
	require.Len(t, messages, 2)
	require.Equal(t, "Alice joined the chat", messages[0].(map[string]interface{})["content"])
	require.Equal(t, "anyone here?", messages[1].(map[string]interface{})["content"])

	notice := recvFrame(t, alice)
	require.Equal(t, model.FrameUserJoined, notice["type"])
	require.Equal(t, "Bob joined the chat", notice["content"])

	require.NoError(t, f.svc.HandleSendMessage(ctx, bob, "event-1", "just got in"))
	require.Equal(t, "just got in", recvFrame(t, alice)["content"])
	require.Equal(t, "just got in", recvFrame(t, bob)["content"])

	require.NoError(t, f.svc.HandleDisconnect(ctx, bob))
	notice = recvFrame(t, alice)
	require.Equal(t, model.FrameUserLeft, notice["type"])
	require.Equal(t, "Bob left the chat", notice["content"])
}
