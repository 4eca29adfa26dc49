// Package chat implements the per-connection session protocol: join,
// send, typing and disconnect, in front of the hub, the presence
// registry and the message store.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gatherly/chat-service/pkg/hub"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/model"
	"github.com/gatherly/chat-service/pkg/presence"
	"github.com/gatherly/chat-service/pkg/store"
)

// DefaultHistoryLimit caps the replay batch delivered on join.
const DefaultHistoryLimit = 50

var (
	ErrNotJoined    = errors.New("connection has not joined a room")
	ErrRoomMismatch = errors.New("payload room does not match joined room")
	ErrEmptyContent = errors.New("message content is empty")
	ErrEmptyRoom    = errors.New("room id is empty")
)

// Publisher is the optional downstream message stream.
type Publisher interface {
	Publish(ctx context.Context, msg *model.ChatMessage) error
}

type Service struct {
	hub      *hub.Hub
	store    store.MessageStore
	presence *presence.Registry
	stream   Publisher

	historyLimit int

	// Per-room critical sections: a room's persist-then-broadcast pairs
	// must not interleave across concurrent senders.
	roomMu    sync.Mutex
	roomLocks map[string]*sync.Mutex
}

type Option func(*Service)

// WithPublisher attaches a downstream stream for persisted user messages.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.stream = p }
}

// WithHistoryLimit overrides the replay cap.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

func NewService(h *hub.Hub, st store.MessageStore, reg *presence.Registry, opts ...Option) *Service {
	s := &Service{
		hub:          h,
		store:        st,
		presence:     reg,
		historyLimit: DefaultHistoryLimit,
		roomLocks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) roomLock(roomID string) *sync.Mutex {
	s.roomMu.Lock()
	defer s.roomMu.Unlock()

	mu, ok := s.roomLocks[roomID]
	if !ok {
		mu = &sync.Mutex{}
		s.roomLocks[roomID] = mu
	}
	return mu
}

// HandleJoin processes a join-event. Re-joining while already in a room
// is a room switch: the vacated room gets a leave notice and the
// presence entry is replaced.
func (s *Service) HandleJoin(ctx context.Context, c *hub.Client, roomID, displayName string) error {
	roomID = strings.TrimSpace(roomID)
	displayName = strings.TrimSpace(displayName)
	if roomID == "" || displayName == "" {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeBadRequest, "roomId and displayName are required"))
		return ErrEmptyRoom
	}

	if oldRoom, oldName, joined := c.Session.Room(); joined && oldRoom != roomID {
		s.hub.LeaveRoom(c)
		s.announce(ctx, oldRoom, fmt.Sprintf("%s left the chat", oldName), model.FrameUserLeft, c)
	}

	if err := c.Session.Join(roomID, displayName); err != nil {
		return err
	}

	s.presence.Set(ctx, c.ID, presence.Entry{RoomID: roomID, DisplayName: displayName})
	s.hub.JoinRoom(c, roomID)

	// History replay goes to the joiner only, oldest first. A store
	// outage degrades to an empty batch rather than failing the join.
	history, err := s.store.RecentByRoom(ctx, roomID, s.historyLimit)
	if err != nil {
		lg := logging.Ctx(ctx); lg.Warn().Err(err).Str(logging.FieldRoomID, roomID).Msg("history replay failed, delivering empty batch")
		history = nil
	}
	batch := model.PreviousMessagesFrame{
		Type:     model.FramePreviousMessages,
		Messages: make([]model.MessagePayload, 0, len(history)),
	}
	for i := range history {
		batch.Messages = append(batch.Messages, model.PayloadFromMessage(&history[i]))
	}
	c.SendJSON(batch)

	s.announce(ctx, roomID, fmt.Sprintf("%s joined the chat", displayName), model.FrameUserJoined, c)

	lg := logging.Ctx(ctx); lg.Info().
		Str(logging.FieldConnID, c.ID).
		Str(logging.FieldRoomID, roomID).
		Str(logging.FieldDisplayName, displayName).
		Msg("joined room")
	return nil
}

// HandleSendMessage persists a user message and broadcasts it to the
// whole room, sender included, so every transcript updates from the
// same authoritative broadcast. On append failure only the sender is
// told and nothing is broadcast.
func (s *Service) HandleSendMessage(ctx context.Context, c *hub.Client, roomID, content string) error {
	joinedRoom, displayName, joined := c.Session.Room()
	if !joined {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeNotJoined, "join a room before sending"))
		return ErrNotJoined
	}
	if roomID != joinedRoom {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeRoomMismatch, "not joined to that room"))
		return ErrRoomMismatch
	}
	if strings.TrimSpace(content) == "" {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeBadRequest, "message content is required"))
		return ErrEmptyContent
	}

	msg := &model.ChatMessage{
		RoomID:     roomID,
		SenderID:   c.Session.UserID(),
		SenderName: displayName,
		Content:    content,
	}

	mu := s.roomLock(roomID)
	mu.Lock()
	if _, err := s.store.Append(ctx, msg); err != nil {
		mu.Unlock()
		lg := logging.Ctx(ctx); lg.Error().Err(err).Str(logging.FieldRoomID, roomID).Msg("message append failed")
		c.SendJSON(model.NewErrorFrame(model.ErrCodeSendFailed, "message could not be saved"))
		return fmt.Errorf("append message: %w", err)
	}

	frame := model.NewMessageFrame{
		Type:           model.FrameNewMessage,
		MessagePayload: model.PayloadFromMessage(msg),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		mu.Unlock()
		return fmt.Errorf("marshal new-message frame: %w", err)
	}
	s.hub.BroadcastToRoom(roomID, data, nil)
	mu.Unlock()

	if s.stream != nil {
		// Off the hot path: downstream projections, best effort.
		go func(m model.ChatMessage) {
			if err := s.stream.Publish(context.Background(), &m); err != nil {
				lg := logging.L(); lg.Warn().Err(err).Int64(logging.FieldMessageID, m.ID).Msg("stream publish failed")
			}
		}(*msg)
	}

	return nil
}

// HandleTyping forwards a typing indicator to everyone else in the
// room. Indicators are never persisted and race freely with message
// broadcasts.
func (s *Service) HandleTyping(ctx context.Context, c *hub.Client, isTyping bool) error {
	roomID, displayName, joined := c.Session.Room()
	if !joined {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeNotJoined, "join a room before typing"))
		return ErrNotJoined
	}

	data, err := json.Marshal(model.UserTypingFrame{
		Type:       model.FrameUserTyping,
		SenderName: displayName,
		IsTyping:   isTyping,
	})
	if err != nil {
		return fmt.Errorf("marshal user-typing frame: %w", err)
	}

	s.hub.BroadcastToRoom(roomID, data, c)
	return nil
}

// HandleDisconnect tears down a connection's room state. The presence
// entry is the idempotence gate: the second disconnect finds no entry
// and does nothing.
func (s *Service) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	entry, ok := s.presence.Remove(ctx, c.ID)
	c.Session.Disconnect()
	if !ok {
		return nil
	}

	s.hub.LeaveRoom(c)
	s.announce(ctx, entry.RoomID, fmt.Sprintf("%s left the chat", entry.DisplayName), model.FrameUserLeft, c)

	lg := logging.Ctx(ctx); lg.Info().
		Str(logging.FieldConnID, c.ID).
		Str(logging.FieldRoomID, entry.RoomID).
		Msg("left room")
	return nil
}

// announce persists a system notice and broadcasts it to everyone in
// the room except origin. Persistence failures degrade to an
// unpersisted notice: presence traffic is not worth failing a join or
// disconnect over.
func (s *Service) announce(ctx context.Context, roomID, content, frameType string, origin *hub.Client) {
	notice := model.NewSystemMessage(roomID, content)

	mu := s.roomLock(roomID)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.store.Append(ctx, notice); err != nil {
		lg := logging.Ctx(ctx); lg.Warn().Err(err).Str(logging.FieldRoomID, roomID).Msg("system notice not persisted")
	}

	data, err := json.Marshal(model.SystemNoticeFrame{
		Type:       frameType,
		Content:    notice.Content,
		SenderName: notice.SenderName,
		Timestamp:  notice.Timestamp,
	})
	if err != nil {
		lg := logging.Ctx(ctx); lg.Error().Err(err).Msg("failed to marshal system notice")
		return
	}
	s.hub.BroadcastToRoom(roomID, data, origin)
}
