package store

import (
	"context"
	"sync"
	"time"

	"github.com/gatherly/chat-service/pkg/model"
	"github.com/gatherly/chat-service/pkg/snowflake"
)

// MemoryStore keeps the chat log in process memory. It backs the tests
// and the no-cluster demo mode; the contract matches ScyllaStore.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]model.ChatMessage
	ids   *snowflake.Node
}

func NewMemoryStore(ids *snowflake.Node) *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string][]model.ChatMessage),
		ids:   ids,
	}
}

func (s *MemoryStore) Append(ctx context.Context, msg *model.ChatMessage) (int64, error) {
	if msg.ID == 0 {
		msg.ID = s.ids.Generate()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.rooms[msg.RoomID] = append(s.rooms[msg.RoomID], *msg)
	s.mu.Unlock()

	return msg.ID, nil
}

func (s *MemoryStore) RecentByRoom(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.rooms[roomID]
	if len(log) > limit {
		log = log[len(log)-limit:]
	}

	out := make([]model.ChatMessage, len(log))
	copy(out, log)
	return out, nil
}
