package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/chat-service/pkg/db"
	"github.com/gatherly/chat-service/pkg/model"
	"github.com/gatherly/chat-service/pkg/snowflake"
)

// ScyllaStore persists messages in the messages table, partitioned by
// room and clustered by id descending so the recent page is the natural
// read order.
type ScyllaStore struct {
	session *db.Session
	ids     *snowflake.Node
}

func NewScyllaStore(session *db.Session, ids *snowflake.Node) *ScyllaStore {
	return &ScyllaStore{session: session, ids: ids}
}

func (s *ScyllaStore) Append(ctx context.Context, msg *model.ChatMessage) (int64, error) {
	if msg.ID == 0 {
		msg.ID = s.ids.Generate()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	query := `INSERT INTO messages (room_id, id, sender_id, sender_name, content, timestamp, is_system) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if err := s.session.Query(query,
		msg.RoomID, msg.ID, msg.SenderID, msg.SenderName, msg.Content, msg.Timestamp, msg.IsSystemMessage,
	).WithContext(ctx).Exec(); err != nil {
		return 0, fmt.Errorf("failed to append message: %w", err)
	}

	return msg.ID, nil
}

func (s *ScyllaStore) RecentByRoom(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error) {
	query := `SELECT room_id, id, sender_id, sender_name, content, timestamp, is_system
			  FROM messages WHERE room_id = ? LIMIT ?`
	iter := s.session.Query(query, roomID, limit).WithContext(ctx).Iter()

	var messages []model.ChatMessage
	var msg model.ChatMessage
	for iter.Scan(&msg.RoomID, &msg.ID, &msg.SenderID, &msg.SenderName, &msg.Content, &msg.Timestamp, &msg.IsSystemMessage) {
		messages = append(messages, msg)
		msg = model.ChatMessage{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to read history for room %s: %w", roomID, err)
	}

	// The clustering order is id DESC; callers want oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
