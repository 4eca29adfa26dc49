// Package store persists the per-room chat log. Messages are append-only:
// nothing in this subsystem updates or deletes a row, and retention is an
// operational concern outside of it.
package store

import (
	"context"

	"github.com/gatherly/chat-service/pkg/model"
)

// MessageStore is the durable ordered log of chat messages per room.
type MessageStore interface {
	// Append assigns identity and timestamp (when absent) to the message,
	// stores it durably and returns the assigned id. Duplicate content is
	// never rejected.
	Append(ctx context.Context, msg *model.ChatMessage) (int64, error)

	// RecentByRoom returns up to limit messages for a room in ascending
	// timestamp order. A room with no history yields an empty slice and
	// no error.
	RecentByRoom(ctx context.Context, roomID string, limit int) ([]model.ChatMessage, error)
}
