// Package presence tracks which live connection is in which room under
// what display name. The registry is process-local and non-durable: it
// does not survive a restart and is not shared between instances. A
// best-effort Redis mirror of room membership exists so other services
// can list who is in a room; a shared registry is the extension point
// for a multi-instance deployment.
package presence

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/gatherly/chat-service/pkg/logging"
)

// Entry is the room association of one live connection.
type Entry struct {
	RoomID      string
	DisplayName string
}

// Registry maps connection ids to their presence entry. One entry per
// live connection; setting again replaces (a room switch).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	rdb     *redis.Client
}

// NewRegistry creates a registry. rdb may be nil, in which case the
// Redis mirror is skipped entirely.
func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{
		entries: make(map[string]Entry),
		rdb:     rdb,
	}
}

// RoomKey is the Redis set holding the display names present in a room.
func RoomKey(roomID string) string {
	return "event:" + roomID + ":chatters"
}

// Set records the room association for a connection, replacing any
// previous entry. The previous entry is returned so callers can clean up
// the vacated room.
func (r *Registry) Set(ctx context.Context, connID string, e Entry) (prev Entry, existed bool) {
	r.mu.Lock()
	prev, existed = r.entries[connID]
	r.entries[connID] = e
	r.mu.Unlock()

	if r.rdb != nil {
		if existed {
			if err := r.rdb.SRem(ctx, RoomKey(prev.RoomID), prev.DisplayName).Err(); err != nil {
				lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldRoomID, prev.RoomID).Msg("failed to clear presence mirror")
			}
		}
		if err := r.rdb.SAdd(ctx, RoomKey(e.RoomID), e.DisplayName).Err(); err != nil {
			lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldRoomID, e.RoomID).Msg("failed to set presence mirror")
		}
	}

	return prev, existed
}

// Remove deletes the entry for a connection. The second return is false
// when no entry existed, which makes disconnects idempotent.
func (r *Registry) Remove(ctx context.Context, connID string) (Entry, bool) {
	r.mu.Lock()
	e, ok := r.entries[connID]
	if ok {
		delete(r.entries, connID)
	}
	r.mu.Unlock()

	if ok && r.rdb != nil {
		if err := r.rdb.SRem(ctx, RoomKey(e.RoomID), e.DisplayName).Err(); err != nil {
			lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldRoomID, e.RoomID).Msg("failed to clear presence mirror")
		}
	}

	return e, ok
}

// Get looks up the entry for a connection.
func (r *Registry) Get(connID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[connID]
	return e, ok
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
