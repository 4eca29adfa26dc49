package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/presence"
)

// ChattersHandler lists the display names currently in a room's chat,
// read from the gateway's Redis presence mirror.
// Route: /events/{id}/chatters
type ChattersHandler struct {
	redis *redis.Client
}

func NewChattersHandler(rdb *redis.Client) *ChattersHandler {
	return &ChattersHandler{redis: rdb}
}

func (h *ChattersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 4 || parts[1] != "events" || parts[3] != "chatters" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	roomID := parts[2]
	if roomID == "" {
		http.Error(w, "event id is required", http.StatusBadRequest)
		return
	}

	names, err := h.redis.SMembers(r.Context(), presence.RoomKey(roomID)).Result()
	if err != nil {
		lg := logging.Ctx(r.Context()); lg.Error().Err(err).Str(logging.FieldRoomID, roomID).Msg("failed to read presence mirror")
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(names)
}
