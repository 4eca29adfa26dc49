package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/model"
	"github.com/gatherly/chat-service/pkg/store"
)

const maxHistoryLimit = 100

// HistoryHandler serves the recent chat log of a room over REST, the
// same ascending window the gateway replays on join.
type HistoryHandler struct {
	store        store.MessageStore
	defaultLimit int
}

func NewHistoryHandler(st store.MessageStore, defaultLimit int) *HistoryHandler {
	return &HistoryHandler{store: st, defaultLimit: defaultLimit}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("eventId")
	if roomID == "" {
		http.Error(w, "eventId is required", http.StatusBadRequest)
		return
	}

	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := h.store.RecentByRoom(r.Context(), roomID, limit)
	if err != nil {
		lg := logging.Ctx(r.Context()); lg.Error().Err(err).Str(logging.FieldRoomID, roomID).Msg("failed to read history")
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	payload := make([]model.MessagePayload, 0, len(messages))
	for i := range messages {
		payload = append(payload, model.PayloadFromMessage(&messages[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
