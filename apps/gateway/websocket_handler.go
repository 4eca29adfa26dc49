package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gatherly/chat-service/pkg/auth"
	"github.com/gatherly/chat-service/pkg/chat"
	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/hub"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin filtering is handled upstream.
	},
}

type WSHandler struct {
	hub      *hub.Hub
	service  *chat.Service
	verifier *auth.Verifier
	wsCfg    config.WebSocketConfig
	validate *validator.Validate
}

func NewWSHandler(h *hub.Hub, svc *chat.Service, verifier *auth.Verifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsCfg:    wsCfg,
		validate: validator.New(),
	}
}

// ServeWS authenticates the handshake, upgrades the connection and
// starts the pumps. The credential comes from the Authorization header
// or, for browser clients, the token query param.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		lg := logging.Ctx(r.Context()); lg.Warn().Msg("websocket handshake without token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := h.verifier.Validate(auth.BearerToken(tokenString))
	if err != nil {
		lg := logging.Ctx(r.Context()); lg.Warn().Err(err).Msg("websocket handshake with invalid token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		lg := logging.Ctx(r.Context()); lg.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, model.NewSession(claims.UserID), h.wsCfg)
	h.hub.Register(client)

	lg := logging.L(); lg.Info().
		Str(logging.FieldConnID, client.ID).
		Str(logging.FieldUserID, claims.UserID).
		Msg("connection established")

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleFrame)
		// The read loop ended: the connection is gone, run the
		// disconnect transition exactly once.
		h.service.HandleDisconnect(context.Background(), client)
	}()
}

// handleFrame routes one inbound frame to its protocol transition.
// Malformed payloads are rejected here without touching any state.
func (h *WSHandler) handleFrame(c *hub.Client, message []byte) {
	var base model.BaseFrame
	if err := json.Unmarshal(message, &base); err != nil {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeBadRequest, "invalid frame"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case model.FrameJoinEvent:
		var frame model.JoinEventFrame
		if !h.decode(c, message, &frame) {
			return
		}
		if err := h.service.HandleJoin(ctx, c, frame.RoomID, frame.DisplayName); err != nil {
			lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldConnID, c.ID).Msg("join rejected")
		}

	case model.FrameSendMessage:
		var frame model.SendMessageFrame
		if !h.decode(c, message, &frame) {
			return
		}
		if err := h.service.HandleSendMessage(ctx, c, frame.RoomID, frame.Content); err != nil {
			lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldConnID, c.ID).Msg("send rejected")
		}

	case model.FrameTyping:
		var frame model.TypingFrame
		if !h.decode(c, message, &frame) {
			return
		}
		if err := h.service.HandleTyping(ctx, c, frame.IsTyping); err != nil {
			lg := logging.L(); lg.Debug().Err(err).Str(logging.FieldConnID, c.ID).Msg("typing rejected")
		}

	default:
		c.SendJSON(model.NewErrorFrame(model.ErrCodeBadRequest, "unknown frame type"))
	}
}

// decode unmarshals and validates an inbound frame, reporting failures
// to the origin connection only.
func (h *WSHandler) decode(c *hub.Client, message []byte, frame interface{}) bool {
	if err := json.Unmarshal(message, frame); err != nil {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeBadRequest, "invalid frame payload"))
		return false
	}
	if err := h.validate.Struct(frame); err != nil {
		c.SendJSON(model.NewErrorFrame(model.ErrCodeBadRequest, "missing required fields"))
		return false
	}
	return true
}
