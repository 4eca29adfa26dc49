package model

import "time"

// Frame types from client to server.
const (
	FrameJoinEvent   = "join-event"
	FrameSendMessage = "send-message"
	FrameTyping      = "typing"
)

// Frame types from server to client.
const (
	FramePreviousMessages = "previous-messages"
	FrameNewMessage       = "new-message"
	FrameUserJoined       = "user-joined"
	FrameUserLeft         = "user-left"
	FrameUserTyping       = "user-typing"
	FrameNewMockEvent     = "new-mock-event"
	FrameError            = "error"
)

// Error codes carried by error frames.
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeNotJoined    = "NOT_JOINED"
	ErrCodeRoomMismatch = "ROOM_MISMATCH"
	ErrCodeSendFailed   = "SEND_FAILED"
)

// BaseFrame carries only the discriminator, used to route inbound frames.
type BaseFrame struct {
	Type string `json:"type"`
}

// Client -> server frames.

type JoinEventFrame struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
}

type SendMessageFrame struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId" validate:"required"`
	Content string `json:"content" validate:"required"`
	// DisplayName is accepted on the wire for compatibility but the
	// session's join-time name is authoritative.
	DisplayName string `json:"displayName"`
}

type TypingFrame struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId" validate:"required"`
	DisplayName string `json:"displayName"`
	IsTyping    bool   `json:"isTyping"`
}

// Server -> client frames.

// MessagePayload is the wire shape of a chat message in history batches
// and new-message frames.
type MessagePayload struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
}

// PayloadFromMessage projects a stored message onto its wire shape.
func PayloadFromMessage(m *ChatMessage) MessagePayload {
	return MessagePayload{
		ID:         m.ID,
		Content:    m.Content,
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp,
	}
}

type PreviousMessagesFrame struct {
	Type     string           `json:"type"`
	Messages []MessagePayload `json:"messages"`
}

type NewMessageFrame struct {
	Type string `json:"type"`
	MessagePayload
}

// SystemNoticeFrame is the payload of user-joined and user-left frames.
type SystemNoticeFrame struct {
	Type       string    `json:"type"`
	Content    string    `json:"content"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
}

type UserTypingFrame struct {
	Type       string `json:"type"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) *ErrorFrame {
	return &ErrorFrame{Type: FrameError, Code: code, Message: message}
}
