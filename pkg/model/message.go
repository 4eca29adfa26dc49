package model

import "time"

// SystemSenderName is the sender attributed to join/leave notices.
const SystemSenderName = "System"

// ChatMessage is one persisted entry in an event room's chat log.
// Messages are created once at send time and never mutated.
type ChatMessage struct {
	ID              int64     `json:"id"`
	RoomID          string    `json:"roomId"`
	SenderID        string    `json:"senderId,omitempty"`
	SenderName      string    `json:"senderName"`
	Content         string    `json:"content"`
	Timestamp       time.Time `json:"timestamp"`
	IsSystemMessage bool      `json:"isSystemMessage"`
}

// NewSystemMessage builds an unpersisted join/leave notice for a room.
// The store assigns ID and Timestamp on append.
func NewSystemMessage(roomID, content string) *ChatMessage {
	return &ChatMessage{
		RoomID:          roomID,
		SenderName:      SystemSenderName,
		Content:         content,
		IsSystemMessage: true,
	}
}
