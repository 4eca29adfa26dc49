package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gatherly/chat-service/pkg/db"
	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/model"
)

// Consumer projects the chat message stream into per-room activity
// rows, which the events page uses to surface busy rooms.
type Consumer struct {
	reader *kafka.Reader
	db     *db.Session
}

func NewConsumer(reader *kafka.Reader, session *db.Session) *Consumer {
	return &Consumer{reader: reader, db: session}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			lg := logging.L(); lg.Warn().Err(err).Msg("error reading message, retrying in 1s")
			time.Sleep(1 * time.Second)
			continue
		}

		var msg model.ChatMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			lg := logging.L(); lg.Warn().Err(err).Msg("failed to unmarshal message, skipping")
			continue
		}

		// Join/leave notices do not count as room activity.
		if msg.IsSystemMessage {
			continue
		}

		c.project(ctx, &msg)
	}
}

func (c *Consumer) project(ctx context.Context, msg *model.ChatMessage) {
	query := `INSERT INTO room_activity (room_id, last_message_at, last_sender) VALUES (?, ?, ?)`
	if err := c.db.Query(query, msg.RoomID, msg.Timestamp, msg.SenderName).WithContext(ctx).Exec(); err != nil {
		lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldRoomID, msg.RoomID).Msg("failed to update room activity")
	}

	counter := `UPDATE room_activity_counters SET message_count = message_count + 1 WHERE room_id = ?`
	if err := c.db.Query(counter, msg.RoomID).WithContext(ctx).Exec(); err != nil {
		lg := logging.L(); lg.Warn().Err(err).Str(logging.FieldRoomID, msg.RoomID).Msg("failed to increment message count")
	}

	lg := logging.L(); lg.Debug().
		Str(logging.FieldRoomID, msg.RoomID).
		Int64(logging.FieldMessageID, msg.ID).
		Msg("projected message")
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
