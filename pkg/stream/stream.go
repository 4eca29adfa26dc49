// Package stream carries persisted chat messages onto Kafka for
// downstream projections. The stream is advisory: the synchronous store
// append is the durability contract, and a publish failure never
// surfaces to the sender or the room.
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/gatherly/chat-service/pkg/config"
	"github.com/gatherly/chat-service/pkg/model"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish writes one message to the topic, keyed by room so a room's
// traffic stays on one partition.
func (p *Producer) Publish(ctx context.Context, msg *model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message %d: %w", msg.ID, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RoomID),
		Value: data,
		Time:  msg.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message %d: %w", msg.ID, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NewReader builds the consumer used by the activity service.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
}
