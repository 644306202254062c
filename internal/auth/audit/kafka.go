package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the sink needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink publishes events as JSON keyed by account id, so one
// account's events stay ordered within a partition.
type KafkaSink struct {
	w     MessageWriter
	topic string
}

// NewKafkaSink wraps w. topic is set on every message; leave it empty when
// the writer has its own Topic.
func NewKafkaSink(w MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{w: w, topic: topic}
}

// NewKafkaWriter builds a synchronous writer for brokers.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

func (s *KafkaSink) Write(ctx context.Context, e domain.AuditEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("audit: encode event: %w", err)
	}
	msg := kafka.Message{
		Topic: s.topic,
		Key:   []byte(e.AccountID),
		Value: body,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(e.Action)},
		},
	}
	if err := s.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("audit: publish: %w", err)
	}
	return nil
}
