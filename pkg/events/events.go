// Package events publishes transcript and instruction changes to Kafka so downstream
// consumers (analytics, archiving) can follow the store without polling it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"edubot/internal/config"
	"edubot/pkg/log"

	"github.com/segmentio/kafka-go"
)

// Type names a domain event.
type Type string

const (
	TranscriptSaved    Type = "transcript.saved"
	TranscriptDeleted  Type = "transcript.deleted"
	TranscriptRenamed  Type = "transcript.renamed"
	InstructionUpdated Type = "instruction.updated"
)

// Event is the message value written to the topic.
type Event struct {
	Type         Type      `json:"type"`
	TranscriptID uint      `json:"transcriptId,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	BotID        string    `json:"botId,omitempty"`
	MessageCount int       `json:"messageCount,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Kafka-backed publisher, or a no-op one when no brokers are set.
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if strings.TrimSpace(cfg.Brokers) == "" {
		log.Info("Kafka brokers not configured, domain events disabled")
		return Noop{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 5 * time.Second,
		RequiredAcks: kafka.RequireOne,
		// requests never wait on the broker; failed batches are only logged
		Async: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warnw("Failed to deliver events", "count", len(messages), "error", err)
			}
		},
	}
	log.Infof("Kafka publisher initialised for topic '%s'", cfg.Topic)
	return &kafkaPublisher{writer: w}
}

// Publish keys messages by session id so events of one transcript stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	key := ev.SessionID
	if key == "" {
		key = ev.BotID
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("failed to write %s event: %w", ev.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
