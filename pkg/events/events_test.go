package events

import (
	"context"
	"testing"

	"edubot/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNewPublisherWithoutBrokersIsNoop(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Topic: "t"})
	assert.IsType(t, Noop{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: TranscriptSaved}))
	assert.NoError(t, p.Close())
}

func TestNewPublisherWithBrokersUsesKafka(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{Brokers: "127.0.0.1:9092,127.0.0.1:9093", Topic: "edubot.events"})
	kp, ok := p.(*kafkaPublisher)
	if assert.True(t, ok) {
		assert.Equal(t, "edubot.events", kp.writer.Topic)
	}
	assert.NoError(t, p.Close())
}
