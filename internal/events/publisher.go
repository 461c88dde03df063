package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/carousell/ct-go/pkg/logger/log_context"

	"github.com/facilityhub/dept-chat/internal/config"
)

// Event patterns consumed by the (future) push layer and other services.
const (
	PatternMessageSent    = "message.sent"
	PatternMessageEdited  = "message.edited"
	PatternMessageDeleted = "message.deleted"
	PatternChatRead       = "chat.read"
)

// Event is the wire format published per chat mutation. Keyed by chat id
// so per-chat ordering survives partitioning.
type Event struct {
	Pattern   string         `json:"pattern"`
	ChatID    string         `json:"chat_id"`
	MessageID string         `json:"message_id,omitempty"`
	UserID    string         `json:"user_id"`
	At        time.Time      `json:"at"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher emits domain events best-effort: delivery failures are logged,
// never surfaced to the request that triggered them.
type Publisher interface {
	Publish(ctx context.Context, event Event)
	Close() error
}

func NewPublisher(cfg config.KafkaConfig) (Publisher, error) {
	if !cfg.Enabled {
		return &noopPublisher{}, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}

	return &kafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
	}, nil
}

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Errorw(ctx, "failed to marshal chat event", "pattern", event.Pattern, "error", err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.ChatID),
		Value: sarama.ByteEncoder(payload),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		log.Errorw(ctx, "failed to publish chat event",
			"pattern", event.Pattern,
			"chat_id", event.ChatID,
			"error", err)
		return
	}
	log.Debugw(ctx, "published chat event",
		"pattern", event.Pattern,
		"chat_id", event.ChatID,
		"partition", partition,
		"offset", offset)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// noopPublisher is used when Kafka is disabled.
type noopPublisher struct{}

func (n *noopPublisher) Publish(ctx context.Context, event Event) {}

func (n *noopPublisher) Close() error { return nil }
