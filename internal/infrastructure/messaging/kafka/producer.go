// internal/infrastructure/messaging/kafka/producer.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
)

// Producer publishes domain events to a Kafka topic
type Producer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewProducer creates a new Kafka producer for the stock topic
func NewProducer(cfg *config.Config, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.External.Kafka.Brokers...),
		Topic:        cfg.External.Kafka.StockTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: cfg.External.Kafka.WriteTimeout,
		ReadTimeout:  cfg.External.Kafka.WriteTimeout,
	}

	return &Producer{writer: writer, logger: logger}
}

// PublishEvent publishes an event keyed by key, so events of one product stay ordered
func (p *Producer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: eventBytes,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic": p.writer.Topic,
		"key":   key,
		"type":  fmt.Sprintf("%T", event),
	}).Debug("published event")
	return nil
}

// Close flushes pending messages and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
