package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papertrade/brokerage/internal/models"
)

// Producer handles publishing trade events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishTradeExecuted publishes an executed buy or sell
func (p *Producer) PublishTradeExecuted(ctx context.Context, event models.TradeEvent) error {
	if event.EventType == "" {
		event.EventType = "TRADE_EXECUTED"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.publish(ctx, event.Symbol, event)
}

// PublishUserRegistered publishes a new account registration
func (p *Producer) PublishUserRegistered(ctx context.Context, user *models.User) error {
	event := models.TradeEvent{
		EventType: "USER_REGISTERED",
		UserID:    user.ID,
		Username:  user.Username,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, user.Username, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.TradeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
