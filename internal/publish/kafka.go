package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"pricesnapshot/internal/pricetable"
)

//go:generate mockgen -destination=mock_writer_test.go -package=publish . MessageWriter

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

const EventPriceSnapshot = "PRICE_SNAPSHOT"

// PriceEvent is the value of each message; the key is the symbol.
type PriceEvent struct {
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Time      int64     `json:"time"`
	Timestamp time.Time `json:"timestamp"`
}

type KafkaPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, now: time.Now}
}

// NewKafkaWriter builds a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

// Publish sends one message per symbol in a single batch.
func (p *KafkaPublisher) Publish(ctx context.Context, table *pricetable.Table) error {
	if table.Len() == 0 {
		return nil
	}
	ts := p.now().UTC()
	msgs := make([]kafka.Message, 0, table.Len())
	for _, sym := range table.Symbols() {
		e, _ := table.Get(sym)
		data, err := json.Marshal(PriceEvent{
			EventType: EventPriceSnapshot,
			Symbol:    sym,
			Price:     e.Price,
			Time:      e.Time,
			Timestamp: ts,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(sym), Value: data})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write messages to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
