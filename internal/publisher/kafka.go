package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "order-confirmed"

// Sink delivers events somewhere outside the process.
type Sink interface {
	Send(ctx context.Context, events ...Event) error
	Close() error
}

type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(topic string, brokers ...string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
	}
	return &KafkaSink{writer: w}
}

// Send writes events keyed by order id, so all events of one order land on one partition.
func (k *KafkaSink) Send(ctx context.Context, events ...Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.OrderID),
			Value: ev.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.Type)},
				{Key: "event_id", Value: []byte(ev.ID)},
			},
		})
	}

	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// LogSink stands in for Kafka when no brokers are configured.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Send(_ context.Context, events ...Event) error {
	for _, ev := range events {
		l.logger.Info().
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Str("order_id", ev.OrderID).
			Msg("order event")
	}
	return nil
}

func (l *LogSink) Close() error {
	return nil
}
