// Package kafka publishes user events with segmentio/kafka-go.
package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
)

// Producer writes to whichever topic each message names. Messages are keyed
// by user id, so one user's events land on one partition in order.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			// The outbox hands over one row at a time.
			BatchSize: 1,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				observability.GetLogger(context.Background()).Warn("kafka writer", zap.String("detail", fmt.Sprintf(msg, args...)))
			}),
		},
	}
}

// Publish sends one message with the caller's trace context in its headers.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if err := p.w.WriteMessages(ctx, newMessage(ctx, topic, key, value)); err != nil {
		return fmt.Errorf("write %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func newMessage(ctx context.Context, topic string, key, value []byte) kafka.Message {
	msg := kafka.Message{Topic: topic, Key: key, Value: value}
	otel.GetTextMapPropagator().Inject(ctx, messageCarrier{msg: &msg})
	return msg
}

type messageCarrier struct {
	msg *kafka.Message
}

func (c messageCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c messageCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c messageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
