// Package consumer keeps the advisor's user contexts in step with the user
// service by reading its lifecycle topics.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/events"
	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/services/advisor/internal/domain"
)

const groupID = "wash-advisor-service-group"

// Applier consumes a decoded user event.
type Applier interface {
	ApplyUserEvent(ctx context.Context, ev events.UserEvent) error
}

type recordCarrier struct {
	record *kgo.Record
}

func (c recordCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c recordCarrier) Set(string, string) {}

func (c recordCarrier) Keys() []string {
	keys := make([]string, 0, len(c.record.Headers))
	for _, h := range c.record.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

const (
	minRetryDelay = 200 * time.Millisecond
	maxRetryDelay = 30 * time.Second
	commitTimeout = 5 * time.Second
)

// committer is the subset of *kgo.Client used after a batch is applied.
type committer interface {
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

type Consumer struct {
	client     *kgo.Client
	applier    Applier
	retryDelay time.Duration
}

func New(brokers []string, applier Applier) (*Consumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(events.Topics...),
		kgo.DisableAutoCommit(),
		kgo.OnPartitionsRevoked(func(ctx context.Context, _ *kgo.Client, _ map[string][]int32) {
			observability.GetLogger(ctx).Info("kafka partitions revoked")
		}),
		kgo.OnPartitionsAssigned(func(ctx context.Context, _ *kgo.Client, _ map[string][]int32) {
			observability.GetLogger(ctx).Info("kafka partitions assigned")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: cl, applier: applier, retryDelay: minRetryDelay}, nil
}

// Start polls in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		log := observability.GetLogger(ctx)
		log.Info("kafka consumer started", zap.Strings("topics", events.Topics))
		for {
			select {
			case <-ctx.Done():
				log.Info("kafka consumer loop stopping: context canceled")
				return
			default:
				fetches := c.client.PollFetches(ctx)
				if fetches.IsClientClosed() {
					return
				}
				c.process(ctx, fetches, c.client)
			}
		}
	}()
}

// process applies every record of the poll and commits the ones applied.
// Partition errors are logged without discarding records of healthy partitions.
// A record that cannot be applied stops the batch uncommitted.
func (c *Consumer) process(ctx context.Context, fetches kgo.Fetches, cm committer) {
	log := observability.GetLogger(ctx)
	fetches.EachError(func(topic string, partition int32, err error) {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("kafka fetch error", zap.String("topic", topic), zap.Int32("partition", partition), zap.Error(err))
	})

	var applied []*kgo.Record
	stopped := false
	fetches.EachRecord(func(r *kgo.Record) {
		if stopped {
			return
		}
		rctx := otel.GetTextMapPropagator().Extract(ctx, recordCarrier{record: r})
		if err := c.applyWithRetry(rctx, r.Topic, r.Value); err != nil {
			stopped = true
			return
		}
		applied = append(applied, r)
	})
	if len(applied) == 0 {
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	if err := cm.CommitRecords(cctx, applied...); err != nil {
		log.Error("kafka commit failed", zap.Int("records", len(applied)), zap.Error(err))
	}
}

// applyWithRetry retries transient failures with capped exponential backoff.
// It only gives up when ctx ends.
func (c *Consumer) applyWithRetry(ctx context.Context, topic string, value []byte) error {
	delay := c.retryDelay
	for {
		err := handle(ctx, c.applier, topic, value)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (c *Consumer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// handle decodes one record and applies it. Records that can never apply
// (malformed or invalid) are logged and skipped; any other failure is
// returned so the caller retries.
func handle(ctx context.Context, a Applier, topic string, value []byte) error {
	log := observability.GetLogger(ctx).With(zap.String("topic", topic))

	var ev events.UserEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		eventsTotal.WithLabelValues(topic, "malformed").Inc()
		log.Warn("malformed user event dropped", zap.Error(err))
		return nil
	}
	if ev.Type == "" {
		ev.Type = topic
	}

	if err := a.ApplyUserEvent(ctx, ev); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			eventsTotal.WithLabelValues(topic, "invalid").Inc()
			log.Warn("invalid user event dropped", zap.Error(err))
			return nil
		}
		eventsTotal.WithLabelValues(topic, "error").Inc()
		log.Error("user event not applied", zap.String("user_id", ev.UserID), zap.Error(err))
		return err
	}
	eventsTotal.WithLabelValues(topic, "ok").Inc()
	return nil
}
