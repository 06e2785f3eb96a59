package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
)

var publishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "user_outbox_events_total",
		Help: "Outbox rows handed to Kafka, by result",
	},
	[]string{"result"},
)

type Store interface {
	Fetch(ctx context.Context, limit int) ([]Row, error)
	MarkPublished(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Publisher polls the outbox table and forwards unpublished events to Kafka.
type Publisher struct {
	store     Store
	producer  Producer
	interval  time.Duration
	batchSize int
}

func NewPublisher(store Store, producer Producer) *Publisher {
	return &Publisher{store: store, producer: producer, interval: 2 * time.Second, batchSize: 50}
}

// Start blocks until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishBatch(ctx)
		}
	}
}

// publishBatch returns the number of rows delivered. A row that fails stops
// the batch so later events for the same user are not delivered ahead of it.
func (p *Publisher) publishBatch(ctx context.Context) int {
	log := observability.GetLogger(ctx)

	rows, err := p.store.Fetch(ctx, p.batchSize)
	if err != nil {
		log.Error("outbox fetch failed", zap.Error(err))
		return 0
	}

	sent := 0
	for _, row := range rows {
		pctx := ctx
		if len(row.Headers) > 0 {
			pctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(row.Headers))
		}
		if err := p.producer.Publish(pctx, row.Topic, []byte(row.Key), row.Payload); err != nil {
			publishedTotal.WithLabelValues("failed").Inc()
			log.Warn("kafka publish failed",
				zap.String("topic", row.Topic),
				zap.String("id", row.ID),
				zap.Int("attempt", row.Attempts+1),
				zap.Error(err),
			)
			if merr := p.store.MarkFailed(ctx, row.ID, err.Error()); merr != nil {
				log.Error("outbox mark failed failed", zap.String("id", row.ID), zap.Error(merr))
			}
			if row.Attempts+1 >= MaxAttempts {
				log.Error("outbox row abandoned", zap.String("id", row.ID), zap.String("topic", row.Topic))
				continue
			}
			break
		}

		if err := p.store.MarkPublished(ctx, row.ID); err != nil {
			log.Error("outbox mark published failed", zap.String("id", row.ID), zap.Error(err))
			continue
		}
		publishedTotal.WithLabelValues("ok").Inc()
		sent++
	}
	return sent
}

type Purger interface {
	DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error)
}

// PurgeJob removes delivered rows once they are older than Retention.
type PurgeJob struct {
	Store     Purger
	Retention time.Duration

	now func() time.Time
}

func NewPurgeJob(s Purger, retention time.Duration) *PurgeJob {
	return &PurgeJob{Store: s, Retention: retention, now: func() time.Time { return time.Now().UTC() }}
}

func (j *PurgeJob) Name() string { return "user_outbox_purge" }

func (j *PurgeJob) Run(ctx context.Context) error {
	n, err := j.Store.DeletePublishedBefore(ctx, j.now().Add(-j.Retention))
	if err != nil {
		return fmt.Errorf("purge outbox: %w", err)
	}
	observability.GetLogger(ctx).Info("outbox purge done", zap.Int64("rows_deleted", n))
	return nil
}
