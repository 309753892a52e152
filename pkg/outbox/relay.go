package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/eloritzkovitz/voltrico/pkg/kafka"
)

// Publisher sends an event to a topic. *kafka.Producer satisfies this.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// RelayConfig holds relay tuning knobs.
type RelayConfig struct {
	// PollInterval is how often the relay checks for pending rows.
	PollInterval time.Duration

	// BatchSize is the maximum number of rows claimed per poll.
	BatchSize int

	// MaxAttempts is the number of publish attempts before a row is parked
	// as failed.
	MaxAttempts int
}

// DefaultRelayConfig returns sensible defaults for the relay.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		MaxAttempts:  5,
	}
}

// Relay polls the outbox table and publishes pending rows to Kafka.
type Relay struct {
	store     Store
	publisher Publisher
	cfg       RelayConfig
	logger    *slog.Logger
}

// NewRelay creates a relay over the given store and publisher.
func NewRelay(store Store, publisher Publisher, cfg RelayConfig, logger *slog.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Relay{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start runs the relay loop. It blocks until the context is canceled.
func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info("outbox relay started",
		slog.Duration("poll_interval", r.cfg.PollInterval),
		slog.Int("batch_size", r.cfg.BatchSize),
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.Error("outbox relay tick failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Tick claims one batch of pending rows and publishes them. It is exported so
// tests and one-shot maintenance commands can drive the relay directly.
func (r *Relay) Tick(ctx context.Context) error {
	rows, err := r.store.ClaimPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, row := range rows {
		r.publishRow(ctx, row)
	}

	return nil
}

func (r *Relay) publishRow(ctx context.Context, row *Row) {
	event, err := kafka.UnmarshalEvent(row.Payload)
	if err != nil {
		// The payload was written by our own transaction, so this only
		// happens on corruption. Park immediately.
		r.logger.Error("outbox row has invalid payload",
			slog.Int64("outbox_id", row.ID),
			slog.String("error", err.Error()),
		)
		r.markFailed(ctx, row, err, 1)
		return
	}

	if err := r.publisher.Publish(ctx, row.Topic, event); err != nil {
		RelayPublishFailures.WithLabelValues(row.Topic).Inc()
		r.logger.Warn("outbox publish failed",
			slog.Int64("outbox_id", row.ID),
			slog.String("topic", row.Topic),
			slog.String("event_type", row.EventType),
			slog.Int("attempts", row.Attempts+1),
			slog.String("error", err.Error()),
		)
		r.markFailed(ctx, row, err, r.cfg.MaxAttempts)
		return
	}

	if err := r.store.MarkPublished(ctx, row.ID); err != nil {
		// The event went out but the row is still claimed; the stale reclaim
		// will retry it and the consumer's idempotency guard absorbs the
		// duplicate.
		r.logger.Error("failed to mark outbox row published",
			slog.Int64("outbox_id", row.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	RelayPublished.WithLabelValues(row.Topic).Inc()
	RelayLag.WithLabelValues(row.Topic).Observe(time.Since(row.CreatedAt).Seconds())
}

func (r *Relay) markFailed(ctx context.Context, row *Row, cause error, maxAttempts int) {
	if err := r.store.MarkFailed(ctx, row.ID, cause, maxAttempts); err != nil {
		r.logger.Error("failed to mark outbox row failed",
			slog.Int64("outbox_id", row.ID),
			slog.String("error", err.Error()),
		)
	}
	if row.Attempts+1 >= maxAttempts {
		RelayParked.WithLabelValues(row.Topic).Inc()
		r.logger.Error("outbox row parked after exhausting attempts",
			slog.Int64("outbox_id", row.ID),
			slog.String("topic", row.Topic),
			slog.String("event_type", row.EventType),
			slog.String("entity_id", row.EntityID),
		)
	}
}
