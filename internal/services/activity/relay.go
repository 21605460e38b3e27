package activity

import (
	"context"
	"log/slog"
	"time"
)

const relayBatchSize = 100

// Exporter receives every published batch, e.g. an analytics sink.
type Exporter interface {
	Export(ctx context.Context, logs []*Log) error
}

// Relay drains the activity outbox into the log.
type Relay struct {
	repo     Repository
	exporter Exporter
}

// NewRelay builds a relay. exporter may be nil.
func NewRelay(repo Repository, exporter Exporter) *Relay {
	return &Relay{repo: repo, exporter: exporter}
}

// Flush publishes outbox rows until the outbox is empty and returns how many moved.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		published, err := r.repo.PublishOutbox(ctx, relayBatchSize)
		if err != nil {
			return total, err
		}
		total += len(published)

		if r.exporter != nil && len(published) > 0 {
			if err := r.exporter.Export(ctx, published); err != nil {
				slog.WarnContext(ctx, "Failed to export activity logs", slog.Int("count", len(published)), slog.Any("error", err))
			}
		}

		if len(published) < relayBatchSize {
			return total, nil
		}
	}
}

// Run flushes every interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Activity relay started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			slog.Info("Activity relay stopped")
			return
		case <-ticker.C:
			n, err := r.Flush(ctx)
			if err != nil {
				slog.Error("Failed to flush activity outbox", slog.Any("error", err))
				continue
			}
			if n > 0 {
				slog.Debug("Published activity logs", slog.Int("count", n))
			}
		}
	}
}
