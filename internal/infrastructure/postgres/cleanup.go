package postgres

import (
	"context"
	"time"

	"github.com/terpspark/admission-service/internal/pkg/logger"
)

const (
	processedRetention  = 30 * 24 * time.Hour
	sentOutboxRetention = 7 * 24 * time.Hour
)

// StartRetentionCleanup periodically deletes old dedupe markers and
// already-published outbox rows so neither table grows without bound.
// Dead outbox rows are kept for inspection.
func (r *Repository) StartRetentionCleanup(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	go func() {
		log := logger.Logger.With().Str("component", "retention_cleanup").Logger()
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		// Run once immediately on startup
		r.cleanup(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stopped")
				return
			case <-ticker.C:
				r.cleanup(ctx)
			}
		}
	}()
}

func (r *Repository) cleanup(ctx context.Context) {
	now := time.Now().UTC()

	res, err := r.pool.Exec(ctx, `DELETE FROM processed_messages WHERE processed_at < $1`, now.Add(-processedRetention))
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("processed_messages cleanup failed")
		return
	}
	if n := res.RowsAffected(); n > 0 {
		logger.Logger.Info().Int64("deleted", n).Msg("processed messages cleaned up")
	}

	res, err = r.pool.Exec(ctx, `DELETE FROM outbox WHERE status = 'sent' AND occurred_at < $1`, now.Add(-sentOutboxRetention))
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("outbox cleanup failed")
		return
	}
	if n := res.RowsAffected(); n > 0 {
		logger.Logger.Info().Int64("deleted", n).Msg("sent outbox rows cleaned up")
	}
}
