package share

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger periodically deletes expired share tokens. Expired tokens are
// already unusable; the purge keeps the table from accumulating them.
type Purger struct {
	svc      *Service
	interval time.Duration
	logger   zerolog.Logger
}

// NewPurger creates a purger running at the given interval.
func NewPurger(svc *Service, interval time.Duration, logger zerolog.Logger) *Purger {
	return &Purger{svc: svc, interval: interval,
		logger: logger.With().Str("component", "share-purger").Logger()}
}

// Run blocks until ctx is cancelled, purging on every tick.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.svc.PurgeExpired(ctx)
			if err != nil {
				p.logger.Error().Err(err).Msg("purge failed")
				continue
			}
			if n > 0 {
				p.logger.Info().Int64("purged", n).Msg("expired share links removed")
			}
		}
	}
}
