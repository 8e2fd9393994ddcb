package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunJanitor sweeps expired drafts every interval until ctx is done.
func RunJanitor(ctx context.Context, s Sweeper, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.Warn("draft sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("removed expired drafts", zap.Int("count", n))
			}
		}
	}
}
