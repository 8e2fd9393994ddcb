package client

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

const DefaultPollInterval = 5 * time.Second

// Watcher polls a draft and reports each new version once.
type Watcher struct {
	Client   *Client
	DraftID  string
	Interval time.Duration
	Logger   *zap.Logger
}

// Run polls until ctx ends, the draft completes or the draft disappears.
// onChange sees the first state and then every state with a new version.
// A completed draft is delivered before Run returns nil.
func (w *Watcher) Run(ctx context.Context, onChange func(engine.Draft)) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seen int64 = -1
	for {
		d, err := w.Client.Get(ctx, w.DraftID)
		switch {
		case errors.Is(err, ErrNotFound):
			return err
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Transient; the next tick tries again.
			log.Warn("poll failed", zap.String("draft_id", w.DraftID), zap.Error(err))
		case d.Version != seen:
			seen = d.Version
			onChange(d)
			if d.IsComplete() {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
