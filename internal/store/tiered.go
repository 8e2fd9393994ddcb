package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

// Tiered composes stores ordered fastest first. The last store is
// authoritative: creates and compare-and-swap saves run against it, and the
// faster tiers hold best-effort copies.
type Tiered struct {
	tiers  []Store
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewTiered needs at least one store. ttl is the draft TTL used to work out
// how long a backfilled copy may live.
func NewTiered(logger *zap.Logger, ttl time.Duration, tiers ...Store) *Tiered {
	if len(tiers) == 0 {
		panic("store: NewTiered needs at least one tier")
	}
	return &Tiered{tiers: tiers, ttl: ttl, now: time.Now, logger: logger}
}

func (t *Tiered) primary() Store { return t.tiers[len(t.tiers)-1] }
func (t *Tiered) caches() []Store { return t.tiers[:len(t.tiers)-1] }

func (t *Tiered) Get(ctx context.Context, id string) (engine.Draft, error) {
	var errs error
	last := len(t.tiers) - 1
	for i, tier := range t.tiers {
		d, err := tier.Get(ctx, id)
		if err == nil {
			t.backfill(ctx, d, t.tiers[:i])
			return d, nil
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		errs = multierr.Append(errs, err)
		if i == last {
			// Only an authoritative failure turns a miss into an error.
			return engine.Draft{}, errs
		}
		t.logger.Warn("draft tier read failed", zap.Int("tier", i), zap.String("draft_id", id), zap.Error(err))
	}
	return engine.Draft{}, ErrNotFound
}

// backfill copies d into faster tiers with whatever lifetime it has left.
// A tier that already holds a newer version keeps it: a write committed
// while this read was in flight must not be replaced by the older copy.
func (t *Tiered) backfill(ctx context.Context, d engine.Draft, tiers []Store) {
	remaining := d.UpdatedAt.Add(t.ttl).Sub(t.now())
	if remaining <= 0 || len(tiers) == 0 {
		return
	}
	var errs error
	for _, tier := range tiers {
		_, err := tier.PutIfNewer(ctx, d, remaining)
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		t.logger.Warn("draft backfill failed", zap.String("draft_id", d.ID), zap.Error(errs))
	}
}

// refresh writes d to every cache tier, invalidating any tier that cannot
// take the write so it cannot serve a stale copy.
func (t *Tiered) refresh(ctx context.Context, d engine.Draft, ttl time.Duration) {
	var errs error
	for _, tier := range t.caches() {
		if err := tier.Put(ctx, d, ttl); err != nil {
			errs = multierr.Append(errs, err)
			errs = multierr.Append(errs, tier.Delete(ctx, d.ID))
		}
	}
	if errs != nil {
		t.logger.Warn("draft cache refresh failed", zap.String("draft_id", d.ID), zap.Error(errs))
	}
}

func (t *Tiered) invalidate(ctx context.Context, id string) {
	var errs error
	for _, tier := range t.caches() {
		errs = multierr.Append(errs, tier.Delete(ctx, id))
	}
	if errs != nil {
		t.logger.Warn("draft cache invalidation failed", zap.String("draft_id", id), zap.Error(errs))
	}
}

func (t *Tiered) Create(ctx context.Context, d engine.Draft, ttl time.Duration) error {
	if err := t.primary().Create(ctx, d, ttl); err != nil {
		return err
	}
	t.refresh(ctx, d, ttl)
	return nil
}

func (t *Tiered) Save(ctx context.Context, d engine.Draft, expected int64, ttl time.Duration) error {
	err := t.primary().Save(ctx, d, expected, ttl)
	if err != nil {
		// A conflict or miss means the caches were behind; drop them so the
		// retry reads the authoritative copy.
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			t.invalidate(ctx, d.ID)
		}
		return err
	}
	t.refresh(ctx, d, ttl)
	return nil
}

func (t *Tiered) Put(ctx context.Context, d engine.Draft, ttl time.Duration) error {
	if err := t.primary().Put(ctx, d, ttl); err != nil {
		return err
	}
	t.refresh(ctx, d, ttl)
	return nil
}

func (t *Tiered) PutIfNewer(ctx context.Context, d engine.Draft, ttl time.Duration) (bool, error) {
	written, err := t.primary().PutIfNewer(ctx, d, ttl)
	if err != nil || !written {
		return false, err
	}
	t.refresh(ctx, d, ttl)
	return true, nil
}

func (t *Tiered) Delete(ctx context.Context, id string) error {
	var errs error
	for _, tier := range t.tiers {
		errs = multierr.Append(errs, tier.Delete(ctx, id))
	}
	return errs
}

func (t *Tiered) Sweep(ctx context.Context) (int, error) {
	var (
		total int
		errs  error
	)
	for _, tier := range t.tiers {
		if s, ok := tier.(Sweeper); ok {
			n, err := s.Sweep(ctx)
			total += n
			errs = multierr.Append(errs, err)
		}
	}
	return total, errs
}
