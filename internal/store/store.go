// Package store persists drafts keyed by their code with a sliding expiry.
//
// Every backend upper-cases ids, treats expired records as absent, and
// implements Save as a compare-and-swap on Draft.Version so that writers in
// different processes cannot silently overwrite each other.
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

const DefaultTTL = 24 * time.Hour

var (
	ErrNotFound = errors.New("draft not found")
	ErrExists   = errors.New("draft id already in use")
	ErrConflict = errors.New("draft was modified concurrently")
)

type Store interface {
	// Get returns ErrNotFound for unknown and expired ids.
	Get(ctx context.Context, id string) (engine.Draft, error)
	// Create fails with ErrExists when a live draft already uses d.ID.
	Create(ctx context.Context, d engine.Draft, ttl time.Duration) error
	// Save replaces the draft only if the stored version equals expected.
	Save(ctx context.Context, d engine.Draft, expected int64, ttl time.Duration) error
	// Put writes d unconditionally.
	Put(ctx context.Context, d engine.Draft, ttl time.Duration) error
	// PutIfNewer writes d unless a live copy with the same or a higher
	// version is already stored. It reports whether d was written.
	PutIfNewer(ctx context.Context, d engine.Draft, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Sweeper is implemented by backends that cannot expire keys on their own.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

const (
	idLength  = 6
	idCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewID returns a random draft code. Uniqueness is probabilistic; callers
// rely on Create returning ErrExists to detect collisions.
func NewID() (string, error) {
	code := make([]byte, idLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(idCharset))))
		if err != nil {
			return "", err
		}
		code[i] = idCharset[num.Int64()]
	}
	return string(code), nil
}

func key(id string) string {
	return "draft:" + engine.NormalizeID(id)
}
