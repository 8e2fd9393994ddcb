package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DoyleJ11/lol-draft-room/internal/engine"
)

// Redis stores each draft as a JSON string under "draft:{ID}" and lets the
// server expire keys.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// OpenRedis parses a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedis(client), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, id string) (engine.Draft, error) {
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.Draft{}, ErrNotFound
	}
	if err != nil {
		return engine.Draft{}, fmt.Errorf("error getting draft %s: %w", id, err)
	}
	return decodeDraft(id, data)
}

func (r *Redis) Create(ctx context.Context, d engine.Draft, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("error marshaling draft %s: %w", d.ID, err)
	}
	ok, err := r.client.SetNX(ctx, key(d.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("error creating draft %s: %w", d.ID, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (r *Redis) Save(ctx context.Context, d engine.Draft, expected int64, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("error marshaling draft %s: %w", d.ID, err)
	}

	k := key(d.ID)
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeDraft(d.ID, raw)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, ttl)
			return nil
		})
		return err
	}, k)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrConflict
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	default:
		return fmt.Errorf("error saving draft %s: %w", d.ID, err)
	}
}

func (r *Redis) Put(ctx context.Context, d engine.Draft, ttl time.Duration) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("error marshaling draft %s: %w", d.ID, err)
	}
	if err := r.client.Set(ctx, key(d.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("error putting draft %s: %w", d.ID, err)
	}
	return nil
}

// PutIfNewer compares versions under WATCH. A concurrent write to the key
// aborts the transaction and counts as not written.
func (r *Redis) PutIfNewer(ctx context.Context, d engine.Draft, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("error marshaling draft %s: %w", d.ID, err)
	}

	k := key(d.ID)
	written := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			current, err := decodeDraft(d.ID, raw)
			if err != nil {
				return err
			}
			if current.Version >= d.Version {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, ttl)
			return nil
		})
		if err == nil {
			written = true
		}
		return err
	}, k)

	switch {
	case err == nil:
		return written, nil
	case errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("error backfilling draft %s: %w", d.ID, err)
	}
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("error deleting draft %s: %w", id, err)
	}
	return nil
}

func decodeDraft(id string, data []byte) (engine.Draft, error) {
	var d engine.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return engine.Draft{}, fmt.Errorf("error unmarshaling draft %s: %w", id, err)
	}
	return d, nil
}
