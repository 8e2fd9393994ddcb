//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) (string, string) {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, nat.Port(req.ExposedPorts[0]))
	require.NoError(t, err)
	return host, port.Port()
}

func openRedis(t *testing.T) *Redis {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	})
	r, err := OpenRedis(context.Background(), fmt.Sprintf("redis://%s:%s/0", host, port))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func openPostgres(t *testing.T) *Postgres {
	host, port := startContainer(t, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "drafts",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	})
	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/drafts?sslmode=disable", host, port)
	p, err := OpenPostgres(context.Background(), dsn, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// exerciseStore runs the contract every backend must satisfy.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	d := sampleDraft("INT001", time.Now())

	require.NoError(t, s.Create(ctx, d, time.Hour))
	assert.ErrorIs(t, s.Create(ctx, d, time.Hour), ErrExists)

	got, err := s.Get(ctx, "int001")
	require.NoError(t, err)
	assert.Equal(t, "INT001", got.ID)

	next := got
	next.Version = 1
	require.NoError(t, s.Save(ctx, next, 0, time.Hour))
	assert.ErrorIs(t, s.Save(ctx, next, 0, time.Hour), ErrConflict)

	written, err := s.PutIfNewer(ctx, got, time.Hour)
	require.NoError(t, err)
	assert.False(t, written, "older copy must not replace version 1")
	got, err = s.Get(ctx, "INT001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	require.NoError(t, s.Delete(ctx, "INT001"))
	_, err = s.Get(ctx, "INT001")
	assert.ErrorIs(t, err, ErrNotFound)

	short := sampleDraft("INT002", time.Now())
	require.NoError(t, s.Put(ctx, short, time.Second))
	time.Sleep(1500 * time.Millisecond)
	_, err = s.Get(ctx, "INT002")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	exerciseStore(t, openRedis(t))
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, openPostgres(t))
}

func TestTieredRedisPostgres(t *testing.T) {
	exerciseStore(t, NewTiered(zap.NewNop(), time.Hour, openRedis(t), openPostgres(t)))
}
