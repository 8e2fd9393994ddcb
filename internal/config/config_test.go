package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 24*time.Hour, cfg.DraftTTL)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.LobbyIdle)
	assert.Equal(t, "14.11.1", cfg.DDragonVersion)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DRAFT_STORE", "tiered")
	t.Setenv("DRAFT_TTL", "90m")
	t.Setenv("PORT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StoreTiered, cfg.Store)
	assert.Equal(t, 90*time.Minute, cfg.DraftTTL)
	assert.Equal(t, 9000, cfg.Port)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DDRAGON_VERSION=15.1.1\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DDRAGON_VERSION") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "15.1.1", cfg.DDragonVersion)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown store", "DRAFT_STORE", "sqlite"},
		{"zero ttl", "DRAFT_TTL", "0s"},
		{"bad duration", "DRAFT_TTL", "soon"},
		{"port out of range", "PORT", "70000"},
		{"zero sweep interval", "DRAFT_SWEEP_INTERVAL", "0s"},
		{"negative sweep interval", "DRAFT_SWEEP_INTERVAL", "-1m"},
		{"negative lobby idle timeout", "LOBBY_IDLE_TIMEOUT", "-1m"},
		{"zero catalog ttl", "CATALOG_TTL", "0s"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))

	_, err = NewLogger("loud", false)
	assert.Error(t, err)
}
