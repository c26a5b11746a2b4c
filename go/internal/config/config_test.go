package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, FeedNATS, cfg.Feed.Kind)
	assert.Equal(t, "ROULETTE_EVENTS", cfg.Feed.NATS.StreamName)
	assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
transport:
  base_url: http://wasp:9090
  h2c: true
  timeout: 5s
session:
  chain_id: chain-1
  funds_interval: 3s
pow:
  difficulty: 8
feed:
  kind: websocket
  websocket:
    url: ws://wasp:9090/events
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://wasp:9090", cfg.Transport.BaseURL)
	assert.True(t, cfg.Transport.H2C)
	assert.Equal(t, 5*time.Second, cfg.Transport.Timeout)
	assert.Equal(t, "chain-1", cfg.Session.ChainID)
	assert.Equal(t, 3*time.Second, cfg.Session.FundsInterval)
	assert.Equal(t, 8, cfg.PoW.Difficulty)
	assert.Equal(t, FeedWebSocket, cfg.Feed.Kind)
	assert.Equal(t, "ws://wasp:9090/events", cfg.Feed.WebSocket.URL)
	// untouched sections keep their defaults
	assert.Equal(t, "roulette.events", cfg.Feed.NATS.SubjectPrefix)
}

func TestLoad_EnvWins(t *testing.T) {
	path := writeConfig(t, "session:\n  chain_id: from-file\n")
	t.Setenv("CHAIN_ID", "from-env")
	t.Setenv("POW_WORKERS", "3")
	t.Setenv("ARCHIVE_ENABLED", "true")
	t.Setenv("ROULETTE_H2C", "not-a-bool")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Session.ChainID)
	assert.Equal(t, 3, cfg.PoW.Workers)
	assert.True(t, cfg.Archive.Enabled)
	assert.False(t, cfg.Transport.H2C)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "feed: [not, a, map]"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "feed:\n  kind: carrier-pigeon\n"))
	assert.ErrorContains(t, err, "unknown feed kind")

	_, err = Load(writeConfig(t, "feed:\n  kind: websocket\n"))
	assert.ErrorContains(t, err, "feed.websocket.url")

	_, err = Load(writeConfig(t, "pow:\n  difficulty: -1\n"))
	assert.ErrorContains(t, err, "pow.difficulty")
}

func TestLoad_DifficultyFromEnvIsRangeChecked(t *testing.T) {
	t.Setenv("POW_DIFFICULTY", "300")
	_, err := Load("")
	assert.ErrorContains(t, err, "pow.difficulty 300 out of range")

	t.Setenv("POW_DIFFICULTY", "256")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.PoW.Difficulty)
}
