package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/tokenlens/internal/config"
	"github.com/hunterwarburton/tokenlens/internal/solana"
)

var envKeys = []string{
	"SOLANA_RPC_URL", "TOKEN_API_URL", "TOKEN_API_KEY", "TOKEN_REGISTRY_URL",
	"JUPITER_LIST_URL", "LIST_FETCH_TIMEOUT", "BATCH_CONCURRENCY", "BATCH_PAUSE",
	"OFFCHAIN_LOGOS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_TTL",
	"TG_BOT_TOKEN", "ADMIN_USER_IDS", "ALLOWED_USER_IDS", "LOG_LEVEL",
	"LOG_FORMAT", "LOG_DIR", "LOG_COMPRESS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, solana.DefaultMainnetEndpoint, cfg.Solana.RPCURL)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Sources.ListFetchTimeout)
	assert.Empty(t, cfg.Sources.APIURL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.Solana.OffChainLogos)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tokenlens.yaml")
	yamlDoc := `
solana:
  rpc_url: https://rpc.example.com
sources:
  api_url: https://meta.example.com/api/token-metadata
  list_fetch_timeout: 3s
batch:
  concurrency: 8
  pause: 250ms
redis:
  addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("BATCH_CONCURRENCY", "3")
	t.Setenv("OFFCHAIN_LOGOS", "false")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://rpc.example.com", cfg.Solana.RPCURL)
	assert.Equal(t, "https://meta.example.com/api/token-metadata", cfg.Sources.APIURL)
	assert.Equal(t, 3*time.Second, cfg.Sources.ListFetchTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Batch.Pause)
	assert.Equal(t, 3, cfg.Batch.Concurrency, "env overrides file")
	assert.False(t, cfg.Solana.OffChainLogos)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_API_URL", "ftp://nope")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "sources.api_url")

	clearEnv(t)
	t.Setenv("BATCH_PAUSE", "soon")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "BATCH_PAUSE")
}
