package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTokenTTL)
	assert.NoError(t, cfg.Validate())
}

func TestSimpleLoaderYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9090"
  read_timeout: 5s
logger:
  level: debug
`), 0o644))

	cfg := &Config{}
	require.NoError(t, NewSimpleLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Logger.Level)
	// Untouched fields keep their defaults.
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
}

func TestSimpleLoaderEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  address: \":9090\"\n"), 0o644))

	t.Setenv("VIREO_SERVER_ADDRESS", ":7070")
	t.Setenv("VIREO_RATE_LIMIT_ENABLED", "true")
	t.Setenv("VIREO_RATE_LIMIT_RATE", "2.5")

	cfg := &Config{}
	require.NoError(t, NewSimpleLoader().WithYAMLFile(path).Load(cfg))

	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 2.5, cfg.RateLimit.Rate)
}

func TestSimpleLoaderMissingFileIsSkipped(t *testing.T) {
	cfg := &Config{}
	err := NewSimpleLoader().WithYAMLFile("/nonexistent/config.yaml").Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestSimpleLoaderBadEnvValue(t *testing.T) {
	t.Setenv("VIREO_SERVER_READ_TIMEOUT", "not-a-duration")

	cfg := &Config{}
	err := NewSimpleLoader().Load(cfg)
	assert.Error(t, err)
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logger.Level = "chatty"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEnabledZeroRate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Rate = 0
	assert.Error(t, cfg.Validate())
}

func TestBuildLogger(t *testing.T) {
	cfg := DefaultConfig()
	logger, err := cfg.BuildLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.Logger.Level = "nope"
	_, err = cfg.BuildLogger()
	assert.Error(t, err)
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: info\n"), 0o644))

	var reloads atomic.Int32
	var gotLevel atomic.Value
	w, err := Watch(path, zap.NewNop(), func(cfg *Config) {
		gotLevel.Store(cfg.Logger.Level)
		reloads.Add(1)
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("logger:\n  level: debug\n"), 0o644))

	require.Eventually(t, func() bool {
		return reloads.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "debug", gotLevel.Load())
}
