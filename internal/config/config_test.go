package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, args []string, configFile string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return Load(viper.New(), fs, configFile)
}

func TestDefaults(t *testing.T) {
	cfg, err := load(t, nil, "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "memory", cfg.ResultsBackend)
	assert.False(t, cfg.GateMoves)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestBarePortEnv(t *testing.T) {
	t.Setenv("PORT", "9191")

	cfg, err := load(t, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Port)
}

func TestPrefixedEnv(t *testing.T) {
	t.Setenv("RACE_LOG_LEVEL", "debug")
	t.Setenv("RACE_GATE_MOVES", "true")
	t.Setenv("RACE_RESULTS_BACKEND", "none")
	t.Setenv("RACE_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := load(t, nil, "")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.GateMoves)
	assert.Equal(t, "none", cfg.ResultsBackend)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.AllowedOrigins)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("PORT", "9191")

	cfg, err := load(t, []string{"--port", "7000", "--log-format", "text"}, "")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "race.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 6060\nresults-backend: redis\nredis-url: redis://cache:6379\n"), 0o600))

	cfg, err := load(t, nil, path)
	require.NoError(t, err)
	assert.Equal(t, 6060, cfg.Port)
	assert.Equal(t, "redis", cfg.ResultsBackend)
	assert.Equal(t, "redis://cache:6379", cfg.RedisURL)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := load(t, nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad port", []string{"--port", "70000"}},
		{"bad backend", []string{"--results-backend", "postgres"}},
		{"bad format", []string{"--log-format", "xml"}},
		{"bad level", []string{"--log-level", "loud"}},
		{"bad max results", []string{"--max-results", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(t, tt.args, "")
			assert.Error(t, err)
		})
	}
}
