package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable except PORT
const EnvPrefix = "RACE"

// Flag and config keys
const (
	KeyHost            = "host"
	KeyPort            = "port"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyGateMoves       = "gate-moves"
	KeyResultsBackend  = "results-backend"
	KeyRedisURL        = "redis-url"
	KeyMaxResults      = "max-results"
	KeyAllowedOrigins  = "allowed-origins"
	KeyShutdownTimeout = "shutdown-timeout"
)

// Config is the resolved server configuration
type Config struct {
	Host            string
	Port            int
	LogLevel        slog.Level
	LogFormat       string
	GateMoves       bool
	ResultsBackend  string
	RedisURL        string
	MaxResults      int
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Host:            "",
		Port:            8080,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "json",
		ResultsBackend:  "memory",
		RedisURL:        "redis://localhost:6379",
		MaxResults:      100,
		ShutdownTimeout: 30 * time.Second,
	}
}

// RegisterFlags adds every server setting to fs with its default
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(KeyHost, d.Host, "interface to listen on (empty for all)")
	fs.Int(KeyPort, d.Port, "port to listen on (env PORT)")
	fs.String(KeyLogLevel, d.LogLevel.String(), "log level: debug, info, warn, error")
	fs.String(KeyLogFormat, d.LogFormat, "log format: json or text")
	fs.Bool(KeyGateMoves, d.GateMoves, "ignore position updates until the race has started")
	fs.String(KeyResultsBackend, d.ResultsBackend, "results board backend: memory, redis or none")
	fs.String(KeyRedisURL, d.RedisURL, "redis URL for the results board")
	fs.Int(KeyMaxResults, d.MaxResults, "number of best results retained")
	fs.StringSlice(KeyAllowedOrigins, nil, "allowed CORS and websocket origins (default all)")
	fs.Duration(KeyShutdownTimeout, d.ShutdownTimeout, "graceful shutdown timeout")
}

// Load resolves configuration with precedence flag > env > config file > default.
// configFile may be empty.
func Load(v *viper.Viper, fs *pflag.FlagSet, configFile string) (Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// the listening port also honours the bare PORT variable
	if err := v.BindEnv(KeyPort, EnvPrefix+"_PORT", "PORT"); err != nil {
		return Config{}, err
	}
	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	cfg := Config{
		Host:            v.GetString(KeyHost),
		Port:            v.GetInt(KeyPort),
		LogFormat:       strings.ToLower(v.GetString(KeyLogFormat)),
		GateMoves:       v.GetBool(KeyGateMoves),
		ResultsBackend:  strings.ToLower(v.GetString(KeyResultsBackend)),
		RedisURL:        v.GetString(KeyRedisURL),
		MaxResults:      v.GetInt(KeyMaxResults),
		AllowedOrigins:  splitList(v.GetStringSlice(KeyAllowedOrigins)),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid %s %d", KeyPort, c.Port))
	}
	if !lo.Contains([]string{"json", "text"}, c.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid %s %q: must be json or text", KeyLogFormat, c.LogFormat))
	}
	if !lo.Contains([]string{"memory", "redis", "none"}, c.ResultsBackend) {
		errs = append(errs, fmt.Errorf("invalid %s %q: must be memory, redis or none", KeyResultsBackend, c.ResultsBackend))
	}
	if c.ResultsBackend == "redis" && c.RedisURL == "" {
		errs = append(errs, fmt.Errorf("%s is required for the redis backend", KeyRedisURL))
	}
	if c.MaxResults < 1 {
		errs = append(errs, fmt.Errorf("invalid %s %d", KeyMaxResults, c.MaxResults))
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger described by the config
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// splitList accepts both repeated values and comma separated lists, as env vars arrive as one string
func splitList(values []string) []string {
	out := lo.FlatMap(values, func(v string, _ int) []string {
		return strings.Split(v, ",")
	})
	out = lo.Map(out, func(v string, _ int) string { return strings.TrimSpace(v) })
	return lo.Compact(out)
}
