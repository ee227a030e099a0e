package redis

import "time"

// Config holds Redis connection and retention settings for the results board
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// MaxEntries is how many of the best results are retained
	MaxEntries int

	// ResultsTTL expires the board when no race has finished for this long.
	// Zero disables expiry.
	ResultsTTL time.Duration
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		MaxEntries:   100,
		ResultsTTL:   7 * 24 * time.Hour,
	}
}
