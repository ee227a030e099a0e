package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/racegame-go/internal/leaderboard"
	"github.com/mcoot/racegame-go/internal/model"
)

// Board is a Redis-backed leaderboard. Results live in a sorted set scored
// by finish time in milliseconds. Members sort lexically within a score, so
// each member is prefixed with its zero-padded recording time.
type Board struct {
	client *redis.Client
	cfg    Config
}

var _ leaderboard.Board = (*Board)(nil)

// record is the stored form of an entry; it doubles as the set member, so
// it carries the session and timestamp to keep members unique
type record struct {
	SessionID  string    `json:"sessionId"`
	Name       string    `json:"name"`
	Vehicle    string    `json:"vehicle"`
	FinishMs   int64     `json:"finishMs"`
	Position   int       `json:"position"`
	RoomCode   string    `json:"roomCode"`
	RecordedAt time.Time `json:"recordedAt"`
}

// New connects to Redis and verifies the connection
func New(cfg Config) (*Board, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Board over an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Board {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = leaderboard.DefaultMaxEntries
	}
	return &Board{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (b *Board) Close() error {
	return b.client.Close()
}

func (b *Board) Record(ctx context.Context, entry leaderboard.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	rec := record{
		SessionID:  string(entry.SessionID),
		Name:       entry.Name,
		Vehicle:    entry.Vehicle,
		FinishMs:   entry.FinishTime.Milliseconds(),
		Position:   entry.Position,
		RoomCode:   string(entry.RoomCode),
		RecordedAt: entry.RecordedAt.UTC(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := resultsKey()
	pipe := b.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(rec.FinishMs), Member: member(rec.RecordedAt, data)})
	pipe.ZRemRangeByRank(ctx, key, int64(b.cfg.MaxEntries), -1)
	if b.cfg.ResultsTTL > 0 {
		pipe.Expire(ctx, key, b.cfg.ResultsTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (b *Board) Top(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	if limit <= 0 || limit > b.cfg.MaxEntries {
		limit = b.cfg.MaxEntries
	}

	members, err := b.client.ZRangeWithScores(ctx, resultsKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]leaderboard.Entry, 0, len(members))
	for _, z := range members {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}
		_, data, ok := strings.Cut(raw, memberSep)
		if !ok {
			return nil, fmt.Errorf("decode result: missing prefix in %q", raw)
		}
		var rec record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		entries = append(entries, leaderboard.Entry{
			SessionID:  model.SessionID(rec.SessionID),
			Name:       rec.Name,
			Vehicle:    rec.Vehicle,
			FinishTime: time.Duration(z.Score) * time.Millisecond,
			Position:   rec.Position,
			RoomCode:   model.RoomCode(rec.RoomCode),
			RecordedAt: rec.RecordedAt,
		})
	}
	return entries, nil
}

const memberSep = "|"

func member(recordedAt time.Time, data []byte) string {
	return fmt.Sprintf("%020d%s%s", max(recordedAt.UnixNano(), 0), memberSep, data)
}
