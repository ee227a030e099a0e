package leaderboard

import (
	"context"
	"log/slog"
	"time"
)

const recordTimeout = 2 * time.Second

// Recorder writes entries to a Board off the caller's goroutine. Submit never
// blocks; entries are dropped when the queue is full.
type Recorder struct {
	board  Board
	queue  chan Entry
	logger *slog.Logger
}

// NewRecorder creates a Recorder with the given queue size
func NewRecorder(board Board, queueSize int, logger *slog.Logger) *Recorder {
	return &Recorder{
		board:  board,
		queue:  make(chan Entry, queueSize),
		logger: logger.With(slog.String("component", "results")),
	}
}

// Submit queues an entry for recording
func (r *Recorder) Submit(entry Entry) bool {
	select {
	case r.queue <- entry:
		return true
	default:
		r.logger.Warn("result dropped - queue full",
			slog.String("room", string(entry.RoomCode)),
			slog.String("session", string(entry.SessionID)))
		return false
	}
}

// Run drains the queue until ctx is cancelled
func (r *Recorder) Run(ctx context.Context) {
	r.logger.Info("results recorder started")
	for {
		select {
		case entry := <-r.queue:
			r.record(ctx, entry)
		case <-ctx.Done():
			r.logger.Info("results recorder stopped", slog.Int("pending", len(r.queue)))
			return
		}
	}
}

func (r *Recorder) record(ctx context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := r.board.Record(ctx, entry); err != nil {
		r.logger.Error("failed to record result",
			slog.String("room", string(entry.RoomCode)),
			slog.String("session", string(entry.SessionID)),
			slog.Any("error", err))
	}
}
