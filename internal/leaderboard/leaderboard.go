package leaderboard

import (
	"cmp"
	"context"
	"time"

	"github.com/mcoot/racegame-go/internal/model"
)

// DefaultMaxEntries bounds how many results a board retains
const DefaultMaxEntries = 100

// Entry is one recorded finish of a started race
type Entry struct {
	SessionID  model.SessionID
	Name       string
	Vehicle    string
	FinishTime time.Duration
	Position   int
	RoomCode   model.RoomCode
	RecordedAt time.Time
}

// Validate rejects entries that cannot be ranked
func (e Entry) Validate() error {
	if e.FinishTime <= 0 || e.Position < 1 {
		return model.ErrInvalidResult
	}
	return nil
}

// Compare orders entries fastest first, earlier recordings winning ties
func Compare(a, b Entry) int {
	if c := cmp.Compare(a.FinishTime, b.FinishTime); c != 0 {
		return c
	}
	return a.RecordedAt.Compare(b.RecordedAt)
}

// Board stores the best finish times across all rooms
type Board interface {
	Record(ctx context.Context, entry Entry) error
	Top(ctx context.Context, limit int) ([]Entry, error)
}

// Nop is a Board that keeps nothing
type Nop struct{}

var _ Board = Nop{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Top(context.Context, int) ([]Entry, error) { return nil, nil }
