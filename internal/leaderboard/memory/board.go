package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/racegame-go/internal/leaderboard"
)

// Board is an in-memory leaderboard keeping only the best entries
type Board struct {
	mu         sync.RWMutex
	entries    []leaderboard.Entry
	maxEntries int
}

var _ leaderboard.Board = (*Board)(nil)

// New creates a Board retaining at most maxEntries results
func New(maxEntries int) *Board {
	if maxEntries <= 0 {
		maxEntries = leaderboard.DefaultMaxEntries
	}
	return &Board{maxEntries: maxEntries}
}

func (b *Board) Record(ctx context.Context, entry leaderboard.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i, _ := slices.BinarySearchFunc(b.entries, entry, leaderboard.Compare)
	// equal entries keep arrival order
	for i < len(b.entries) && leaderboard.Compare(b.entries[i], entry) == 0 {
		i++
	}
	if i >= b.maxEntries {
		return nil
	}
	b.entries = slices.Insert(b.entries, i, entry)
	if len(b.entries) > b.maxEntries {
		b.entries = b.entries[:b.maxEntries]
	}
	return nil
}

func (b *Board) Top(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if limit <= 0 || limit > len(b.entries) {
		limit = len(b.entries)
	}
	return slices.Clone(b.entries[:limit]), nil
}
