package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/racegame-go/internal/dependencies/random"
)

// MockRandom replays queued codes and hands out sequential ids.
// When the code queue is empty it falls back to a fixed code so that
// exhaustion paths can be driven deterministically.
type MockRandom struct {
	mu       sync.Mutex
	codes    []string
	fallback string
	ids      []string
	idSeq    int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a MockRandom whose fallback code is "ZZZZ"
func NewMockRandom() *MockRandom {
	return &MockRandom{fallback: "ZZZZ"}
}

func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.codes) == 0 {
		return r.fallback
	}
	next := r.codes[0]
	r.codes = r.codes[1:]
	return next
}

func (r *MockRandom) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ids) > 0 {
		next := r.ids[0]
		r.ids = r.ids[1:]
		return next
	}
	r.idSeq++
	return fmt.Sprintf("session-%d", r.idSeq)
}

// QueueString appends codes to be returned by String
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, values...)
}

// QueueID appends ids to be returned by ID before the sequential fallback
func (r *MockRandom) QueueID(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, values...)
}

// SetFallback changes the code returned once the queue is drained
func (r *MockRandom) SetFallback(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = code
}
