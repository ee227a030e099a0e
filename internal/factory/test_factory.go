package factory

import (
	"time"

	"github.com/mcoot/racegame-go/internal/dependencies/mocks"
	memoryboard "github.com/mcoot/racegame-go/internal/leaderboard/memory"
	"github.com/mcoot/racegame-go/internal/storage/memory"
	"github.com/mcoot/racegame-go/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Board      *memoryboard.Board
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithConfig(Config{})
}

// NewTestAppWithConfig is NewTestApp with a custom policy or websocket config
func NewTestAppWithConfig(cfg Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	board := memoryboard.New(cfg.MaxResults)

	app := newWithDependencies(memory.New(), board, mockClock, mockRandom, cfg, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Board:      board,
	}
}
