package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/racegame-go/internal/api"
	"github.com/mcoot/racegame-go/internal/broadcast"
	"github.com/mcoot/racegame-go/internal/coordinator"
	"github.com/mcoot/racegame-go/internal/dependencies/clock"
	"github.com/mcoot/racegame-go/internal/dependencies/random"
	"github.com/mcoot/racegame-go/internal/leaderboard"
	memoryboard "github.com/mcoot/racegame-go/internal/leaderboard/memory"
	redisboard "github.com/mcoot/racegame-go/internal/leaderboard/redis"
	"github.com/mcoot/racegame-go/internal/services/registry"
	"github.com/mcoot/racegame-go/internal/services/room"
	"github.com/mcoot/racegame-go/internal/spectate"
	"github.com/mcoot/racegame-go/internal/storage"
	"github.com/mcoot/racegame-go/internal/storage/memory"
	"github.com/mcoot/racegame-go/internal/transport/ws"
)

// Results backend constants
const (
	ResultsBackendMemory = "memory"
	ResultsBackendRedis  = "redis"
	ResultsBackendNone   = "none"
)

const resultsQueueSize = 256

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.RoomStore
	Results leaderboard.Board

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry       *registry.Registry
	RoomController *room.Controller
	Broadcast      *broadcast.Service
	Spectators     *spectate.Manager
	Loop           *coordinator.Loop
	Coordinator    *coordinator.Coordinator
	Recorder       *leaderboard.Recorder
	WebSocket      *ws.Handler

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// ResultsBackend selects the results board ("memory", "redis" or "none")
	// If empty, defaults to "memory"
	ResultsBackend string
	// RedisConfig holds Redis connection settings (required if ResultsBackend is "redis")
	RedisConfig *redisboard.Config
	// MaxResults bounds the memory results board
	MaxResults int
	// Policy tunes the race state machine
	Policy room.Policy
	// WebSocket holds connection settings; zero value means ws.DefaultConfig()
	WebSocket ws.Config
	// QueueSize is the coordinator command backlog
	QueueSize int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	var board leaderboard.Board
	backend := cfg.ResultsBackend
	if backend == "" {
		backend = ResultsBackendMemory
	}

	switch backend {
	case ResultsBackendMemory:
		board = memoryboard.New(cfg.MaxResults)
	case ResultsBackendRedis:
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("RedisConfig required when ResultsBackend is %q", ResultsBackendRedis)
		}
		redisBoard, err := redisboard.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		board = redisBoard
		closers = append(closers, redisBoard)
	case ResultsBackendNone:
		board = leaderboard.Nop{}
	default:
		return nil, fmt.Errorf("invalid ResultsBackend %q: must be 'memory', 'redis' or 'none'", backend)
	}

	app := newWithDependencies(memory.New(), board, clock.New(), random.New(), cfg, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.RoomStore,
	board leaderboard.Board,
	clk clock.Clock,
	rnd random.Random,
	cfg Config,
	logger *slog.Logger,
) *App {
	wsCfg := cfg.WebSocket
	if wsCfg.PongWait == 0 {
		origins := wsCfg.AllowedOrigins
		wsCfg = ws.DefaultConfig()
		wsCfg.AllowedOrigins = origins
	}

	reg := registry.New(store, clk, rnd, logger)
	rooms := room.NewController(store, clk, cfg.Policy, logger)
	bc := broadcast.New(reg, logger)
	spectators := spectate.NewManager(logger)
	bc.SetMirror(spectators)
	loop := coordinator.NewLoop(cfg.QueueSize, logger)
	recorder := leaderboard.NewRecorder(board, resultsQueueSize, logger)
	coord := coordinator.New(loop, reg, rooms, bc, recorder, clk, rnd, logger)
	coord.SetSpectators(spectators)

	return &App{
		Storage:        store,
		Results:        board,
		Clock:          clk,
		Random:         rnd,
		Registry:       reg,
		RoomController: rooms,
		Broadcast:      bc,
		Spectators:     spectators,
		Loop:           loop,
		Coordinator:    coord,
		Recorder:       recorder,
		WebSocket:      ws.NewHandler(coord, wsCfg, logger),
		logger:         logger,
	}
}

// Run drives the coordinator loop and results recorder until ctx is cancelled
func (a *App) Run(ctx context.Context) {
	go a.Recorder.Run(ctx)
	a.Loop.Run(ctx)
}

// Handler builds the HTTP handler exposing /ws and /api/v1
func (a *App) Handler(allowedOrigins []string) http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:         a.logger,
		Rooms:          a.Coordinator,
		Watcher:        a.Coordinator,
		Results:        a.Results,
		WebSocket:      a.WebSocket,
		AllowedOrigins: allowedOrigins,
	})
}

// Close releases external resources
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
