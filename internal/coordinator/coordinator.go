package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/racegame-go/internal/broadcast"
	"github.com/mcoot/racegame-go/internal/dependencies/clock"
	"github.com/mcoot/racegame-go/internal/dependencies/random"
	"github.com/mcoot/racegame-go/internal/leaderboard"
	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/services/registry"
	"github.com/mcoot/racegame-go/internal/services/room"
	"github.com/mcoot/racegame-go/internal/spectate"
)

// ErrSpectatingDisabled is returned by Watch when no spectator feed is installed
var ErrSpectatingDisabled = errors.New("spectating disabled")

// Spectators manages read-only event streams per room
type Spectators interface {
	Subscribe(code model.RoomCode, id string) *spectate.Client
	Unsubscribe(client *spectate.Client)
	CloseRoom(code model.RoomCode)
}

// ResultSink accepts finished-race entries without blocking
type ResultSink interface {
	Submit(entry leaderboard.Entry) bool
}

// Coordinator ties the registry, room state machine and broadcast service
// to the loop that serializes them
type Coordinator struct {
	loop      *Loop
	registry  registry.RegistryInterface
	rooms     room.ControllerInterface
	broadcast *broadcast.Service
	results   ResultSink
	watchers  Spectators
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
}

// New creates a Coordinator. results may be nil to disable result recording.
func New(
	loop *Loop,
	registry registry.RegistryInterface,
	rooms room.ControllerInterface,
	broadcast *broadcast.Service,
	results ResultSink,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		loop:      loop,
		registry:  registry,
		rooms:     rooms,
		broadcast: broadcast,
		results:   results,
		clock:     clock,
		random:    random,
		logger:    logger.With(slog.String("component", "coordinator")),
	}
}

// SetSpectators installs the spectator feed. Call before serving traffic.
func (c *Coordinator) SetSpectators(s Spectators) {
	c.watchers = s
}

// Loop returns the loop all connection work must be submitted to
func (c *Coordinator) Loop() *Loop {
	return c.loop
}

// Connect assigns a session id to a new connection and registers its sender
func (c *Coordinator) Connect(sender broadcast.Sender) *ConnectionHandler {
	id := model.SessionID(c.random.ID())
	c.broadcast.Register(id, sender)
	c.logger.Debug("connection opened", slog.String("session", string(id)))
	return &ConnectionHandler{
		id:     id,
		c:      c,
		logger: c.logger.With(slog.String("session", string(id))),
	}
}

// ListRooms returns room summaries, read on the loop
func (c *Coordinator) ListRooms(ctx context.Context) ([]model.RoomSummary, error) {
	var rooms []model.RoomSummary
	err := c.loop.Do(ctx, func(ctx context.Context) error {
		var err error
		rooms, err = c.registry.ListRooms(ctx)
		return err
	})
	return rooms, err
}

// Snapshot returns a copy of a room, read on the loop
func (c *Coordinator) Snapshot(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	var snapshot *model.Room
	err := c.loop.Do(ctx, func(ctx context.Context) error {
		r, err := c.registry.GetRoom(ctx, code)
		if err != nil {
			return err
		}
		snapshot = r.Clone()
		return nil
	})
	return snapshot, err
}

// Watch subscribes a spectator to a room. The subscription and the returned
// snapshot are taken together on the loop, so no broadcast falls between them.
func (c *Coordinator) Watch(ctx context.Context, code model.RoomCode) (*spectate.Client, *model.Room, error) {
	if c.watchers == nil {
		return nil, nil, ErrSpectatingDisabled
	}
	var client *spectate.Client
	var snapshot *model.Room
	err := c.loop.Do(ctx, func(ctx context.Context) error {
		r, err := c.registry.GetRoom(ctx, code)
		if err != nil {
			return err
		}
		snapshot = r.Clone()
		client = c.watchers.Subscribe(code, c.random.ID())
		return nil
	})
	return client, snapshot, err
}

// Unwatch ends a spectator subscription
func (c *Coordinator) Unwatch(client *spectate.Client) {
	if c.watchers != nil {
		c.watchers.Unsubscribe(client)
	}
}
