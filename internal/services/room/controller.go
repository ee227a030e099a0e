package room

import (
	"context"
	"log/slog"
	"time"

	"github.com/mcoot/racegame-go/internal/dependencies/clock"
	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/storage"
)

// Policy holds the tunable rules of the race state machine
type Policy struct {
	// GateMovesToRace drops position updates unless the room is racing
	GateMovesToRace bool
}

// DefaultPolicy accepts position updates in any phase
func DefaultPolicy() Policy {
	return Policy{}
}

// FinishResult describes the outcome of a finish report
type FinishResult struct {
	Recorded      bool
	Position      int
	TrophyAwarded bool
	Trophies      int
	FinishTime    time.Duration
	RaceStarted   bool
	Player        *model.PlayerSession
	Room          *model.Room
}

// LeaveResult describes the outcome of a session leaving a room
type LeaveResult struct {
	Removed bool
	Empty   bool
	Room    *model.Room
}

// Controller runs the race state machine of a single room at a time.
// It is not safe for concurrent use; callers serialize through the coordinator loop.
type Controller struct {
	storage storage.RoomStore
	clock   clock.Clock
	policy  Policy
	logger  *slog.Logger
}

// NewController creates a room Controller
func NewController(store storage.RoomStore, clock clock.Clock, policy Policy, logger *slog.Logger) *Controller {
	return &Controller{
		storage: store,
		clock:   clock,
		policy:  policy,
		logger:  logger.With(slog.String("component", "room")),
	}
}

// Join adds session to the room. Joining mid-race is allowed; the newcomer starts at zero progress.
// A session already in the room keeps its progress and takes the new name and vehicle.
func (c *Controller) Join(ctx context.Context, code model.RoomCode, session *model.PlayerSession) (*model.Room, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	// rejoining refreshes identity but keeps race progress
	if existing := room.GetPlayer(session.ID); existing != nil {
		existing.Name = session.Name
		existing.Vehicle = session.Vehicle
		existing.Trophies = max(existing.Trophies, session.Trophies)
		room.UpdatedAt = c.clock.Now()
		if err := c.storage.SaveRoom(ctx, room); err != nil {
			return nil, err
		}
		return room, nil
	}

	session.ResetRace()
	room.Players = append(room.Players, session)
	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}

	c.logger.Info("player joined",
		slog.String("room", string(code)),
		slog.String("session", string(session.ID)),
		slog.Int("players", len(room.Players)),
	)
	return room, nil
}

// SetBackground changes the room background. Non-host requests are ignored.
func (c *Controller) SetBackground(ctx context.Context, code model.RoomCode, requester model.SessionID, value string) (bool, *model.Room, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return false, nil, err
	}

	if !room.IsHost(requester) {
		c.logger.Debug("background ignored: not host",
			slog.String("room", string(code)),
			slog.String("session", string(requester)),
		)
		return false, room, nil
	}

	room.Background = value
	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return false, nil, err
	}
	return true, room, nil
}

// Start moves the room from lobby to racing. Only the host may start, and only once.
func (c *Controller) Start(ctx context.Context, code model.RoomCode, requester model.SessionID) (bool, *model.Room, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return false, nil, err
	}

	if !room.IsHost(requester) {
		c.logger.Debug("start ignored: not host",
			slog.String("room", string(code)),
			slog.String("session", string(requester)),
		)
		return false, room, nil
	}
	if room.Phase != model.PhaseLobby {
		return false, room, nil
	}

	now := c.clock.Now()
	room.Phase = model.PhaseRacing
	room.StartTime = now
	room.UpdatedAt = now
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return false, nil, err
	}

	c.logger.Info("race started",
		slog.String("room", string(code)),
		slog.Int("players", len(room.Players)),
	)
	return true, room, nil
}

// UpdatePosition records the latest reported progress for a member
func (c *Controller) UpdatePosition(ctx context.Context, code model.RoomCode, id model.SessionID, x float64) (bool, *model.Room, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return false, nil, err
	}

	player := room.GetPlayer(id)
	if player == nil {
		return false, room, nil
	}
	if c.policy.GateMovesToRace && room.Phase != model.PhaseRacing {
		return false, room, nil
	}

	player.X = x
	return true, room, nil
}

// RecordFinish marks a member finished and computes its position.
// The first finisher of a race earns exactly one trophy.
func (c *Controller) RecordFinish(ctx context.Context, code model.RoomCode, id model.SessionID) (FinishResult, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return FinishResult{}, err
	}

	player := room.GetPlayer(id)
	if player == nil || player.Finished {
		return FinishResult{Room: room, Player: player}, nil
	}

	started := !room.StartTime.IsZero()
	player.Finished = true
	if started {
		player.FinishTime = c.clock.Since(room.StartTime)
	}

	result := FinishResult{
		Recorded:    true,
		Position:    room.FinishedCount(),
		RaceStarted: started,
		FinishTime:  player.FinishTime,
		Player:      player,
		Room:        room,
	}
	if result.Position == 1 {
		player.Trophies++
		result.TrophyAwarded = true
	}
	result.Trophies = player.Trophies

	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return FinishResult{}, err
	}

	c.logger.Info("player finished",
		slog.String("room", string(code)),
		slog.String("session", string(id)),
		slog.Int("position", result.Position),
		slog.Duration("time", result.FinishTime),
		slog.Bool("completed", room.AllFinished()),
	)
	return result, nil
}

// Leave removes a member. HostID is kept even when the host leaves.
func (c *Controller) Leave(ctx context.Context, code model.RoomCode, id model.SessionID) (LeaveResult, error) {
	room, err := c.storage.GetRoom(ctx, code)
	if err != nil {
		return LeaveResult{}, err
	}

	removed := room.RemovePlayer(id)
	if removed {
		room.UpdatedAt = c.clock.Now()
		if err := c.storage.SaveRoom(ctx, room); err != nil {
			return LeaveResult{}, err
		}
		c.logger.Info("player left",
			slog.String("room", string(code)),
			slog.String("session", string(id)),
			slog.Int("players", len(room.Players)),
		)
	}

	return LeaveResult{Removed: removed, Empty: room.IsEmpty(), Room: room}, nil
}

// ControllerInterface defines the interface for room state machine operations
type ControllerInterface interface {
	Join(ctx context.Context, code model.RoomCode, session *model.PlayerSession) (*model.Room, error)
	SetBackground(ctx context.Context, code model.RoomCode, requester model.SessionID, value string) (bool, *model.Room, error)
	Start(ctx context.Context, code model.RoomCode, requester model.SessionID) (bool, *model.Room, error)
	UpdatePosition(ctx context.Context, code model.RoomCode, id model.SessionID, x float64) (bool, *model.Room, error)
	RecordFinish(ctx context.Context, code model.RoomCode, id model.SessionID) (FinishResult, error)
	Leave(ctx context.Context, code model.RoomCode, id model.SessionID) (LeaveResult, error)
}

var _ ControllerInterface = (*Controller)(nil)
