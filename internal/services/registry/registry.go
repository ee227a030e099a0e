package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/mcoot/racegame-go/internal/dependencies/clock"
	"github.com/mcoot/racegame-go/internal/dependencies/random"
	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/storage"
)

const (
	// CodeLength is the length of generated room codes
	CodeLength = 4
	// CodeAlphabet is the characters used in room codes
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// MaxCodeAttempts bounds code generation before giving up
	MaxCodeAttempts = 16
)

// Registry owns the mapping from room code to live room
type Registry struct {
	storage storage.RoomStore
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// New creates a Registry over the given store
func New(store storage.RoomStore, clock clock.Clock, random random.Random, logger *slog.Logger) *Registry {
	return &Registry{
		storage: store,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// CreateRoom allocates a fresh code and creates a lobby-phase room with host as its sole member
func (r *Registry) CreateRoom(ctx context.Context, host *model.PlayerSession) (*model.Room, error) {
	code, err := r.generateCode(ctx)
	if err != nil {
		return nil, err
	}

	room := model.NewRoom(code, host, r.clock.Now())
	if err := r.storage.SaveRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("save room %s: %w", code, err)
	}

	r.logger.Info("room created",
		slog.String("room", string(code)),
		slog.String("host", string(host.ID)),
	)
	return room, nil
}

func (r *Registry) generateCode(ctx context.Context) (model.RoomCode, error) {
	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code := model.RoomCode(r.random.String(CodeLength, CodeAlphabet))
		exists, err := r.storage.RoomExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if !exists {
			return code, nil
		}
		r.logger.Debug("room code collision",
			slog.String("room", string(code)),
			slog.Int("attempt", attempt),
		)
	}

	r.logger.Error("room code space exhausted", slog.Int("attempts", MaxCodeAttempts))
	return "", model.ErrCodeSpaceExhausted
}

// GetRoom returns the live room for code
func (r *Registry) GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error) {
	return r.storage.GetRoom(ctx, code)
}

// RemoveRoom deletes a room once it has no players left
func (r *Registry) RemoveRoom(ctx context.Context, code model.RoomCode) error {
	room, err := r.storage.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if !room.IsEmpty() {
		return model.ErrRoomNotEmpty
	}
	if err := r.storage.DeleteRoom(ctx, code); err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}

	r.logger.Info("room removed", slog.String("room", string(code)))
	return nil
}

// ListRooms returns summaries of every live room
func (r *Registry) ListRooms(ctx context.Context) ([]model.RoomSummary, error) {
	rooms, err := r.storage.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(rooms, func(room *model.Room, _ int) model.RoomSummary {
		return room.Summary()
	}), nil
}

// RegistryInterface defines the interface for room registry operations
type RegistryInterface interface {
	CreateRoom(ctx context.Context, host *model.PlayerSession) (*model.Room, error)
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	RemoveRoom(ctx context.Context, code model.RoomCode) error
	ListRooms(ctx context.Context) ([]model.RoomSummary, error)
}

var _ RegistryInterface = (*Registry)(nil)
