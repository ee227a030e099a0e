package storage

import (
	"context"

	"github.com/mcoot/racegame-go/internal/model"
)

// RoomStore holds live rooms keyed by code. Rooms are memory-only; the
// coordinator loop is the single writer, so implementations hand back the
// stored pointer rather than a copy.
type RoomStore interface {
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
	DeleteRoom(ctx context.Context, code model.RoomCode) error
	RoomExists(ctx context.Context, code model.RoomCode) (bool, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
}
