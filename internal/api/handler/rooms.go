package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/mcoot/racegame-go/internal/api/response"
	"github.com/mcoot/racegame-go/internal/model"
)

// RoomReader serves read-only room views
type RoomReader interface {
	ListRooms(ctx context.Context) ([]model.RoomSummary, error)
	Snapshot(ctx context.Context, code model.RoomCode) (*model.Room, error)
}

// RoomHandler handles room inspection endpoints
type RoomHandler struct {
	rooms RoomReader
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms RoomReader) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomList{
		Rooms: lo.Map(rooms, func(s model.RoomSummary, _ int) response.RoomSummary {
			return response.RoomSummaryFromModel(s)
		}),
	})
}

// Get handles GET /api/v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	room, err := h.rooms.Snapshot(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomFromModel(room))
}
