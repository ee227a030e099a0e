package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/racegame-go/internal/api/apierr"
	"github.com/mcoot/racegame-go/internal/api/response"
	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/spectate"
)

// RoomWatcher subscribes read-only observers to a room
type RoomWatcher interface {
	Watch(ctx context.Context, code model.RoomCode) (*spectate.Client, *model.Room, error)
	Unwatch(client *spectate.Client)
}

// EventsHandler streams room events to spectators
type EventsHandler struct {
	rooms RoomWatcher
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(rooms RoomWatcher) *EventsHandler {
	return &EventsHandler{rooms: rooms}
}

// Stream handles GET /api/v1/rooms/{code}/events.
// The first event is a snapshot; later events carry the room's websocket frames.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	code := model.RoomCode(mux.Vars(r)["code"])

	client, room, err := h.rooms.Watch(r.Context(), code)
	if err != nil {
		WriteError(w, err)
		return
	}
	defer h.rooms.Unwatch(client)

	snapshot, err := json.Marshal(response.RoomFromModel(room))
	if err != nil {
		apierr.WriteError(w, apierr.NewInternalError())
		return
	}

	spectate.Serve(w, r, client, snapshot)
}
