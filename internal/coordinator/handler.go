package coordinator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/racegame-go/internal/leaderboard"
	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/protocol"
)

// ConnectionHandler interprets the frames of one connection. Its methods must
// run on the coordinator loop; the room it tracks is never shared.
type ConnectionHandler struct {
	id       model.SessionID
	c        *Coordinator
	room     model.RoomCode
	trophies int
	logger   *slog.Logger
}

// SessionID returns the id assigned to this connection
func (h *ConnectionHandler) SessionID() model.SessionID {
	return h.id
}

// RoomCode returns the room this connection is in, or "" when in none
func (h *ConnectionHandler) RoomCode() model.RoomCode {
	return h.room
}

// HandleMessage processes one inbound frame. Malformed or unknown frames are dropped.
func (h *ConnectionHandler) HandleMessage(ctx context.Context, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		h.logger.Debug("dropping malformed frame", slog.Any("error", err))
		return
	}

	switch {
	case msg.Type == protocol.KindHost:
		h.host(ctx, msg)
	case msg.Type == protocol.KindJoin:
		h.join(ctx, msg)
	case msg.Type == protocol.KindBackground:
		h.background(ctx, msg.Value)
	case msg.Type == protocol.KindStart:
		h.start(ctx)
	case msg.IsMove():
		h.move(ctx, *msg.X)
	case msg.Type == protocol.KindFinish:
		h.finish(ctx)
	default:
		h.logger.Debug("dropping unknown frame", slog.String("type", string(msg.Type)))
	}
}

// HandleClose releases the connection: leaves its room and unregisters its sender
func (h *ConnectionHandler) HandleClose(ctx context.Context) {
	h.leaveRoom(ctx)
	h.c.broadcast.Unregister(h.id)
	h.logger.Debug("connection closed")
}

func (h *ConnectionHandler) newSession(msg protocol.Inbound) *model.PlayerSession {
	session := model.NewPlayerSession(h.id, model.PlayerAttrs{
		Name:     msg.Name,
		Vehicle:  msg.Vehicle,
		Trophies: msg.Trophies,
	})
	// trophies won on this connection survive moving between rooms
	session.Trophies = max(session.Trophies, h.trophies)
	h.trophies = session.Trophies
	return session
}

func (h *ConnectionHandler) host(ctx context.Context, msg protocol.Inbound) {
	h.leaveRoom(ctx)

	created, err := h.c.registry.CreateRoom(ctx, h.newSession(msg))
	if err != nil {
		h.logger.Error("failed to create room", slog.Any("error", err))
		return
	}

	h.room = created.Code
	h.send(protocol.NewHosted(created.Code))
	h.broadcastRoster(ctx, created)
}

func (h *ConnectionHandler) join(ctx context.Context, msg protocol.Inbound) {
	code := model.RoomCode(msg.RoomCode)

	if _, err := h.c.registry.GetRoom(ctx, code); err != nil {
		if errors.Is(err, model.ErrRoomNotFound) {
			h.send(protocol.NewError(protocol.MsgRoomNotFound))
			return
		}
		h.logger.Error("failed to look up room", slog.String("room", string(code)), slog.Any("error", err))
		return
	}

	if h.room != code {
		h.leaveRoom(ctx)
	}

	joined, err := h.c.rooms.Join(ctx, code, h.newSession(msg))
	if err != nil {
		h.logger.Error("failed to join room", slog.String("room", string(code)), slog.Any("error", err))
		return
	}

	h.room = code
	h.broadcastRoster(ctx, joined)
}

func (h *ConnectionHandler) background(ctx context.Context, value string) {
	if h.room == "" {
		return
	}
	changed, r, err := h.c.rooms.SetBackground(ctx, h.room, h.id, value)
	if err != nil {
		h.staleRoom(err)
		return
	}
	if changed {
		h.broadcastTo(ctx, r.Code, protocol.NewBackgroundUpdate(r.Background))
	}
}

func (h *ConnectionHandler) start(ctx context.Context) {
	if h.room == "" {
		return
	}
	started, r, err := h.c.rooms.Start(ctx, h.room, h.id)
	if err != nil {
		h.staleRoom(err)
		return
	}
	if started {
		h.broadcastTo(ctx, r.Code, protocol.NewRaceStart(r.Background))
	}
}

func (h *ConnectionHandler) move(ctx context.Context, x float64) {
	if h.room == "" {
		return
	}
	applied, r, err := h.c.rooms.UpdatePosition(ctx, h.room, h.id, x)
	if err != nil {
		h.staleRoom(err)
		return
	}
	if applied {
		h.broadcastTo(ctx, r.Code, protocol.NewSync(r))
	}
}

func (h *ConnectionHandler) finish(ctx context.Context) {
	if h.room == "" {
		return
	}
	res, err := h.c.rooms.RecordFinish(ctx, h.room, h.id)
	if err != nil {
		h.staleRoom(err)
		return
	}
	if !res.Recorded {
		return
	}

	if res.TrophyAwarded {
		h.trophies = res.Trophies
		h.send(protocol.NewTrophy(res.Trophies))
	}
	h.send(protocol.NewPosition(res.Position))
	h.broadcastRoster(ctx, res.Room)

	if res.RaceStarted && h.c.results != nil {
		h.c.results.Submit(leaderboard.Entry{
			SessionID:  h.id,
			Name:       res.Player.Name,
			Vehicle:    res.Player.Vehicle,
			FinishTime: res.FinishTime,
			Position:   res.Position,
			RoomCode:   res.Room.Code,
			RecordedAt: h.c.clock.Now(),
		})
	}
}

// leaveRoom applies close semantics to the current room, if any
func (h *ConnectionHandler) leaveRoom(ctx context.Context) {
	if h.room == "" {
		return
	}
	code := h.room
	h.room = ""

	res, err := h.c.rooms.Leave(ctx, code, h.id)
	if err != nil {
		h.logger.Warn("failed to leave room", slog.String("room", string(code)), slog.Any("error", err))
		return
	}

	if res.Empty {
		if err := h.c.registry.RemoveRoom(ctx, code); err != nil {
			h.logger.Error("failed to remove empty room", slog.String("room", string(code)), slog.Any("error", err))
			return
		}
		if h.c.watchers != nil {
			h.c.watchers.CloseRoom(code)
		}
		return
	}
	if res.Removed {
		h.broadcastRoster(ctx, res.Room)
	}
}

// staleRoom handles a room that vanished underneath this connection
func (h *ConnectionHandler) staleRoom(err error) {
	h.logger.Warn("room operation failed", slog.String("room", string(h.room)), slog.Any("error", err))
	if errors.Is(err, model.ErrRoomNotFound) {
		h.room = ""
	}
}

func (h *ConnectionHandler) broadcastRoster(ctx context.Context, r *model.Room) {
	h.broadcastTo(ctx, r.Code, protocol.NewPlayersUpdate(r))
}

func (h *ConnectionHandler) broadcastTo(ctx context.Context, code model.RoomCode, msg any) {
	if _, err := h.c.broadcast.BroadcastToRoom(ctx, code, msg); err != nil {
		h.logger.Error("broadcast failed", slog.String("room", string(code)), slog.Any("error", err))
	}
}

func (h *ConnectionHandler) send(msg any) {
	if _, err := h.c.broadcast.SendToSession(h.id, msg); err != nil {
		h.logger.Error("send failed", slog.Any("error", err))
	}
}
