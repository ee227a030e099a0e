package protocol

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/mcoot/racegame-go/internal/model"
)

// Outbound kinds
const (
	KindHosted           Kind = "hosted"
	KindError            Kind = "error"
	KindPlayersUpdate    Kind = "playersUpdate"
	KindBackgroundUpdate Kind = "backgroundUpdate"
	KindRaceStart        Kind = "raceStart"
	KindSync             Kind = "sync"
	KindTrophy           Kind = "trophy"
	KindPosition         Kind = "position"
)

// MsgRoomNotFound is the error text sent when a join names an unknown room
const MsgRoomNotFound = "Room not found"

// Player is the wire view of a PlayerSession
type Player struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Vehicle  string  `json:"vehicle"`
	Trophies int     `json:"trophies"`
	X        float64 `json:"x"`
	Finished bool    `json:"finished"`
	Time     int64   `json:"time"` // finish time in milliseconds
}

// NewPlayer converts a session to its wire view
func NewPlayer(p *model.PlayerSession) Player {
	return Player{
		ID:       string(p.ID),
		Name:     p.Name,
		Vehicle:  p.Vehicle,
		Trophies: p.Trophies,
		X:        p.X,
		Finished: p.Finished,
		Time:     p.FinishTime.Milliseconds(),
	}
}

// Roster returns the room's players in join order
func Roster(room *model.Room) []Player {
	return lo.Map(room.Players, func(p *model.PlayerSession, _ int) Player { return NewPlayer(p) })
}

// PlayersByID returns the room's players keyed by session id
func PlayersByID(room *model.Room) map[string]Player {
	return lo.SliceToMap(room.Players, func(p *model.PlayerSession) (string, Player) {
		return string(p.ID), NewPlayer(p)
	})
}

// Hosted tells the host which code others should join with
type Hosted struct {
	Type     Kind   `json:"type"`
	RoomCode string `json:"roomCode"`
}

// Error is a sender-only failure notice
type Error struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

// PlayersUpdate is a full roster snapshot
type PlayersUpdate struct {
	Type      Kind              `json:"type"`
	Players   map[string]Player `json:"players"`
	Roster    []Player          `json:"roster"`
	Completed bool              `json:"completed"`
}

// BackgroundUpdate announces a background change
type BackgroundUpdate struct {
	Type       Kind   `json:"type"`
	Background string `json:"background"`
}

// RaceStart announces that the race has begun
type RaceStart struct {
	Type       Kind   `json:"type"`
	Background string `json:"background"`
}

// Sync carries positions after a move
type Sync struct {
	Type    Kind              `json:"type"`
	Players map[string]Player `json:"players"`
}

// Trophy tells the first finisher its new trophy total
type Trophy struct {
	Type     Kind `json:"type"`
	Trophies int  `json:"trophies"`
}

// Position tells a finisher its place
type Position struct {
	Type     Kind `json:"type"`
	Position int  `json:"position"`
}

// NewHosted builds the reply to a successful host
func NewHosted(code model.RoomCode) Hosted {
	return Hosted{Type: KindHosted, RoomCode: string(code)}
}

// NewError builds an error notice for the sender
func NewError(message string) Error {
	return Error{Type: KindError, Message: message}
}

// NewPlayersUpdate snapshots the room roster
func NewPlayersUpdate(room *model.Room) PlayersUpdate {
	return PlayersUpdate{
		Type:      KindPlayersUpdate,
		Players:   PlayersByID(room),
		Roster:    Roster(room),
		Completed: room.AllFinished(),
	}
}

// NewBackgroundUpdate announces background as the room background
func NewBackgroundUpdate(background string) BackgroundUpdate {
	return BackgroundUpdate{Type: KindBackgroundUpdate, Background: background}
}

// NewRaceStart announces the start of a race on background
func NewRaceStart(background string) RaceStart {
	return RaceStart{Type: KindRaceStart, Background: background}
}

// NewSync snapshots player positions
func NewSync(room *model.Room) Sync {
	return Sync{Type: KindSync, Players: PlayersByID(room)}
}

// NewTrophy carries the new trophy total
func NewTrophy(trophies int) Trophy {
	return Trophy{Type: KindTrophy, Trophies: trophies}
}

// NewPosition carries a finishing place, starting at 1
func NewPosition(position int) Position {
	return Position{Type: KindPosition, Position: position}
}

// Encode serializes an outbound message. Map keys are emitted sorted, so the
// same snapshot always encodes to the same bytes.
func Encode(msg any) ([]byte, error) {
	return json.Marshal(msg)
}
