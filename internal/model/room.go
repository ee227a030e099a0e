package model

import (
	"time"

	"github.com/samber/lo"
)

// RoomCode is the short human-readable identifier used to join a room
type RoomCode string

// Phase is the race lifecycle state of a room
type Phase string

const (
	PhaseLobby  Phase = "lobby"  // waiting for the host to start
	PhaseRacing Phase = "racing" // race in progress (or completed)
)

// DefaultBackground is the background every room starts with
const DefaultBackground = "red"

// Room is an isolated race session. Players keeps insertion order so that
// roster snapshots are deterministic.
type Room struct {
	Code       RoomCode
	HostID     SessionID
	HostGone   bool // set once the host leaves; host authority is never restored
	Background string
	Phase      Phase
	StartTime  time.Time // zero until the race starts
	Players    []*PlayerSession
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewRoom creates a room in the lobby phase with the host as its only member
func NewRoom(code RoomCode, host *PlayerSession, now time.Time) *Room {
	return &Room{
		Code:       code,
		HostID:     host.ID,
		Background: DefaultBackground,
		Phase:      PhaseLobby,
		Players:    []*PlayerSession{host},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// GetPlayer returns the member with the given id, or nil if not present
func (r *Room) GetPlayer(id SessionID) *PlayerSession {
	p, ok := lo.Find(r.Players, func(p *PlayerSession) bool { return p.ID == id })
	if !ok {
		return nil
	}
	return p
}

// HasPlayer reports whether the session is a current member
func (r *Room) HasPlayer(id SessionID) bool {
	return r.GetPlayer(id) != nil
}

// IsHost reports whether the session holds host authority
func (r *Room) IsHost(id SessionID) bool {
	return id != "" && r.HostID == id && !r.HostGone
}

// HostPresent reports whether the host is still a member
func (r *Room) HostPresent() bool {
	return !r.HostGone && r.HasPlayer(r.HostID)
}

// RemovePlayer drops the member with the given id and reports whether it was present
func (r *Room) RemovePlayer(id SessionID) bool {
	before := len(r.Players)
	r.Players = lo.Reject(r.Players, func(p *PlayerSession, _ int) bool { return p.ID == id })
	removed := len(r.Players) != before
	if removed && id == r.HostID {
		r.HostGone = true
	}
	return removed
}

// IsEmpty reports whether the room has no members left
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// FinishedCount returns how many members have finished the current race
func (r *Room) FinishedCount() int {
	return lo.CountBy(r.Players, func(p *PlayerSession) bool { return p.Finished })
}

// AllFinished reports whether the race is completed: racing and every member finished
func (r *Room) AllFinished() bool {
	return r.Phase == PhaseRacing && len(r.Players) > 0 && r.FinishedCount() == len(r.Players)
}

// Clone returns a deep copy, used for read-only views handed outside the coordinator loop
func (r *Room) Clone() *Room {
	c := *r
	c.Players = lo.Map(r.Players, func(p *PlayerSession, _ int) *PlayerSession {
		cp := *p
		return &cp
	})
	return &c
}

// RoomSummary is a lightweight listing entry for a room
type RoomSummary struct {
	Code        RoomCode
	Phase       Phase
	Background  string
	PlayerCount int
	HostPresent bool
	Completed   bool
	CreatedAt   time.Time
}

// Summary builds a RoomSummary for this room
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		Code:        r.Code,
		Phase:       r.Phase,
		Background:  r.Background,
		PlayerCount: len(r.Players),
		HostPresent: r.HostPresent(),
		Completed:   r.AllFinished(),
		CreatedAt:   r.CreatedAt,
	}
}
