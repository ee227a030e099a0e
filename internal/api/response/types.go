package response

import (
	"time"

	"github.com/samber/lo"

	"github.com/mcoot/racegame-go/internal/leaderboard"
	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/protocol"
)

// RoomSummary represents a room in listings
type RoomSummary struct {
	Code        string    `json:"code"`
	Phase       string    `json:"phase"`
	Background  string    `json:"background"`
	PlayerCount int       `json:"player_count"`
	HostPresent bool      `json:"host_present"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoomSummaryFromModel converts model.RoomSummary
func RoomSummaryFromModel(s model.RoomSummary) RoomSummary {
	return RoomSummary{
		Code:        string(s.Code),
		Phase:       string(s.Phase),
		Background:  s.Background,
		PlayerCount: s.PlayerCount,
		HostPresent: s.HostPresent,
		Completed:   s.Completed,
		CreatedAt:   s.CreatedAt,
	}
}

// RoomList is the response for GET /rooms
type RoomList struct {
	Rooms []RoomSummary `json:"rooms"`
}

// Room is a full room snapshot. Players use the websocket wire format.
type Room struct {
	Code        string            `json:"code"`
	HostID      string            `json:"host_id"`
	HostPresent bool              `json:"host_present"`
	Background  string            `json:"background"`
	Phase       string            `json:"phase"`
	StartedAt   *time.Time        `json:"started_at"`
	Completed   bool              `json:"completed"`
	Players     []protocol.Player `json:"players"`
	CreatedAt   time.Time         `json:"created_at"`
}

// RoomFromModel converts model.Room
func RoomFromModel(r *model.Room) Room {
	var startedAt *time.Time
	if !r.StartTime.IsZero() {
		t := r.StartTime
		startedAt = &t
	}
	return Room{
		Code:        string(r.Code),
		HostID:      string(r.HostID),
		HostPresent: r.HostPresent(),
		Background:  r.Background,
		Phase:       string(r.Phase),
		StartedAt:   startedAt,
		Completed:   r.AllFinished(),
		Players:     protocol.Roster(r),
		CreatedAt:   r.CreatedAt,
	}
}

// Result is one leaderboard entry
type Result struct {
	Rank         int       `json:"rank"`
	Name         string    `json:"name"`
	Vehicle      string    `json:"vehicle"`
	FinishTimeMs int64     `json:"finish_time_ms"`
	Position     int       `json:"position"`
	RoomCode     string    `json:"room_code"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// ResultList is the response for GET /results
type ResultList struct {
	Results []Result `json:"results"`
}

// ResultsFromEntries converts ranked leaderboard entries
func ResultsFromEntries(entries []leaderboard.Entry) ResultList {
	return ResultList{
		Results: lo.Map(entries, func(e leaderboard.Entry, i int) Result {
			return Result{
				Rank:         i + 1,
				Name:         e.Name,
				Vehicle:      e.Vehicle,
				FinishTimeMs: e.FinishTime.Milliseconds(),
				Position:     e.Position,
				RoomCode:     string(e.RoomCode),
				RecordedAt:   e.RecordedAt,
			}
		}),
	}
}

// Health is the response for GET /health
type Health struct {
	Status string `json:"status"`
}
