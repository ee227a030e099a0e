package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	host := NewPlayerSession("host", PlayerAttrs{Name: "Host", Vehicle: "red-car", Trophies: 2})
	room := NewRoom("ABCD", host, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	room.Players = append(room.Players, NewPlayerSession("guest", PlayerAttrs{Name: "Guest"}))
	return room
}

func TestNewPlayerSessionClampsTrophies(t *testing.T) {
	p := NewPlayerSession("p", PlayerAttrs{Trophies: -3})
	assert.Equal(t, 0, p.Trophies)
}

func TestRoomHostAuthority(t *testing.T) {
	room := newTestRoom(t)

	assert.True(t, room.IsHost("host"))
	assert.False(t, room.IsHost("guest"))
	assert.False(t, room.IsHost(""))
	assert.True(t, room.HostPresent())

	require.True(t, room.RemovePlayer("host"))
	assert.False(t, room.IsHost("host"))
	assert.False(t, room.HostPresent())
	assert.Equal(t, SessionID("host"), room.HostID)
}

func TestRoomRemovePlayerUnknown(t *testing.T) {
	room := newTestRoom(t)
	assert.False(t, room.RemovePlayer("nobody"))
	assert.Len(t, room.Players, 2)
	assert.False(t, room.HostGone)
}

func TestRoomAllFinished(t *testing.T) {
	room := newTestRoom(t)
	assert.False(t, room.AllFinished())

	for _, p := range room.Players {
		p.Finished = true
	}
	assert.False(t, room.AllFinished(), "lobby rooms never complete")

	room.Phase = PhaseRacing
	assert.True(t, room.AllFinished())
	assert.Equal(t, 2, room.FinishedCount())
}

func TestRoomCloneIsIndependent(t *testing.T) {
	room := newTestRoom(t)
	clone := room.Clone()

	clone.Players[0].X = 42
	clone.Players = clone.Players[:1]

	assert.Zero(t, room.Players[0].X)
	assert.Len(t, room.Players, 2)
}

func TestRoomSummary(t *testing.T) {
	room := newTestRoom(t)
	sum := room.Summary()

	assert.Equal(t, RoomCode("ABCD"), sum.Code)
	assert.Equal(t, PhaseLobby, sum.Phase)
	assert.Equal(t, DefaultBackground, sum.Background)
	assert.Equal(t, 2, sum.PlayerCount)
	assert.True(t, sum.HostPresent)
	assert.False(t, sum.Completed)
}
