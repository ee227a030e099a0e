package model

import "time"

// SessionID identifies one connected participant for the lifetime of its connection
type SessionID string

// PlayerSession is the server-side record of one connected participant
type PlayerSession struct {
	ID         SessionID
	Name       string
	Vehicle    string
	Trophies   int     // connection lifetime only
	X          float64 // last reported race progress
	Finished   bool
	FinishTime time.Duration // zero until Finished
}

// PlayerAttrs are the client-supplied attributes sent with host and join
type PlayerAttrs struct {
	Name     string
	Vehicle  string
	Trophies int
}

// NewPlayerSession creates a session with zero race progress
func NewPlayerSession(id SessionID, attrs PlayerAttrs) *PlayerSession {
	trophies := attrs.Trophies
	if trophies < 0 {
		trophies = 0
	}
	return &PlayerSession{
		ID:       id,
		Name:     attrs.Name,
		Vehicle:  attrs.Vehicle,
		Trophies: trophies,
	}
}

// ResetRace clears per-race progress, keeping identity and trophies
func (p *PlayerSession) ResetRace() {
	p.X = 0
	p.Finished = false
	p.FinishTime = 0
}
