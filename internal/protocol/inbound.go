package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the value of the "type" field on every message
type Kind string

// Inbound kinds
const (
	KindHost       Kind = "host"
	KindJoin       Kind = "join"
	KindBackground Kind = "background"
	KindStart      Kind = "start"
	KindMove       Kind = "move"
	KindUpdate     Kind = "update" // alias of move
	KindFinish     Kind = "finish"
)

// ErrMalformed is returned for frames that cannot be interpreted
var ErrMalformed = errors.New("malformed message")

// Inbound is a decoded client frame. Only the fields relevant to Type are set.
type Inbound struct {
	Type     Kind     `json:"type"`
	RoomCode string   `json:"roomCode,omitempty"`
	Name     string   `json:"name,omitempty"`
	Vehicle  string   `json:"vehicle,omitempty"`
	Trophies int      `json:"trophies,omitempty"`
	Value    string   `json:"value,omitempty"`
	X        *float64 `json:"x,omitempty"`
}

// UnmarshalJSON accepts any JSON value for the free-text fields. Strings are
// taken as-is, null becomes empty and anything else keeps its JSON text.
func (m *Inbound) UnmarshalJSON(data []byte) error {
	type plain Inbound
	var wire struct {
		plain
		RoomCode json.RawMessage `json:"roomCode"`
		Name     json.RawMessage `json:"name"`
		Vehicle  json.RawMessage `json:"vehicle"`
		Value    json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = Inbound(wire.plain)
	m.RoomCode = text(wire.RoomCode)
	m.Name = text(wire.Name)
	m.Vehicle = text(wire.Vehicle)
	m.Value = text(wire.Value)
	return nil
}

func text(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Decode parses one client frame. Unknown kinds decode successfully and are
// left for the caller to ignore.
func Decode(raw []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return Inbound{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if msg.IsMove() && msg.X == nil {
		return Inbound{}, fmt.Errorf("%w: %s without x", ErrMalformed, msg.Type)
	}
	return msg, nil
}

// IsMove reports whether the frame is a position update under either name
func (m Inbound) IsMove() bool {
	return m.Type == KindMove || m.Type == KindUpdate
}
