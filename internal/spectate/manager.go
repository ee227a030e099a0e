package spectate

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mcoot/racegame-go/internal/model"
)

// Event names sent on spectator streams. Room frames are sent as unnamed events.
const (
	EventSnapshot = "snapshot"
	EventClosed   = "closed"
)

// Manager owns one Hub per watched room
type Manager struct {
	hubs   map[model.RoomCode]*Hub
	mu     sync.Mutex
	logger *slog.Logger
}

// NewManager creates a Manager
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		hubs:   make(map[model.RoomCode]*Hub),
		logger: logger.With(slog.String("component", "spectate")),
	}
}

// Subscribe registers a new spectator of the room, starting its hub if needed
func (m *Manager) Subscribe(code model.RoomCode, id string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub, ok := m.hubs[code]
	if !ok {
		hub = NewHub(code, m.logger)
		m.hubs[code] = hub
		go hub.Run()
	}
	client := newClient(hub, id)
	hub.Register(client)
	return client
}

// Unsubscribe removes a spectator and stops the hub once nobody is watching
func (m *Manager) Unsubscribe(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	hub := client.hub
	hub.Unregister(client)
	if hub.ClientCount() == 0 && m.hubs[hub.roomCode] == hub {
		delete(m.hubs, hub.roomCode)
		hub.Close("", nil)
	}
}

// Publish forwards an encoded room frame to the room's spectators, if any
func (m *Manager) Publish(code model.RoomCode, frame []byte) {
	m.mu.Lock()
	hub := m.hubs[code]
	m.mu.Unlock()

	if hub != nil {
		hub.Broadcast(frame)
	}
}

// CloseRoom ends every stream watching the room with a closed event
func (m *Manager) CloseRoom(code model.RoomCode) {
	m.mu.Lock()
	hub, ok := m.hubs[code]
	delete(m.hubs, code)
	m.mu.Unlock()

	if !ok {
		return
	}
	hub.Close(EventClosed, closedData(code))
	m.logger.Info("spectator hub closed", slog.String("room", string(code)))
}

// HubCount returns the number of rooms being watched
func (m *Manager) HubCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hubs)
}

// CloseAll ends every spectator stream, as on server shutdown
func (m *Manager) CloseAll() {
	m.mu.Lock()
	hubs := m.hubs
	m.hubs = make(map[model.RoomCode]*Hub)
	m.mu.Unlock()

	for code, hub := range hubs {
		hub.Close(EventClosed, closedData(code))
	}
}

func closedData(code model.RoomCode) []byte {
	data, _ := json.Marshal(map[string]string{"roomCode": string(code)})
	return data
}
