package spectate

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/racegame-go/internal/model"
)

// Hub fans room frames out to the spectators of a single room
type Hub struct {
	roomCode model.RoomCode
	clients  map[*Client]bool
	closed   bool
	mu       sync.RWMutex
	logger   *slog.Logger

	broadcast chan []byte
	final     chan []byte
	done      chan struct{}
}

// NewHub creates a Hub for a room. Run must be started before frames are delivered.
func NewHub(roomCode model.RoomCode, logger *slog.Logger) *Hub {
	return &Hub{
		roomCode:  roomCode,
		clients:   make(map[*Client]bool),
		logger:    logger.With(slog.String("room", string(roomCode))),
		broadcast: make(chan []byte, 256),
		final:     make(chan []byte, 1),
		done:      make(chan struct{}),
	}
}

// Run delivers queued frames until Close
func (h *Hub) Run() {
	h.logger.Debug("spectator hub started")
	for {
		select {
		case message := <-h.broadcast:
			h.fanOut(message)

		case <-h.done:
			// Frames queued before the close still go out, then the closing event
			for drained := false; !drained; {
				select {
				case message := <-h.broadcast:
					h.fanOut(message)
				default:
					drained = true
				}
			}
			var final []byte
			select {
			case final = <-h.final:
			default:
			}

			h.mu.Lock()
			h.closed = true
			clientCount := len(h.clients)
			for client := range h.clients {
				if final != nil {
					select {
					case client.send <- final:
					default:
					}
				}
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("spectator hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("spectator frames dropped - client buffer full", slog.Int("dropped", dropped))
	}
}

// Register adds a client. It reports false once the hub is closed.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[client] = true
	h.logger.Debug("spectator registered",
		slog.String("spectator", client.id),
		slog.Int("total_clients", len(h.clients)))
	return true
}

// Unregister removes a client and closes its channel
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.logger.Debug("spectator unregistered",
		slog.String("spectator", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", len(h.clients)))
}

// Broadcast queues an unnamed event carrying data
func (h *Hub) Broadcast(data []byte) {
	h.enqueue(formatEvent("", data))
}

// BroadcastEvent queues a named event
func (h *Hub) BroadcastEvent(name string, data []byte) {
	h.enqueue(formatEvent(name, data))
}

func (h *Hub) enqueue(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("spectator broadcast dropped - hub buffer full")
	}
}

// Close stops the hub. A non-empty closing event is delivered to every
// client after the frames already queued.
func (h *Hub) Close(name string, data []byte) {
	if name != "" {
		h.final <- formatEvent(name, data)
	}
	close(h.done)
}

// ClientCount returns the number of connected spectators
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// formatEvent renders one text/event-stream event. Every data line gets its own prefix.
func formatEvent(name string, data []byte) []byte {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	text := strings.TrimSuffix(strings.ReplaceAll(string(data), "\r", ""), "\n")
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}
