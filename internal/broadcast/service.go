package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mcoot/racegame-go/internal/model"
	"github.com/mcoot/racegame-go/internal/protocol"
)

// Sender is the outbound side of one connection. TrySend must never block;
// it reports false when the frame could not be queued.
type Sender interface {
	TrySend(frame []byte) bool
}

// RoomLookup resolves the current membership of a room
type RoomLookup interface {
	GetRoom(ctx context.Context, code model.RoomCode) (*model.Room, error)
}

// Mirror receives a copy of every room broadcast, such as a spectator feed
type Mirror interface {
	Publish(code model.RoomCode, frame []byte)
}

// Delivery counts the outcome of one fan-out
type Delivery struct {
	Sent    int
	Dropped int
}

// Service fans encoded messages out to connected sessions on a best-effort basis
type Service struct {
	rooms   RoomLookup
	senders map[model.SessionID]Sender
	mirror  Mirror
	mu      sync.RWMutex
	logger  *slog.Logger
}

// New creates a broadcast Service
func New(rooms RoomLookup, logger *slog.Logger) *Service {
	return &Service{
		rooms:   rooms,
		senders: make(map[model.SessionID]Sender),
		logger:  logger.With(slog.String("component", "broadcast")),
	}
}

// SetMirror installs m to receive room broadcasts. Call before serving traffic.
func (s *Service) SetMirror(m Mirror) {
	s.mirror = m
}

// Register records the outbound endpoint of a session
func (s *Service) Register(id model.SessionID, sender Sender) {
	s.mu.Lock()
	s.senders[id] = sender
	count := len(s.senders)
	s.mu.Unlock()
	s.logger.Debug("sender registered",
		slog.String("session", string(id)),
		slog.Int("total_senders", count))
}

// Unregister forgets a session's endpoint
func (s *Service) Unregister(id model.SessionID) {
	s.mu.Lock()
	delete(s.senders, id)
	count := len(s.senders)
	s.mu.Unlock()
	s.logger.Debug("sender unregistered",
		slog.String("session", string(id)),
		slog.Int("total_senders", count))
}

// BroadcastToRoom delivers msg to every current member of the room. The
// message is encoded once; every recipient receives the same bytes.
func (s *Service) BroadcastToRoom(ctx context.Context, code model.RoomCode, msg any) (Delivery, error) {
	room, err := s.rooms.GetRoom(ctx, code)
	if err != nil {
		return Delivery{}, err
	}

	frame, err := protocol.Encode(msg)
	if err != nil {
		return Delivery{}, fmt.Errorf("encode broadcast: %w", err)
	}

	var d Delivery
	s.mu.RLock()
	for _, p := range room.Players {
		if s.deliver(p.ID, frame) {
			d.Sent++
		} else {
			d.Dropped++
		}
	}
	s.mu.RUnlock()

	if s.mirror != nil {
		s.mirror.Publish(code, frame)
	}

	if d.Dropped > 0 {
		s.logger.Debug("broadcast partially delivered",
			slog.String("room", string(code)),
			slog.Int("sent", d.Sent),
			slog.Int("dropped", d.Dropped))
	}
	return d, nil
}

// SendToSession delivers msg to a single session
func (s *Service) SendToSession(id model.SessionID, msg any) (bool, error) {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return false, fmt.Errorf("encode message: %w", err)
	}

	s.mu.RLock()
	ok := s.deliver(id, frame)
	s.mu.RUnlock()

	if !ok {
		s.logger.Debug("message dropped", slog.String("session", string(id)))
	}
	return ok, nil
}

// SenderCount returns the number of registered endpoints
func (s *Service) SenderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.senders)
}

// deliver must be called with mu held
func (s *Service) deliver(id model.SessionID, frame []byte) bool {
	sender, ok := s.senders[id]
	if !ok {
		return false
	}
	return sender.TrySend(frame)
}
