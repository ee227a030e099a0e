package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/mcoot/racegame-go/internal/coordinator"
)

// Config holds websocket connection settings
type Config struct {
	SendBufferSize int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	// AllowedOrigins restricts the Origin header on upgrade; empty or "*" allows all
	AllowedOrigins []string
}

// DefaultConfig returns the standard keepalive settings
func DefaultConfig() Config {
	pongWait := 60 * time.Second
	return Config{
		SendBufferSize: 256,
		MaxMessageSize: 4096,
		WriteWait:      10 * time.Second,
		PongWait:       pongWait,
		PingPeriod:     (pongWait * 9) / 10,
	}
}

// Handler upgrades requests to websockets and feeds their frames to the coordinator
type Handler struct {
	coord    *coordinator.Coordinator
	cfg      Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHandler creates a websocket Handler
func NewHandler(coord *coordinator.Coordinator, cfg Config, logger *slog.Logger) *Handler {
	h := &Handler{
		coord:   coord,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "ws")),
		clients: make(map[*Client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.AllowedOrigins) == 0 || lo.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	return lo.Contains(h.cfg.AllowedOrigins, origin)
}

// ServeHTTP upgrades the connection and runs its read loop until the peer goes away
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(conn, h.cfg.SendBufferSize)
	h.track(client)
	defer h.untrack(client)

	session := h.coord.Connect(client)
	logger := h.logger.With(slog.String("session", string(session.SessionID())))
	logger.Info("websocket connected", slog.String("remote", r.RemoteAddr))

	go client.writePump(h.cfg)
	h.readPump(client, session, logger)
}

func (h *Handler) readPump(client *Client, session *coordinator.ConnectionHandler, logger *slog.Logger) {
	loop := h.coord.Loop()
	ctx := context.Background()
	defer func() {
		client.Close()
		if err := loop.Submit(ctx, session.HandleClose); err != nil {
			logger.Warn("close not delivered to coordinator", slog.Any("error", err))
		}
		logger.Info("websocket disconnected", slog.Duration("connection_duration", time.Since(client.opened)))
	}()

	conn := client.conn
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", slog.Any("error", err))
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		err = loop.Submit(ctx, func(ctx context.Context) {
			session.HandleMessage(ctx, data)
		})
		if errors.Is(err, coordinator.ErrLoopStopped) {
			return
		}
	}
}

func (h *Handler) track(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Handler) untrack(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ConnectionCount returns the number of open websocket connections
func (h *Handler) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll closes every open connection, used on shutdown since hijacked
// connections are not tracked by http.Server
func (h *Handler) CloseAll() {
	h.mu.Lock()
	clients := lo.Keys(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.logger.Info("websocket connections closed", slog.Int("count", len(clients)))
}
