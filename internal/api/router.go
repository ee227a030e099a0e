package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mcoot/racegame-go/internal/api/handler"
	"github.com/mcoot/racegame-go/internal/api/middleware"
	"github.com/mcoot/racegame-go/internal/api/response"
	"github.com/mcoot/racegame-go/internal/leaderboard"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	Rooms          handler.RoomReader
	Watcher        handler.RoomWatcher
	Results        leaderboard.Board
	WebSocket      http.Handler
	AllowedOrigins []string
}

// NewRouter creates the HTTP handler serving /ws and the read-only /api/v1 routes
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handler.NotFound)

	results := cfg.Results
	if results == nil {
		results = leaderboard.Nop{}
	}

	roomHandler := handler.NewRoomHandler(cfg.Rooms)
	resultsHandler := handler.NewResultsHandler(results)

	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	loggingMiddleware := middleware.Logging(cfg.Logger)

	if cfg.WebSocket != nil {
		r.Handle("/ws", recoveryMiddleware(loggingMiddleware(cfg.WebSocket))).Methods(http.MethodGet)
	}

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	api.HandleFunc("/rooms", roomHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}", roomHandler.Get).Methods(http.MethodGet)
	if cfg.Watcher != nil {
		eventsHandler := handler.NewEventsHandler(cfg.Watcher)
		api.HandleFunc("/rooms/{code}/events", eventsHandler.Stream).Methods(http.MethodGet)
	}
	api.HandleFunc("/results", resultsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
