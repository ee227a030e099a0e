package handler

import (
	"net/http"

	"github.com/mcoot/racegame-go/internal/api/apierr"
	"github.com/mcoot/racegame-go/internal/api/request"
	"github.com/mcoot/racegame-go/internal/api/response"
	"github.com/mcoot/racegame-go/internal/leaderboard"
)

// ResultsHandler serves the results board
type ResultsHandler struct {
	board leaderboard.Board
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(board leaderboard.Board) *ResultsHandler {
	return &ResultsHandler{board: board}
}

// List handles GET /api/v1/results
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := request.ParseLimit(r, request.DefaultResultsLimit, request.MaxResultsLimit)
	if !ok {
		WriteError(w, apierr.NewInvalidRequestError("limit must be a positive integer"))
		return
	}

	entries, err := h.board.Top(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ResultsFromEntries(entries))
}
