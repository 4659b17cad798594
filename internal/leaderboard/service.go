package leaderboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
)

// Service exposes leaderboard reads over HTTP.
type Service struct {
	app *App
}

// NewService creates a new leaderboard HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes mounts the leaderboard endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/leaderboards/{board}/top", s.GetTop).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/leaderboards/{board}/rank", s.GetRank).Methods(http.MethodGet, http.MethodOptions)
}

// boardFromRequest maps the path segment onto a board name. "daily" means
// today's board.
func boardFromRequest(r *http.Request) string {
	board := mux.Vars(r)["board"]
	if board == "daily" {
		return DailyBoard(time.Now())
	}
	return board
}

// GetTop handles GET /leaderboards/{board}/top?limit=N.
func (s *Service) GetTop(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := s.app.GetTop(r.Context(), boardFromRequest(r), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard top query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRank handles GET /leaderboards/{board}/rank for the calling user.
func (s *Service) GetRank(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rank, err := s.app.GetRank(r.Context(), boardFromRequest(r), id.UserID)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard rank query failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"rank": rank})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
