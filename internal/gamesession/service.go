package gamesession

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
)

// Service exposes the game-session app over HTTP.
type Service struct {
	app *App
}

// NewService creates a new game-session HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterRoutes mounts the game endpoints on the router. The identity
// middleware has already run; handlers pass the caller explicitly into the
// app layer.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/games", s.CreateGame).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games/{id}", s.GetGameDetails).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/games/{id}/join", s.JoinGame).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games/{id}/leave", s.LeaveGame).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games/{id}/ready", s.ToggleReady).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games/{id}/start", s.StartGame).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games/{id}/progress", s.UpdateProgress).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/games/{id}/complete", s.CompleteGame).Methods(http.MethodPost, http.MethodOptions)
}

// CreateGame handles POST /games.
func (s *Service) CreateGame(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.app.CreateGame(r.Context(), id, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// GetGameDetails handles GET /games/{id}.
func (s *Service) GetGameDetails(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	details, err := s.app.GetGameDetails(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// JoinGame handles POST /games/{id}/join.
func (s *Service) JoinGame(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	member, err := s.app.JoinGame(r.Context(), id, gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// LeaveGame handles POST /games/{id}/leave.
func (s *Service) LeaveGame(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	left, err := s.app.LeaveGame(r.Context(), id, gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"left": left})
}

type toggleReadyRequest struct {
	Ready bool `json:"ready"`
}

// ToggleReady handles POST /games/{id}/ready.
func (s *Service) ToggleReady(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	var req toggleReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.app.ToggleReady(r.Context(), id, gameID, req.Ready)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// A refused toggle is an expected race outcome, still a 200.
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

// StartGame handles POST /games/{id}/start.
func (s *Service) StartGame(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	started, err := s.app.StartGame(r.Context(), id, gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

type updateProgressRequest struct {
	Score    int `json:"score"`
	Progress int `json:"progress"`
}

// UpdateProgress handles POST /games/{id}/progress.
func (s *Service) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	var req updateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.app.UpdateProgress(r.Context(), id, gameID, req.Score, req.Progress)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": updated})
}

// CompleteGame handles POST /games/{id}/complete.
func (s *Service) CompleteGame(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.FromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	gameID, ok := gameIDFromRequest(w, r)
	if !ok {
		return
	}

	completed, err := s.app.CompleteGame(r.Context(), gameID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

func gameIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	gameID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return uuid.Nil, false
	}
	return gameID, true
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "game not found")
	case errors.Is(err, ErrCapacity):
		writeError(w, http.StatusConflict, "game is full")
	case errors.Is(err, ErrNotJoinable):
		writeError(w, http.StatusConflict, "game already started")
	case errors.Is(err, ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "store timed out, retry")
	default:
		log.Error().Err(err).Msg("game session request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
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
