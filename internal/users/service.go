package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
)

// Service exposes the users app over HTTP.
type Service struct {
	app *App
}

// NewService creates a new users HTTP service.
func NewService(app *App) *Service {
	return &Service{app: app}
}

// RegisterPublicRoutes mounts signup on the unauthenticated router.
func (s *Service) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/users", s.CreateUser).Methods(http.MethodPost, http.MethodOptions)
}

// RegisterRoutes mounts the endpoints that require an authenticated caller.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/users/me", s.GetCurrentUser).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/users/{id}", s.GetUser).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/users/{id}", s.UpdateUser).Methods(http.MethodPut, http.MethodOptions)
	r.HandleFunc("/users/{id}", s.DeleteUser).Methods(http.MethodDelete, http.MethodOptions)
}

// CreateUser handles POST /users.
func (s *Service) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.app.CreateUser(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// GetCurrentUser handles GET /users/me.
func (s *Service) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := s.app.GetUser(r.Context(), id.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUser handles GET /users/{id}.
func (s *Service) GetUser(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.FromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}

	user, err := s.app.GetUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateUser handles PUT /users/{id}. Users may only update themselves.
func (s *Service) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	if userID != id.UserID {
		writeError(w, http.StatusForbidden, "cannot modify another user")
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.app.UpdateUser(r.Context(), userID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{id}. Users may only delete themselves.
func (s *Service) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	userID, ok := userIDFromRequest(w, r)
	if !ok {
		return
	}
	if userID != id.UserID {
		writeError(w, http.StatusForbidden, "cannot modify another user")
		return
	}

	if err := s.app.DeleteUser(r.Context(), userID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userIDFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return uuid.Nil, false
	}
	return userID, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrInviteRequired):
		writeError(w, http.StatusForbidden, "valid invite code required")
	default:
		log.Error().Err(err).Msg("user request failed")
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
