package scenarios

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/models"
)

// ScenarioReader defines what the service needs from the repository.
type ScenarioReader interface {
	GetScenario(ctx context.Context, id uuid.UUID) (*models.Scenario, error)
	ListScenarios(ctx context.Context) ([]models.Scenario, error)
}

// Service exposes scenario reads over HTTP. Scenarios are seeded content,
// there is no write surface.
type Service struct {
	repo ScenarioReader
}

// NewService creates a new scenarios HTTP service.
func NewService(repo ScenarioReader) *Service {
	return &Service{repo: repo}
}

// RegisterRoutes mounts the scenario endpoints on the router.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/scenarios", s.ListScenarios).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/scenarios/{id}", s.GetScenario).Methods(http.MethodGet, http.MethodOptions)
}

// ListScenarios handles GET /scenarios.
func (s *Service) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.repo.ListScenarios(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("scenario list failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

// GetScenario handles GET /scenarios/{id}.
func (s *Service) GetScenario(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scenario id")
		return
	}

	scenario, err := s.repo.GetScenario(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "scenario not found")
			return
		}
		log.Error().Err(err).Msg("scenario get failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, scenario)
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
