package gamesession

import (
	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/models"
)

// CreateGameRequest represents a request to create a new game session.
type CreateGameRequest struct {
	Name       string    `json:"name"`
	ScenarioID uuid.UUID `json:"scenario_id"`
	MaxPlayers int       `json:"max_players"`
}

// GameDetails bundles a session row with its memberships, ordered by join
// time ascending for stable display ordering.
type GameDetails struct {
	Session *models.GameSession       `json:"session"`
	Members []models.PlayerMembership `json:"members"`
}

// AllReady reports whether the start precondition holds on this snapshot:
// at least two members and every one of them ready.
func (d *GameDetails) AllReady() bool {
	if len(d.Members) < 2 {
		return false
	}
	for _, m := range d.Members {
		if !m.IsReady {
			return false
		}
	}
	return true
}
