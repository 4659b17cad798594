package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle state of a game session.
type GameStatus string

const (
	GameStatusWaiting    GameStatus = "waiting"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusCompleted  GameStatus = "completed"
)

// GameSession represents one multiplayer game room.
// Status only ever moves forward: waiting -> in_progress -> completed.
type GameSession struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	ScenarioID uuid.UUID  `json:"scenario_id"`
	Status     GameStatus `json:"status"`
	CreatedBy  uuid.UUID  `json:"created_by"`
	MaxPlayers int        `json:"max_players"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
