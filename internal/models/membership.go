package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerMembership represents one player's participation record within a
// game session. Exactly one row exists per (game, user) pair.
type PlayerMembership struct {
	GameID      uuid.UUID `json:"game_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	IsReady     bool      `json:"is_ready"`
	Score       int       `json:"score"`
	Progress    int       `json:"progress"` // 0-100
	JoinedAt    time.Time `json:"joined_at"`
}
