package models

import (
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry is one ranked row of a board.
type LeaderboardEntry struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Score       int64     `json:"score"`
	Rank        int64     `json:"rank"`
	UpdatedAt   time.Time `json:"updated_at"`
}
