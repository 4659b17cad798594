package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Scenario represents one LBO exercise: the company profile and deal
// assumptions a game session is played against.
type Scenario struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Difficulty  string          `json:"difficulty"`
	CompanyData json.RawMessage `json:"company_data"` // JSONB blob
	CreatedAt   time.Time       `json:"created_at"`
}
