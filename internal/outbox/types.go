package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one unsent change event sitting in the game_outbox table.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	GameID    uuid.UUID       `json:"game_id"`
	Table     string          `json:"table"`
	Operation string          `json:"operation"`
	RowBefore json.RawMessage `json:"row_before,omitempty"`
	RowAfter  json.RawMessage `json:"row_after,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
