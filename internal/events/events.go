package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of row change a store mutation produced.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Table names change events can reference.
const (
	TableGameSessions      = "game_sessions"
	TablePlayerMemberships = "player_memberships"
)

// ChangeEvent is the wire shape for every live update: which table changed,
// how, and the row images around the change. Consumers filter by GameID and
// always re-derive state from the latest snapshot, never by diffing Before
// against remembered state.
type ChangeEvent struct {
	ID        uuid.UUID       `json:"id"`
	GameID    uuid.UUID       `json:"game_id"`
	Table     string          `json:"table"`
	Operation Operation       `json:"operation"`
	RowBefore json.RawMessage `json:"row_before,omitempty"`
	RowAfter  json.RawMessage `json:"row_after,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subject returns the NATS subject this event is published on.
func (e *ChangeEvent) Subject() string {
	return fmt.Sprintf("game.events.%s", e.GameID)
}

// SubjectAll matches every game's change events.
const SubjectAll = "game.events.>"

// Decode parses a published event, rejecting payloads that are structurally
// unusable. A malformed payload is treated by consumers as a missed
// notification, not a fatal condition.
func Decode(data []byte) (*ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change event: %w", err)
	}
	if ev.GameID == uuid.Nil {
		return nil, fmt.Errorf("change event missing game id")
	}
	switch ev.Operation {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return nil, fmt.Errorf("unknown change operation %q", ev.Operation)
	}
	return &ev, nil
}
