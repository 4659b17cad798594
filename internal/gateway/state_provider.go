package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/gamesession"
)

// StateProvider serves the authoritative snapshot for one game. Clients get
// one on connect and whenever they ask to be re-synced, which is what makes
// a dropped push channel recoverable.
type StateProvider interface {
	GetGameState(ctx context.Context, gameID uuid.UUID) (*gamesession.GameDetails, error)
}

// AppStateProvider implements StateProvider on top of the game-session app.
type AppStateProvider struct {
	app *gamesession.App
}

func NewAppStateProvider(app *gamesession.App) *AppStateProvider {
	return &AppStateProvider{app: app}
}

func (p *AppStateProvider) GetGameState(ctx context.Context, gameID uuid.UUID) (*gamesession.GameDetails, error) {
	details, err := p.app.GetGameDetails(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game state: %w", err)
	}
	return details, nil
}

// snapshotMessage is the wire envelope for a pushed snapshot, distinguished
// from change events by its type tag.
type snapshotMessage struct {
	Type    string                   `json:"type"`
	Details *gamesession.GameDetails `json:"details"`
}

func encodeSnapshot(details *gamesession.GameDetails) ([]byte, error) {
	return json.Marshal(snapshotMessage{Type: "snapshot", Details: details})
}
