package gamesession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/models"
)

// detailsTimeout bounds GetGameDetails so a slow store surfaces as a
// retryable ErrTimeout instead of hanging the caller.
const detailsTimeout = 5 * time.Second

// GameRepository defines what the app layer needs from the repository.
type GameRepository interface {
	CreateGame(ctx context.Context, id uuid.UUID, req CreateGameRequest, creator uuid.UUID, creatorName string) (*models.GameSession, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	GetGameDetails(ctx context.Context, id uuid.UUID) (*GameDetails, error)
	JoinGame(ctx context.Context, gameID, userID uuid.UUID, displayName string) (*models.PlayerMembership, error)
	LeaveGame(ctx context.Context, gameID, userID uuid.UUID) (bool, error)
	SetReady(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error)
	StartGame(ctx context.Context, gameID, caller uuid.UUID) (bool, error)
	CompleteGame(ctx context.Context, gameID uuid.UUID) (bool, error)
	UpdateProgress(ctx context.Context, gameID, userID uuid.UUID, score, progress int) (bool, error)
}

// App handles game-session business logic. The identity is always an
// explicit argument; the app never reads it from ambient state.
type App struct {
	repo GameRepository

	// One ready-toggle in flight per (game, user). A second toggle while
	// the first is pending is refused, so out-of-order acknowledgements
	// cannot flip the visible state backwards.
	togglesMu sync.Mutex
	toggles   map[string]bool

	onCompleted func(ctx context.Context, details *GameDetails)
}

// NewApp creates a new game-session App.
func NewApp(repo GameRepository) *App {
	return &App{
		repo:    repo,
		toggles: make(map[string]bool),
	}
}

// CreateGame creates a session in the waiting state with the creator's
// unready membership.
func (a *App) CreateGame(ctx context.Context, id identity.Identity, req CreateGameRequest) (*models.GameSession, error) {
	if err := validateCreateGameRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if id.Zero() {
		return nil, fmt.Errorf("validation failed: identity is required")
	}

	session, err := a.repo.CreateGame(ctx, uuid.New(), req, id.UserID, id.Email)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", session.ID.String()).
		Str("created_by", id.UserID.String()).
		Int("max_players", session.MaxPlayers).
		Msg("game session created")
	return session, nil
}

// GetGameDetails fetches the session and ordered memberships, racing the
// query against a bounded wait.
func (a *App) GetGameDetails(ctx context.Context, gameID uuid.UUID) (*GameDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, detailsTimeout)
	defer cancel()
	return a.repo.GetGameDetails(ctx, gameID)
}

// JoinGame upserts the caller's membership. Losing the race for the last
// slot surfaces as ErrCapacity.
func (a *App) JoinGame(ctx context.Context, id identity.Identity, gameID uuid.UUID) (*models.PlayerMembership, error) {
	if id.Zero() {
		return nil, fmt.Errorf("validation failed: identity is required")
	}

	member, err := a.repo.JoinGame(ctx, gameID, id.UserID, id.Email)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", gameID.String()).
		Str("user_id", id.UserID.String()).
		Msg("player joined game")
	return member, nil
}

// LeaveGame removes the caller's membership; false means there was none.
// A creator leaving a waiting game orphans it: there is deliberately no
// reassignment or auto-cancel here.
func (a *App) LeaveGame(ctx context.Context, id identity.Identity, gameID uuid.UUID) (bool, error) {
	left, err := a.repo.LeaveGame(ctx, gameID, id.UserID)
	if err != nil {
		return false, err
	}
	if left {
		log.Info().
			Str("game_id", gameID.String()).
			Str("user_id", id.UserID.String()).
			Msg("player left game")
	}
	return left, nil
}

// ToggleReady flips the caller's own readiness flag. Returns false without
// error when the game is not waiting, when the caller has no membership,
// or when another toggle from this client is still in flight.
func (a *App) ToggleReady(ctx context.Context, id identity.Identity, gameID uuid.UUID, ready bool) (bool, error) {
	key := gameID.String() + "/" + id.UserID.String()

	a.togglesMu.Lock()
	if a.toggles[key] {
		a.togglesMu.Unlock()
		log.Debug().
			Str("game_id", gameID.String()).
			Str("user_id", id.UserID.String()).
			Msg("ready toggle already in flight, refusing")
		return false, nil
	}
	a.toggles[key] = true
	a.togglesMu.Unlock()

	defer func() {
		a.togglesMu.Lock()
		delete(a.toggles, key)
		a.togglesMu.Unlock()
	}()

	return a.repo.SetReady(ctx, gameID, id.UserID, ready)
}

// StartGame issues the guarded waiting -> in_progress transition. A false
// return is the expected outcome of a lost concurrent race, never an error.
func (a *App) StartGame(ctx context.Context, id identity.Identity, gameID uuid.UUID) (bool, error) {
	started, err := a.repo.StartGame(ctx, gameID, id.UserID)
	if err != nil {
		return false, err
	}
	if started {
		log.Info().
			Str("game_id", gameID.String()).
			Str("started_by", id.UserID.String()).
			Msg("game started")
	}
	return started, nil
}

// OnCompleted registers a hook invoked with the final snapshot after a
// successful completion. Used to feed final scores downstream.
func (a *App) OnCompleted(fn func(ctx context.Context, details *GameDetails)) {
	a.onCompleted = fn
}

// CompleteGame finishes an in-progress game.
func (a *App) CompleteGame(ctx context.Context, gameID uuid.UUID) (bool, error) {
	completed, err := a.repo.CompleteGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	if completed {
		log.Info().Str("game_id", gameID.String()).Msg("game completed")
		if a.onCompleted != nil {
			details, err := a.repo.GetGameDetails(ctx, gameID)
			if err != nil {
				log.Error().Err(err).Str("game_id", gameID.String()).Msg("failed to load final snapshot")
			} else {
				a.onCompleted(ctx, details)
			}
		}
	}
	return completed, nil
}

// UpdateProgress records one player's score and completion percentage.
func (a *App) UpdateProgress(ctx context.Context, id identity.Identity, gameID uuid.UUID, score, progress int) (bool, error) {
	if progress < 0 || progress > 100 {
		return false, fmt.Errorf("validation failed: progress must be between 0 and 100")
	}
	return a.repo.UpdateProgress(ctx, gameID, id.UserID, score, progress)
}

func validateCreateGameRequest(req CreateGameRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.ScenarioID == uuid.Nil {
		return fmt.Errorf("scenario_id is required")
	}
	if req.MaxPlayers < 2 {
		return fmt.Errorf("max_players must be at least 2")
	}
	return nil
}
