package gamesession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/models"
)

type fakeRepo struct {
	createGame     func(ctx context.Context, id uuid.UUID, req CreateGameRequest, creator uuid.UUID, creatorName string) (*models.GameSession, error)
	getGame        func(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	getGameDetails func(ctx context.Context, id uuid.UUID) (*GameDetails, error)
	joinGame       func(ctx context.Context, gameID, userID uuid.UUID, displayName string) (*models.PlayerMembership, error)
	leaveGame      func(ctx context.Context, gameID, userID uuid.UUID) (bool, error)
	setReady       func(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error)
	startGame      func(ctx context.Context, gameID, caller uuid.UUID) (bool, error)
	completeGame   func(ctx context.Context, gameID uuid.UUID) (bool, error)
	updateProgress func(ctx context.Context, gameID, userID uuid.UUID, score, progress int) (bool, error)
}

func (f *fakeRepo) CreateGame(ctx context.Context, id uuid.UUID, req CreateGameRequest, creator uuid.UUID, creatorName string) (*models.GameSession, error) {
	return f.createGame(ctx, id, req, creator, creatorName)
}

func (f *fakeRepo) GetGame(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	return f.getGame(ctx, id)
}

func (f *fakeRepo) GetGameDetails(ctx context.Context, id uuid.UUID) (*GameDetails, error) {
	return f.getGameDetails(ctx, id)
}

func (f *fakeRepo) JoinGame(ctx context.Context, gameID, userID uuid.UUID, displayName string) (*models.PlayerMembership, error) {
	return f.joinGame(ctx, gameID, userID, displayName)
}

func (f *fakeRepo) LeaveGame(ctx context.Context, gameID, userID uuid.UUID) (bool, error) {
	return f.leaveGame(ctx, gameID, userID)
}

func (f *fakeRepo) SetReady(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
	return f.setReady(ctx, gameID, userID, ready)
}

func (f *fakeRepo) StartGame(ctx context.Context, gameID, caller uuid.UUID) (bool, error) {
	return f.startGame(ctx, gameID, caller)
}

func (f *fakeRepo) CompleteGame(ctx context.Context, gameID uuid.UUID) (bool, error) {
	return f.completeGame(ctx, gameID)
}

func (f *fakeRepo) UpdateProgress(ctx context.Context, gameID, userID uuid.UUID, score, progress int) (bool, error) {
	return f.updateProgress(ctx, gameID, userID, score, progress)
}

func testIdentity() identity.Identity {
	return identity.Identity{UserID: uuid.New(), Email: "player@example.com"}
}

func TestCreateGameValidation(t *testing.T) {
	app := NewApp(&fakeRepo{})
	id := testIdentity()

	tests := []struct {
		name string
		req  CreateGameRequest
	}{
		{name: "missing name", req: CreateGameRequest{ScenarioID: uuid.New(), MaxPlayers: 4}},
		{name: "missing scenario", req: CreateGameRequest{Name: "lbo night", MaxPlayers: 4}},
		{name: "max players too small", req: CreateGameRequest{Name: "lbo night", ScenarioID: uuid.New(), MaxPlayers: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.CreateGame(context.Background(), id, tt.req)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), "validation failed") {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateGameRequiresIdentity(t *testing.T) {
	app := NewApp(&fakeRepo{})
	req := CreateGameRequest{Name: "lbo night", ScenarioID: uuid.New(), MaxPlayers: 4}

	_, err := app.CreateGame(context.Background(), identity.Identity{}, req)
	if err == nil {
		t.Fatal("expected error for zero identity, got nil")
	}
}

func TestJoinGameCapacityErrorPassesThrough(t *testing.T) {
	repo := &fakeRepo{
		joinGame: func(ctx context.Context, gameID, userID uuid.UUID, displayName string) (*models.PlayerMembership, error) {
			return nil, ErrCapacity
		},
	}
	app := NewApp(repo)

	_, err := app.JoinGame(context.Background(), testIdentity(), uuid.New())
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
}

func TestStartGameLostRaceIsFalseNotError(t *testing.T) {
	repo := &fakeRepo{
		startGame: func(ctx context.Context, gameID, caller uuid.UUID) (bool, error) {
			return false, nil
		},
	}
	app := NewApp(repo)

	started, err := app.StartGame(context.Background(), testIdentity(), uuid.New())
	if err != nil {
		t.Fatalf("start game: %v", err)
	}
	if started {
		t.Fatal("expected started=false for lost race")
	}
}

func TestToggleReadySingleFlight(t *testing.T) {
	release := make(chan struct{})
	inFlight := make(chan struct{})

	repo := &fakeRepo{
		setReady: func(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
			close(inFlight)
			<-release
			return true, nil
		},
	}
	app := NewApp(repo)
	id := testIdentity()
	gameID := uuid.New()

	var wg sync.WaitGroup
	wg.Add(1)
	var firstUpdated bool
	go func() {
		defer wg.Done()
		firstUpdated, _ = app.ToggleReady(context.Background(), id, gameID, true)
	}()

	<-inFlight

	// Second toggle while the first is pending must be refused.
	updated, err := app.ToggleReady(context.Background(), id, gameID, false)
	if err != nil {
		t.Fatalf("toggle ready: %v", err)
	}
	if updated {
		t.Fatal("expected second in-flight toggle to be refused")
	}

	close(release)
	wg.Wait()
	if !firstUpdated {
		t.Fatal("expected first toggle to succeed")
	}

	// After the first resolves, a new toggle goes through again.
	repo.setReady = func(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
		return true, nil
	}
	updated, err = app.ToggleReady(context.Background(), id, gameID, false)
	if err != nil {
		t.Fatalf("toggle ready: %v", err)
	}
	if !updated {
		t.Fatal("expected toggle to succeed once the previous one resolved")
	}
}

func TestToggleReadyDifferentUsersNotSerialized(t *testing.T) {
	release := make(chan struct{})
	inFlight := make(chan struct{})

	repo := &fakeRepo{}
	app := NewApp(repo)
	gameID := uuid.New()

	repo.setReady = func(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
		close(inFlight)
		<-release
		return true, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.ToggleReady(context.Background(), testIdentity(), gameID, true)
	}()

	<-inFlight

	repo2 := func(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
		return true, nil
	}
	repo.setReady = repo2

	updated, err := app.ToggleReady(context.Background(), testIdentity(), gameID, true)
	if err != nil {
		t.Fatalf("toggle ready: %v", err)
	}
	if !updated {
		t.Fatal("expected toggle from a different user to pass")
	}

	close(release)
	wg.Wait()
}

func TestUpdateProgressValidatesRange(t *testing.T) {
	app := NewApp(&fakeRepo{})

	for _, progress := range []int{-1, 101} {
		_, err := app.UpdateProgress(context.Background(), testIdentity(), uuid.New(), 100, progress)
		if err == nil {
			t.Fatalf("expected error for progress %d, got nil", progress)
		}
	}
}

func TestCompleteGameRunsCompletionHook(t *testing.T) {
	gameID := uuid.New()
	details := &GameDetails{
		Session: &models.GameSession{ID: gameID, Status: models.GameStatusCompleted},
		Members: []models.PlayerMembership{{GameID: gameID, UserID: uuid.New(), Score: 750}},
	}

	repo := &fakeRepo{
		completeGame: func(ctx context.Context, id uuid.UUID) (bool, error) {
			return true, nil
		},
		getGameDetails: func(ctx context.Context, id uuid.UUID) (*GameDetails, error) {
			return details, nil
		},
	}
	app := NewApp(repo)

	var got *GameDetails
	app.OnCompleted(func(ctx context.Context, d *GameDetails) {
		got = d
	})

	completed, err := app.CompleteGame(context.Background(), gameID)
	if err != nil {
		t.Fatalf("complete game: %v", err)
	}
	if !completed {
		t.Fatal("expected completed=true")
	}
	if got != details {
		t.Fatal("expected completion hook to receive the final snapshot")
	}
}

func TestCompleteGameSkipsHookWhenNotCompleted(t *testing.T) {
	repo := &fakeRepo{
		completeGame: func(ctx context.Context, id uuid.UUID) (bool, error) {
			return false, nil
		},
	}
	app := NewApp(repo)

	called := false
	app.OnCompleted(func(ctx context.Context, d *GameDetails) {
		called = true
	})

	completed, err := app.CompleteGame(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("complete game: %v", err)
	}
	if completed || called {
		t.Fatal("expected no completion and no hook call")
	}
}
