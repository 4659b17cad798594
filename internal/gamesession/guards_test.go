package gamesession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/identity"
	"github.com/finquest/finquest/internal/models"
)

// memoryRepo is an in-memory store honoring the same conditional-write
// contract as the SQL repository: capacity checks and the start guards are
// evaluated atomically under one lock, so concurrent callers race exactly
// the way they do against the database.
type memoryRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.GameSession
	members  map[uuid.UUID][]models.PlayerMembership
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sessions: make(map[uuid.UUID]*models.GameSession),
		members:  make(map[uuid.UUID][]models.PlayerMembership),
	}
}

func (m *memoryRepo) CreateGame(ctx context.Context, id uuid.UUID, req CreateGameRequest, creator uuid.UUID, creatorName string) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := &models.GameSession{
		ID:         id,
		Name:       req.Name,
		ScenarioID: req.ScenarioID,
		Status:     models.GameStatusWaiting,
		CreatedBy:  creator,
		MaxPlayers: req.MaxPlayers,
		CreatedAt:  time.Now(),
	}
	m.sessions[id] = session
	m.members[id] = []models.PlayerMembership{{
		GameID:      id,
		UserID:      creator,
		DisplayName: creatorName,
		JoinedAt:    time.Now(),
	}}
	return session, nil
}

func (m *memoryRepo) GetGame(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memoryRepo) GetGameDetails(ctx context.Context, id uuid.UUID) (*GameDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *session
	members := make([]models.PlayerMembership, len(m.members[id]))
	copy(members, m.members[id])
	return &GameDetails{Session: &copied, Members: members}, nil
}

func (m *memoryRepo) JoinGame(ctx context.Context, gameID, userID uuid.UUID, displayName string) (*models.PlayerMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[gameID]
	if !ok {
		return nil, ErrNotFound
	}

	// Re-joining updates the existing row, never duplicates.
	for i, member := range m.members[gameID] {
		if member.UserID == userID {
			m.members[gameID][i].DisplayName = displayName
			copied := m.members[gameID][i]
			return &copied, nil
		}
	}

	if session.Status != models.GameStatusWaiting {
		return nil, ErrNotJoinable
	}
	if len(m.members[gameID]) >= session.MaxPlayers {
		return nil, ErrCapacity
	}

	member := models.PlayerMembership{
		GameID:      gameID,
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    time.Now(),
	}
	m.members[gameID] = append(m.members[gameID], member)
	return &member, nil
}

func (m *memoryRepo) LeaveGame(ctx context.Context, gameID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, member := range m.members[gameID] {
		if member.UserID == userID {
			m.members[gameID] = append(m.members[gameID][:i], m.members[gameID][i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) SetReady(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[gameID]
	if !ok || session.Status != models.GameStatusWaiting {
		return false, nil
	}
	for i, member := range m.members[gameID] {
		if member.UserID == userID {
			m.members[gameID][i].IsReady = ready
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) StartGame(ctx context.Context, gameID, caller uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[gameID]
	if !ok {
		return false, nil
	}
	if session.CreatedBy != caller || session.Status != models.GameStatusWaiting {
		return false, nil
	}
	if len(m.members[gameID]) < 2 {
		return false, nil
	}
	for _, member := range m.members[gameID] {
		if !member.IsReady {
			return false, nil
		}
	}

	now := time.Now()
	session.Status = models.GameStatusInProgress
	session.StartedAt = &now
	return true, nil
}

func (m *memoryRepo) CompleteGame(ctx context.Context, gameID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[gameID]
	if !ok || session.Status != models.GameStatusInProgress {
		return false, nil
	}
	now := time.Now()
	session.Status = models.GameStatusCompleted
	session.EndedAt = &now
	return true, nil
}

func (m *memoryRepo) UpdateProgress(ctx context.Context, gameID, userID uuid.UUID, score, progress int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[gameID]
	if !ok || session.Status != models.GameStatusInProgress {
		return false, nil
	}
	for i, member := range m.members[gameID] {
		if member.UserID == userID {
			m.members[gameID][i].Score = score
			m.members[gameID][i].Progress = progress
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) memberCount(gameID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members[gameID])
}

func createWaitingGame(t *testing.T, app *App, maxPlayers int) (identity.Identity, *models.GameSession) {
	t.Helper()
	creator := identity.Identity{UserID: uuid.New(), Email: "creator@example.com"}
	session, err := app.CreateGame(context.Background(), creator, CreateGameRequest{
		Name:       "market open",
		ScenarioID: uuid.New(),
		MaxPlayers: maxPlayers,
	})
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	return creator, session
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	const joiners = 16

	// Repeat to shake out interleavings; the capacity check has to be
	// atomic for every round to come out exact.
	for round := 0; round < 20; round++ {
		repo := newMemoryRepo()
		app := NewApp(repo)
		_, session := createWaitingGame(t, app, 4)

		var wg sync.WaitGroup
		var joinedMu sync.Mutex
		joined, full := 0, 0
		for i := 0; i < joiners; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := identity.Identity{UserID: uuid.New(), Email: "player@example.com"}
				_, err := app.JoinGame(context.Background(), id, session.ID)
				joinedMu.Lock()
				defer joinedMu.Unlock()
				switch {
				case err == nil:
					joined++
				case errors.Is(err, ErrCapacity):
					full++
				default:
					t.Errorf("unexpected join error: %v", err)
				}
			}()
		}
		wg.Wait()

		// The creator holds one slot, so exactly three joins can land.
		if joined != 3 {
			t.Fatalf("round %d: expected 3 successful joins, got %d", round, joined)
		}
		if full != joiners-3 {
			t.Fatalf("round %d: expected %d capacity refusals, got %d", round, joiners-3, full)
		}
		if count := repo.memberCount(session.ID); count != session.MaxPlayers {
			t.Fatalf("round %d: expected %d members, got %d", round, session.MaxPlayers, count)
		}
	}
}

func TestJoinAfterStartIsNotJoinable(t *testing.T) {
	repo := newMemoryRepo()
	app := NewApp(repo)
	creator, session := createWaitingGame(t, app, 4)

	other := identity.Identity{UserID: uuid.New(), Email: "other@example.com"}
	if _, err := app.JoinGame(context.Background(), other, session.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	for _, id := range []identity.Identity{creator, other} {
		if ok, err := app.ToggleReady(context.Background(), id, session.ID, true); err != nil || !ok {
			t.Fatalf("ready: ok=%v err=%v", ok, err)
		}
	}
	if ok, err := app.StartGame(context.Background(), creator, session.ID); err != nil || !ok {
		t.Fatalf("start: ok=%v err=%v", ok, err)
	}

	late := identity.Identity{UserID: uuid.New(), Email: "late@example.com"}
	if _, err := app.JoinGame(context.Background(), late, session.ID); !errors.Is(err, ErrNotJoinable) {
		t.Fatalf("expected ErrNotJoinable, got %v", err)
	}

	// A member who was already in may still rejoin for a display-name
	// refresh after the start.
	if _, err := app.JoinGame(context.Background(), other, session.ID); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
}

func TestStartGameGuards(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity
		want  bool
	}{
		{
			name: "all guards hold",
			setup: func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity {
				other := identity.Identity{UserID: uuid.New()}
				mustJoinReady(t, app, other, gameID)
				mustReady(t, app, creator, gameID)
				return creator
			},
			want: true,
		},
		{
			name: "caller is not the creator",
			setup: func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity {
				other := identity.Identity{UserID: uuid.New()}
				mustJoinReady(t, app, other, gameID)
				mustReady(t, app, creator, gameID)
				return other
			},
			want: false,
		},
		{
			name: "only the creator present",
			setup: func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity {
				mustReady(t, app, creator, gameID)
				return creator
			},
			want: false,
		},
		{
			name: "one member not ready",
			setup: func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity {
				other := identity.Identity{UserID: uuid.New()}
				mustJoinReady(t, app, other, gameID)
				return creator
			},
			want: false,
		},
		{
			name: "unready third member blocks the start",
			setup: func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity {
				other := identity.Identity{UserID: uuid.New()}
				mustJoinReady(t, app, other, gameID)
				mustReady(t, app, creator, gameID)
				third := identity.Identity{UserID: uuid.New()}
				if _, err := app.JoinGame(ctx, third, gameID); err != nil {
					t.Fatalf("join: %v", err)
				}
				return creator
			},
			want: false,
		},
		{
			name: "game already in progress",
			setup: func(t *testing.T, app *App, creator identity.Identity, gameID uuid.UUID) identity.Identity {
				other := identity.Identity{UserID: uuid.New()}
				mustJoinReady(t, app, other, gameID)
				mustReady(t, app, creator, gameID)
				if ok, err := app.StartGame(ctx, creator, gameID); err != nil || !ok {
					t.Fatalf("first start: ok=%v err=%v", ok, err)
				}
				return creator
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepo()
			app := NewApp(repo)
			creator, session := createWaitingGame(t, app, 4)

			caller := tt.setup(t, app, creator, session.ID)

			started, err := app.StartGame(ctx, caller, session.ID)
			if err != nil {
				t.Fatalf("start game: %v", err)
			}
			if started != tt.want {
				t.Fatalf("expected started=%v, got %v", tt.want, started)
			}

			session, err = repo.GetGame(ctx, session.ID)
			if err != nil {
				t.Fatalf("get game: %v", err)
			}
			if tt.want && session.Status != models.GameStatusInProgress {
				t.Fatalf("expected in_progress after start, got %s", session.Status)
			}
			if tt.name == "one member not ready" && session.Status != models.GameStatusWaiting {
				t.Fatalf("expected waiting after refused start, got %s", session.Status)
			}
		})
	}
}

func mustJoinReady(t *testing.T, app *App, id identity.Identity, gameID uuid.UUID) {
	t.Helper()
	if _, err := app.JoinGame(context.Background(), id, gameID); err != nil {
		t.Fatalf("join: %v", err)
	}
	mustReady(t, app, id, gameID)
}

func mustReady(t *testing.T, app *App, id identity.Identity, gameID uuid.UUID) {
	t.Helper()
	if ok, err := app.ToggleReady(context.Background(), id, gameID, true); err != nil || !ok {
		t.Fatalf("ready: ok=%v err=%v", ok, err)
	}
}
