package gamesession

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/finquest/finquest/internal/events"
	"github.com/finquest/finquest/internal/models"
	"github.com/finquest/finquest/internal/sqlutil"
)

// NotifyChannel is the Postgres NOTIFY channel mutations ping after writing
// their outbox row.
const NotifyChannel = "game_outbox_events"

// Repository owns all game-session SQL. Every mutation writes its change
// event into the outbox table inside the same transaction, so the event
// stream and the source of truth cannot disagree.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const sessionColumns = `id, name, scenario_id, status, created_by, max_players, started_at, ended_at, created_at, updated_at`

const membershipColumns = `game_id, user_id, display_name, is_ready, score, progress, joined_at`

// CreateGame inserts the session row plus the creator's unready membership.
func (r *Repository) CreateGame(ctx context.Context, id uuid.UUID, req CreateGameRequest, creator uuid.UUID, creatorName string) (*models.GameSession, error) {
	var session models.GameSession
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO game_sessions (id, name, scenario_id, status, created_by, max_players)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+sessionColumns,
			id, req.Name, req.ScenarioID, models.GameStatusWaiting, creator, req.MaxPlayers,
		)
		if err := scanSession(row, &session); err != nil {
			return err
		}

		var member models.PlayerMembership
		mrow := tx.QueryRowContext(ctx, `
			INSERT INTO player_memberships (game_id, user_id, display_name, is_ready)
			VALUES ($1, $2, $3, false)
			RETURNING `+membershipColumns,
			id, creator, creatorName,
		)
		if err := scanMembership(mrow, &member); err != nil {
			return err
		}

		if err := r.emit(ctx, tx, id, events.TableGameSessions, events.OpInsert, nil, session); err != nil {
			return err
		}
		return r.emit(ctx, tx, id, events.TablePlayerMemberships, events.OpInsert, nil, member)
	})
	if err != nil {
		return nil, normalizeError("create game", err)
	}
	return &session, nil
}

// GetGame fetches a single session row.
func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	var session models.GameSession
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = $1`, id)
	if err := scanSession(row, &session); err != nil {
		return nil, normalizeError("get game", err)
	}
	return &session, nil
}

// GetGameDetails fetches the session and all memberships, ordered by join
// time ascending.
func (r *Repository) GetGameDetails(ctx context.Context, id uuid.UUID) (*GameDetails, error) {
	session, err := r.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+membershipColumns+`
		FROM player_memberships
		WHERE game_id = $1
		ORDER BY joined_at ASC`, id)
	if err != nil {
		return nil, normalizeError("list memberships", err)
	}
	defer rows.Close()

	var members []models.PlayerMembership
	for rows.Next() {
		var m models.PlayerMembership
		if err := scanMembership(rows, &m); err != nil {
			return nil, normalizeError("scan membership", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, normalizeError("list memberships", err)
	}

	return &GameDetails{Session: session, Members: members}, nil
}

// JoinGame upserts the caller's membership. The session row is locked for
// the duration of the capacity check so two racers for the last slot cannot
// both pass it; the loser gets ErrCapacity.
func (r *Repository) JoinGame(ctx context.Context, gameID, userID uuid.UUID, displayName string) (*models.PlayerMembership, error) {
	var member models.PlayerMembership
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var status models.GameStatus
		var maxPlayers int
		err := tx.QueryRowContext(ctx, `
			SELECT status, max_players FROM game_sessions WHERE id = $1 FOR UPDATE`,
			gameID,
		).Scan(&status, &maxPlayers)
		if err != nil {
			return err
		}

		// Re-joining updates the existing row, never duplicates, and is
		// allowed even when the room is otherwise full.
		var existing bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM player_memberships WHERE game_id = $1 AND user_id = $2)`,
			gameID, userID,
		).Scan(&existing)
		if err != nil {
			return err
		}

		if !existing {
			if status != models.GameStatusWaiting {
				return ErrNotJoinable
			}
			var count int
			err = tx.QueryRowContext(ctx, `
				SELECT count(*) FROM player_memberships WHERE game_id = $1`,
				gameID,
			).Scan(&count)
			if err != nil {
				return err
			}
			if count >= maxPlayers {
				return ErrCapacity
			}
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO player_memberships (game_id, user_id, display_name, is_ready)
			VALUES ($1, $2, $3, false)
			ON CONFLICT (game_id, user_id)
			DO UPDATE SET display_name = EXCLUDED.display_name
			RETURNING `+membershipColumns,
			gameID, userID, displayName,
		)
		if err := scanMembership(row, &member); err != nil {
			return err
		}

		op := events.OpInsert
		if existing {
			op = events.OpUpdate
		}
		return r.emit(ctx, tx, gameID, events.TablePlayerMemberships, op, nil, member)
	})
	if err != nil {
		return nil, normalizeError("join game", err)
	}
	return &member, nil
}

// LeaveGame deletes the caller's membership. Returns false, not an error,
// when no membership existed.
func (r *Repository) LeaveGame(ctx context.Context, gameID, userID uuid.UUID) (bool, error) {
	var left bool
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var before models.PlayerMembership
		row := tx.QueryRowContext(ctx, `
			DELETE FROM player_memberships
			WHERE game_id = $1 AND user_id = $2
			RETURNING `+membershipColumns,
			gameID, userID,
		)
		if err := scanMembership(row, &before); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		left = true
		return r.emit(ctx, tx, gameID, events.TablePlayerMemberships, events.OpDelete, before, nil)
	})
	if err != nil {
		return false, normalizeError("leave game", err)
	}
	return left, nil
}

// SetReady flips the caller's readiness flag. The update only lands while
// the game is still waiting; otherwise no row matches and false comes back.
func (r *Repository) SetReady(ctx context.Context, gameID, userID uuid.UUID, ready bool) (bool, error) {
	var updated bool
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var member models.PlayerMembership
		row := tx.QueryRowContext(ctx, `
			UPDATE player_memberships m
			SET is_ready = $3
			FROM game_sessions g
			WHERE m.game_id = $1 AND m.user_id = $2
			  AND g.id = m.game_id AND g.status = $4
			RETURNING m.game_id, m.user_id, m.display_name, m.is_ready, m.score, m.progress, m.joined_at`,
			gameID, userID, ready, models.GameStatusWaiting,
		)
		if err := scanMembership(row, &member); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		updated = true
		return r.emit(ctx, tx, gameID, events.TablePlayerMemberships, events.OpUpdate, nil, member)
	})
	if err != nil {
		return false, normalizeError("set ready", err)
	}
	return updated, nil
}

// StartGame performs the waiting -> in_progress transition as one
// conditional update. All four guards live in the WHERE clause, so a lost
// race simply matches zero rows.
func (r *Repository) StartGame(ctx context.Context, gameID, caller uuid.UUID) (bool, error) {
	var started bool
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var session models.GameSession
		row := tx.QueryRowContext(ctx, `
			UPDATE game_sessions
			SET status = $3, started_at = now(), updated_at = now()
			WHERE id = $1
			  AND created_by = $2
			  AND status = $4
			  AND (SELECT count(*) FROM player_memberships WHERE game_id = $1) >= 2
			  AND NOT EXISTS (SELECT 1 FROM player_memberships WHERE game_id = $1 AND NOT is_ready)
			RETURNING `+sessionColumns,
			gameID, caller, models.GameStatusInProgress, models.GameStatusWaiting,
		)
		if err := scanSession(row, &session); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		started = true
		return r.emit(ctx, tx, gameID, events.TableGameSessions, events.OpUpdate, nil, session)
	})
	if err != nil {
		return false, normalizeError("start game", err)
	}
	return started, nil
}

// CompleteGame performs the one-way in_progress -> completed transition.
func (r *Repository) CompleteGame(ctx context.Context, gameID uuid.UUID) (bool, error) {
	var completed bool
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var session models.GameSession
		row := tx.QueryRowContext(ctx, `
			UPDATE game_sessions
			SET status = $2, ended_at = now(), updated_at = now()
			WHERE id = $1 AND status = $3
			RETURNING `+sessionColumns,
			gameID, models.GameStatusCompleted, models.GameStatusInProgress,
		)
		if err := scanSession(row, &session); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		completed = true
		return r.emit(ctx, tx, gameID, events.TableGameSessions, events.OpUpdate, nil, session)
	})
	if err != nil {
		return false, normalizeError("complete game", err)
	}
	return completed, nil
}

// UpdateProgress records score and completion percentage for one player
// during an in-progress game.
func (r *Repository) UpdateProgress(ctx context.Context, gameID, userID uuid.UUID, score, progress int) (bool, error) {
	var updated bool
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		var member models.PlayerMembership
		row := tx.QueryRowContext(ctx, `
			UPDATE player_memberships m
			SET score = $3, progress = least(greatest($4, 0), 100)
			FROM game_sessions g
			WHERE m.game_id = $1 AND m.user_id = $2
			  AND g.id = m.game_id AND g.status = $5
			RETURNING m.game_id, m.user_id, m.display_name, m.is_ready, m.score, m.progress, m.joined_at`,
			gameID, userID, score, progress, models.GameStatusInProgress,
		)
		if err := scanMembership(row, &member); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		updated = true
		return r.emit(ctx, tx, gameID, events.TablePlayerMemberships, events.OpUpdate, nil, member)
	})
	if err != nil {
		return false, normalizeError("update progress", err)
	}
	return updated, nil
}

// emit writes the change event to the outbox inside the caller's tx and
// pings the NOTIFY channel so the listener wakes without polling.
func (r *Repository) emit(ctx context.Context, tx *sql.Tx, gameID uuid.UUID, table string, op events.Operation, before, after any) error {
	var rowBefore, rowAfter json.RawMessage
	var err error
	if before != nil {
		if rowBefore, err = json.Marshal(before); err != nil {
			return fmt.Errorf("failed to marshal row_before: %w", err)
		}
	}
	if after != nil {
		if rowAfter, err = json.Marshal(after); err != nil {
			return fmt.Errorf("failed to marshal row_after: %w", err)
		}
	}

	id := uuid.New()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO game_outbox (id, game_id, table_name, operation, row_before, row_after)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, gameID, table, op, sqlutil.NullableJSON(rowBefore), sqlutil.NullableJSON(rowAfter),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, id.String())
	if err != nil {
		return fmt.Errorf("failed to notify outbox channel: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner, s *models.GameSession) error {
	var startedAt, endedAt sql.NullTime
	err := row.Scan(&s.ID, &s.Name, &s.ScenarioID, &s.Status, &s.CreatedBy,
		&s.MaxPlayers, &startedAt, &endedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return err
	}
	s.StartedAt = sqlutil.FromSqlTime(startedAt)
	s.EndedAt = sqlutil.FromSqlTime(endedAt)
	return nil
}

func scanMembership(row scanner, m *models.PlayerMembership) error {
	return row.Scan(&m.GameID, &m.UserID, &m.DisplayName, &m.IsReady,
		&m.Score, &m.Progress, &m.JoinedAt)
}

// normalizeError maps driver-level failures into the package taxonomy.
func normalizeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrCapacity), errors.Is(err, ErrNotJoinable):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	default:
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return fmt.Errorf("%s: %w: %s (%s)", op, ErrPersistence, pqErr.Message, pqErr.Code)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
	}
}
