package leaderboard

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/finquest/finquest/internal/models"
)

// Repository is the durable Postgres side of the leaderboard. Redis serves
// reads; these rows are the source the ZSETs are rebuilt from.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new leaderboard repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// AddScore adds delta to the user's score on a board, creating the row if
// it does not exist yet. Returns the new total.
func (r *Repository) AddScore(ctx context.Context, board string, userID uuid.UUID, delta int64) (int64, error) {
	const q = `
		INSERT INTO leaderboard_scores (board, user_id, score, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (board, user_id)
		DO UPDATE SET score = leaderboard_scores.score + EXCLUDED.score, updated_at = now()
		RETURNING score`

	var total int64
	if err := r.db.QueryRowContext(ctx, q, board, userID, delta).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	return total, nil
}

// TopEntries returns the highest-scoring rows of a board with display names
// joined in, ranked from 1.
func (r *Repository) TopEntries(ctx context.Context, board string, limit int) ([]models.LeaderboardEntry, error) {
	const q = `
		SELECT s.user_id, u.display_name, s.score, s.updated_at
		FROM leaderboard_scores s
		JOIN users u ON u.id = s.user_id
		WHERE s.board = $1
		ORDER BY s.score DESC, s.updated_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, board, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	rank := int64(1)
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Score, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Rank = rank
		rank++
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllScores streams every row of a board, used to rebuild the Redis ZSET.
func (r *Repository) AllScores(ctx context.Context, board string) ([]ScoredMember, error) {
	const q = `
		SELECT user_id, score
		FROM leaderboard_scores
		WHERE board = $1`

	rows, err := r.db.QueryContext(ctx, q, board)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var members []ScoredMember
	for rows.Next() {
		var m ScoredMember
		if err := rows.Scan(&m.UserID, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// DisplayNames resolves display names for a set of user ids.
func (r *Repository) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	const q = `
		SELECT id, display_name
		FROM users
		WHERE id = ANY($1)`

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx, q, pq.Array(params))
	if err != nil {
		return nil, fmt.Errorf("failed to query display names: %w", err)
	}
	defer rows.Close()

	names := make(map[uuid.UUID]string, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan display name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
