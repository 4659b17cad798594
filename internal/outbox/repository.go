package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/finquest/finquest/internal/sqlutil"
)

// Repository reads and settles outbox rows. Rows are written by the
// gamesession repository inside its mutation transactions; this side only
// claims and marks them.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchUnsent returns up to limit unsent events in write order.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, game_id, table_name, operation, row_before, row_after, created_at, sent_at
		FROM game_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var before, after []byte
		var sentAt sql.NullTime
		if err := rows.Scan(&ev.ID, &ev.GameID, &ev.Table, &ev.Operation, &before, &after, &ev.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		ev.RowBefore = before
		ev.RowAfter = after
		ev.SentAt = sqlutil.FromSqlTime(sentAt)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// FetchByID returns one outbox row, typically the one a NOTIFY named.
func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var ev Event
	var before, after []byte
	var sentAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, game_id, table_name, operation, row_before, row_after, created_at, sent_at
		FROM game_outbox
		WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.GameID, &ev.Table, &ev.Operation, &before, &after, &ev.CreatedAt, &sentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch outbox event %s: %w", id, err)
	}
	ev.RowBefore = before
	ev.RowAfter = after
	ev.SentAt = sqlutil.FromSqlTime(sentAt)
	return &ev, nil
}

// MarkSent settles a batch of published events.
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE game_outbox SET sent_at = now() WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark outbox events sent: %w", err)
	}
	return nil
}

// DeleteSentBefore prunes settled rows older than the retention horizon.
func (r *Repository) DeleteSentBefore(ctx context.Context, horizon string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM game_outbox WHERE sent_at IS NOT NULL AND sent_at < now() - $1::interval`,
		horizon)
	if err != nil {
		return 0, fmt.Errorf("failed to prune outbox: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
