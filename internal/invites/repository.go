package invites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/models"
)

// ErrNotFound indicates the invite code does not exist.
var ErrNotFound = errors.New("invite code not found")

// Repository implements invite-code data access over Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new invites repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateInvite inserts a new invite code.
func (r *Repository) CreateInvite(ctx context.Context, code string, createdBy uuid.UUID) (*models.InviteCode, error) {
	const q = `
		INSERT INTO invite_codes (id, code, created_by, revoked, created_at)
		VALUES ($1, $2, $3, false, now())
		RETURNING id, code, created_by, used_by, revoked, created_at, used_at`

	invite, err := scanInvite(r.db.QueryRowContext(ctx, q, uuid.New(), code, createdBy))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}
	return invite, nil
}

// GetInviteByCode retrieves an invite by its code string.
func (r *Repository) GetInviteByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	const q = `
		SELECT id, code, created_by, used_by, revoked, created_at, used_at
		FROM invite_codes
		WHERE code = $1`

	invite, err := scanInvite(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// MarkUsed records the user who consumed the code. The conditional WHERE
// makes consumption single-use under concurrent redemption.
func (r *Repository) MarkUsed(ctx context.Context, code string, usedBy uuid.UUID) (bool, error) {
	const q = `
		UPDATE invite_codes
		SET used_by = $2, used_at = now()
		WHERE code = $1 AND used_by IS NULL AND NOT revoked`

	res, err := r.db.ExecContext(ctx, q, code, usedBy)
	if err != nil {
		return false, fmt.Errorf("failed to mark invite used: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark invite used: %w", err)
	}
	return n > 0, nil
}

// RevokeInvite flags a code as revoked.
func (r *Repository) RevokeInvite(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE invite_codes SET revoked = true WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke invite: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListInvites returns all invite codes, newest first.
func (r *Repository) ListInvites(ctx context.Context, limit int) ([]models.InviteCode, error) {
	const q = `
		SELECT id, code, created_by, used_by, revoked, created_at, used_at
		FROM invite_codes
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	var invites []models.InviteCode
	for rows.Next() {
		var inv models.InviteCode
		if err := rows.Scan(&inv.ID, &inv.Code, &inv.CreatedBy, &inv.UsedBy, &inv.Revoked, &inv.CreatedAt, &inv.UsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func scanInvite(row *sql.Row) (*models.InviteCode, error) {
	var inv models.InviteCode
	if err := row.Scan(&inv.ID, &inv.Code, &inv.CreatedBy, &inv.UsedBy, &inv.Revoked, &inv.CreatedAt, &inv.UsedAt); err != nil {
		return nil, err
	}
	return &inv, nil
}
