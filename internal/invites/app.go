package invites

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/models"
)

// Admin is the invite-code administration surface. Anything that manages
// codes (the admin CLI, an ops endpoint) takes this interface rather than
// reaching into storage.
type Admin interface {
	CreateInvite(ctx context.Context, createdBy uuid.UUID) (*models.InviteCode, error)
	RevokeInvite(ctx context.Context, code string) error
	ValidateInvite(ctx context.Context, code string) (bool, error)
	RedeemInvite(ctx context.Context, code string, usedBy uuid.UUID) (bool, error)
	ListInvites(ctx context.Context, limit int) ([]models.InviteCode, error)
}

// InvitesRepository defines what the app layer needs from the repository
type InvitesRepository interface {
	CreateInvite(ctx context.Context, code string, createdBy uuid.UUID) (*models.InviteCode, error)
	GetInviteByCode(ctx context.Context, code string) (*models.InviteCode, error)
	MarkUsed(ctx context.Context, code string, usedBy uuid.UUID) (bool, error)
	RevokeInvite(ctx context.Context, code string) error
	ListInvites(ctx context.Context, limit int) ([]models.InviteCode, error)
}

// App handles invite-code business logic
type App struct {
	repo InvitesRepository
}

var _ Admin = (*App)(nil)

// NewApp creates a new invites App
func NewApp(repo InvitesRepository) *App {
	return &App{repo: repo}
}

// CreateInvite mints a fresh single-use code.
func (a *App) CreateInvite(ctx context.Context, createdBy uuid.UUID) (*models.InviteCode, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	invite, err := a.repo.CreateInvite(ctx, code, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	log.Info().Str("code", invite.Code).Str("created_by", createdBy.String()).Msg("created invite code")
	return invite, nil
}

// RevokeInvite invalidates a code.
func (a *App) RevokeInvite(ctx context.Context, code string) error {
	if err := a.repo.RevokeInvite(ctx, normalizeCode(code)); err != nil {
		return err
	}
	log.Info().Str("code", code).Msg("revoked invite code")
	return nil
}

// ValidateInvite reports whether a code can still be redeemed.
func (a *App) ValidateInvite(ctx context.Context, code string) (bool, error) {
	invite, err := a.repo.GetInviteByCode(ctx, normalizeCode(code))
	if err != nil {
		return false, err
	}
	return !invite.Revoked && invite.UsedBy == nil, nil
}

// RedeemInvite consumes a code for a user. Returns false if the code was
// already used, revoked, or lost the race to another redeemer.
func (a *App) RedeemInvite(ctx context.Context, code string, usedBy uuid.UUID) (bool, error) {
	used, err := a.repo.MarkUsed(ctx, normalizeCode(code), usedBy)
	if err != nil {
		return false, err
	}
	if used {
		log.Info().Str("code", code).Str("used_by", usedBy.String()).Msg("redeemed invite code")
	}
	return used, nil
}

// ListInvites returns recent codes for the admin surface.
func (a *App) ListInvites(ctx context.Context, limit int) ([]models.InviteCode, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return a.repo.ListInvites(ctx, limit)
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func generateCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
