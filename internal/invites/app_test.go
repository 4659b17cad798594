package invites

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/finquest/finquest/internal/models"
)

type fakeInvitesRepo struct {
	invites map[string]*models.InviteCode
}

func newFakeInvitesRepo() *fakeInvitesRepo {
	return &fakeInvitesRepo{invites: make(map[string]*models.InviteCode)}
}

func (f *fakeInvitesRepo) CreateInvite(ctx context.Context, code string, createdBy uuid.UUID) (*models.InviteCode, error) {
	invite := &models.InviteCode{
		ID:        uuid.New(),
		Code:      code,
		CreatedBy: createdBy,
	}
	f.invites[code] = invite
	return invite, nil
}

func (f *fakeInvitesRepo) GetInviteByCode(ctx context.Context, code string) (*models.InviteCode, error) {
	invite, ok := f.invites[code]
	if !ok {
		return nil, ErrNotFound
	}
	return invite, nil
}

func (f *fakeInvitesRepo) MarkUsed(ctx context.Context, code string, usedBy uuid.UUID) (bool, error) {
	invite, ok := f.invites[code]
	if !ok {
		return false, ErrNotFound
	}
	if invite.Revoked || invite.UsedBy != nil {
		return false, nil
	}
	invite.UsedBy = &usedBy
	return true, nil
}

func (f *fakeInvitesRepo) RevokeInvite(ctx context.Context, code string) error {
	invite, ok := f.invites[code]
	if !ok {
		return ErrNotFound
	}
	invite.Revoked = true
	return nil
}

func (f *fakeInvitesRepo) ListInvites(ctx context.Context, limit int) ([]models.InviteCode, error) {
	var out []models.InviteCode
	for _, invite := range f.invites {
		if len(out) < limit {
			out = append(out, *invite)
		}
	}
	return out, nil
}

func TestCreateInviteMintsRedeemableCode(t *testing.T) {
	repo := newFakeInvitesRepo()
	app := NewApp(repo)

	invite, err := app.CreateInvite(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if len(invite.Code) != 12 {
		t.Fatalf("expected 12-char hex code, got %q", invite.Code)
	}

	ok, err := app.ValidateInvite(context.Background(), invite.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok {
		t.Fatal("expected fresh code to validate")
	}
}

func TestValidateInviteNormalizesCode(t *testing.T) {
	repo := newFakeInvitesRepo()
	app := NewApp(repo)

	invite, err := app.CreateInvite(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	ok, err := app.ValidateInvite(context.Background(), "  "+invite.Code+"  ")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !ok {
		t.Fatal("expected whitespace-padded code to validate")
	}
}

func TestRedeemInviteIsSingleUse(t *testing.T) {
	repo := newFakeInvitesRepo()
	app := NewApp(repo)

	invite, err := app.CreateInvite(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}

	first, err := app.RedeemInvite(context.Background(), invite.Code, uuid.New())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !first {
		t.Fatal("expected first redemption to succeed")
	}

	second, err := app.RedeemInvite(context.Background(), invite.Code, uuid.New())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if second {
		t.Fatal("expected second redemption to be refused")
	}

	ok, err := app.ValidateInvite(context.Background(), invite.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ok {
		t.Fatal("expected used code to stop validating")
	}
}

func TestRevokedInviteCannotBeRedeemed(t *testing.T) {
	repo := newFakeInvitesRepo()
	app := NewApp(repo)

	invite, err := app.CreateInvite(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	if err := app.RevokeInvite(context.Background(), invite.Code); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	used, err := app.RedeemInvite(context.Background(), invite.Code, uuid.New())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if used {
		t.Fatal("expected revoked code to be refused")
	}
}

func TestValidateUnknownCode(t *testing.T) {
	app := NewApp(newFakeInvitesRepo())

	if _, err := app.ValidateInvite(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown code")
	}
}
