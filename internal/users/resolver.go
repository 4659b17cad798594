package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/finquest/finquest/internal/identity"
)

// TokenResolver resolves bearer tokens against the users store.
type TokenResolver struct {
	repo UsersRepository
}

// NewTokenResolver creates a resolver backed by the users repository.
func NewTokenResolver(repo UsersRepository) *TokenResolver {
	return &TokenResolver{repo: repo}
}

// Resolve looks up the token and returns the owning user's identity.
func (tr *TokenResolver) Resolve(ctx context.Context, token string) (identity.Identity, error) {
	if token == "" {
		return identity.Identity{}, identity.ErrUnauthenticated
	}

	user, err := tr.repo.GetUserByAPIToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return identity.Identity{}, identity.ErrUnauthenticated
		}
		return identity.Identity{}, fmt.Errorf("failed to resolve token: %w", err)
	}

	return identity.Identity{UserID: user.ID, Email: user.Email}, nil
}
