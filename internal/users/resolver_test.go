package users

import (
	"context"
	"errors"
	"testing"

	"github.com/finquest/finquest/internal/identity"
)

func TestResolveKnownToken(t *testing.T) {
	repo := newFakeUsersRepo()
	app := NewApp(repo, nil)

	user, err := app.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	repo.tokens["tok-1"] = user.ID

	resolver := NewTokenResolver(repo)
	id, err := resolver.Resolve(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.UserID != user.ID || id.Email != user.Email {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestResolveEmptyToken(t *testing.T) {
	resolver := NewTokenResolver(newFakeUsersRepo())

	id, err := resolver.Resolve(context.Background(), "")
	if !errors.Is(err, identity.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if !id.Zero() {
		t.Fatalf("expected zero identity, got %+v", id)
	}
}

func TestResolveUnknownToken(t *testing.T) {
	resolver := NewTokenResolver(newFakeUsersRepo())

	id, err := resolver.Resolve(context.Background(), "nope")
	if !errors.Is(err, identity.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if !id.Zero() {
		t.Fatalf("expected zero identity, got %+v", id)
	}
}
