package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/models"
)

// UsersRepository defines what the app layer needs from the repository
type UsersRepository interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByAPIToken(ctx context.Context, token string) (*models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// InviteRedeemer consumes single-use signup codes.
type InviteRedeemer interface {
	ValidateInvite(ctx context.Context, code string) (bool, error)
	RedeemInvite(ctx context.Context, code string, usedBy uuid.UUID) (bool, error)
}

// ErrInviteRequired indicates signup was attempted without a usable invite
// code.
var ErrInviteRequired = errors.New("valid invite code required")

// App handles users business logic
type App struct {
	repo    UsersRepository
	invites InviteRedeemer
}

// NewApp creates a new users App. A nil redeemer leaves signup open.
func NewApp(repo UsersRepository, invites InviteRedeemer) *App {
	return &App{
		repo:    repo,
		invites: invites,
	}
}

// CreateUser creates a new user with validation
func (a *App) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := a.validateCreateUserRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Check if user with same username already exists
	existingUser, err := a.repo.GetUserByUsername(ctx, req.Username)
	if err == nil && existingUser != nil {
		return nil, fmt.Errorf("user with username %s already exists", req.Username)
	}

	// Check if user with same email already exists
	existingUser, err = a.repo.GetUserByEmail(ctx, req.Email)
	if err == nil && existingUser != nil {
		return nil, fmt.Errorf("user with email %s already exists", req.Email)
	}

	if a.invites != nil {
		ok, err := a.invites.ValidateInvite(ctx, req.InviteCode)
		if err != nil || !ok {
			return nil, ErrInviteRequired
		}
	}

	user, err := a.repo.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if a.invites != nil {
		redeemed, err := a.invites.RedeemInvite(ctx, req.InviteCode, user.ID)
		if err != nil || !redeemed {
			// Lost the redemption race, roll the signup back.
			if delErr := a.repo.DeleteUser(ctx, user.ID); delErr != nil {
				log.Error().Err(delErr).Str("user_id", user.ID.String()).Msg("failed to roll back signup")
			}
			return nil, ErrInviteRequired
		}
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("created user")
	return user, nil
}

// GetUser retrieves a user by ID
func (a *App) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (a *App) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (a *App) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// UpdateUser updates an existing user with validation
func (a *App) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*models.User, error) {
	if err := a.validateUpdateUserRequest(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Verify user exists
	existingUser, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	// Check if username is being changed and if new username already exists
	if req.Username != existingUser.Username {
		conflictUser, err := a.repo.GetUserByUsername(ctx, req.Username)
		if err == nil && conflictUser != nil {
			return nil, fmt.Errorf("user with username %s already exists", req.Username)
		}
	}

	// Check if email is being changed and if new email already exists
	if req.Email != existingUser.Email {
		conflictUser, err := a.repo.GetUserByEmail(ctx, req.Email)
		if err == nil && conflictUser != nil {
			return nil, fmt.Errorf("user with email %s already exists", req.Email)
		}
	}

	user, err := a.repo.UpdateUser(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("updated user")
	return user, nil
}

// DeleteUser deletes a user by ID
func (a *App) DeleteUser(ctx context.Context, id uuid.UUID) error {
	// Verify user exists
	user, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	if err := a.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Msg("deleted user")
	return nil
}

// validateCreateUserRequest validates create user request
func (a *App) validateCreateUserRequest(req CreateUserRequest) error {
	if req.Username == "" {
		return fmt.Errorf("username is required")
	}
	if req.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".") {
		return fmt.Errorf("email format is invalid")
	}
	return nil
}

// validateUpdateUserRequest validates update user request
func (a *App) validateUpdateUserRequest(req UpdateUserRequest) error {
	if req.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if req.Email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".") {
		return fmt.Errorf("email format is invalid")
	}
	return nil
}
