package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/papertrade/brokerage/internal/database"
	"github.com/papertrade/brokerage/internal/models"
)

// Credential errors surfaced at the request boundary.
var (
	ErrInvalidCredentials = errors.New("invalid username and/or password")
	ErrSamePassword       = errors.New("new password matches the current one")
)

// CredentialStore is the persistence surface the auth service needs.
type CredentialStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserHash(ctx context.Context, username, hash string) error
}

// Service hashes and verifies passwords and manages user accounts.
type Service struct {
	store CredentialStore
	cost  int
}

// NewService creates an auth service. cost is the bcrypt work factor;
// pass 0 for the library default.
func NewService(store CredentialStore, cost int) *Service {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{store: store, cost: cost}
}

// Register creates a new user with a hashed password. A taken username
// surfaces database.ErrDuplicateUsername.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Hash:     string(hash),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies a username/password pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword replaces the stored hash for one user. Setting the
// password to its current value is rejected.
func (s *Service) ChangePassword(ctx context.Context, username, newPassword string) error {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(newPassword)) == nil {
		return ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.UpdateUserHash(ctx, username, string(hash))
}
