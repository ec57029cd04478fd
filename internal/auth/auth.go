// Package auth provides user registration and login backed by storage.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/maduarte95/arena-test/internal/storage"
)

const minPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

type Service struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewService(s storage.Storage, logger *slog.Logger) *Service {
	return &Service{
		storage: s,
		logger:  logger,
	}
}

// Register creates a new user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	existing, err := s.storage.GetUser(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.storage.CreateUser(ctx, &storage.User{
		Username:     username,
		PasswordHash: string(hash),
	}); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", "username", username)
	return nil
}

// Login verifies credentials and returns the user on success.
func (s *Service) Login(ctx context.Context, username, password string) (*storage.User, error) {
	user, err := s.storage.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RecordResult updates a user's win/loss stats after a completed game.
func (s *Service) RecordResult(ctx context.Context, username string, won bool) error {
	if username == "" {
		return nil
	}
	if err := s.storage.UpdateUserStats(ctx, username, won); err != nil {
		return fmt.Errorf("failed to update stats: %w", err)
	}
	return nil
}
