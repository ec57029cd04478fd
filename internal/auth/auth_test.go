package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/maduarte95/arena-test/internal/storage"
)

func testService() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(storage.NewMock(), logger)
}

func TestRegisterAndLogin(t *testing.T) {
	s := testService()
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "correct horse battery"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	user, err := s.Login(ctx, "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("expected username alice, got %q", user.Username)
	}
	if user.PasswordHash == "correct horse battery" {
		t.Error("password stored in plaintext")
	}
}

func TestRegisterValidation(t *testing.T) {
	s := testService()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "longenoughpassword"},
		{"short password", "alice", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Register(ctx, tt.username, tt.password); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s := testService()
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "longenoughpassword"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := s.Register(ctx, "alice", "anotherlongpassword")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := testService()
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "longenoughpassword"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := s.Login(ctx, "alice", "wrongpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRecordResult(t *testing.T) {
	s := testService()
	ctx := context.Background()

	if err := s.Register(ctx, "alice", "longenoughpassword"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := s.RecordResult(ctx, "alice", true); err != nil {
		t.Fatalf("RecordResult failed: %v", err)
	}
	if err := s.RecordResult(ctx, "", true); err != nil {
		t.Errorf("expected anonymous result to be a no-op, got %v", err)
	}

	user, err := s.Login(ctx, "alice", "longenoughpassword")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.GamesWon != 1 {
		t.Errorf("expected 1 game won, got %d", user.GamesWon)
	}
}
