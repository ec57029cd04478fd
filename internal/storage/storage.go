package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/pkg/arena"
)

// Session status values.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// SessionRecord is the persisted document for one arena session.
type SessionRecord struct {
	ID         uuid.UUID        `json:"id"`
	Owner      string           `json:"owner,omitempty"`
	Status     string           `json:"status"`
	Winner     string           `json:"winner,omitempty"`
	TotalTurns int              `json:"total_turns"`
	State      *arena.GameState `json:"state"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// TurnRecord is the persisted document for one applied update.
type TurnRecord struct {
	TurnNumber  int                                   `json:"turn_number"`
	PlayerState map[arena.PlayerID]*arena.PlayerState `json:"player_state"`
	Actions     *arena.Delta                          `json:"actions"`
	Timestamp   time.Time                             `json:"timestamp"`
}

// ConversationMessage is one message of a persisted conversation
// fragment.
type ConversationMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Player  string `json:"player,omitempty"`
}

// ModelParams records which model and prompt templates produced a
// conversation fragment.
type ModelParams struct {
	Model   string            `json:"model"`
	Prompts map[string]string `json:"prompts,omitempty"`
}

// ConversationRecord is the persisted document for one conversation
// fragment (Game Master exchange, Player B turn, or narrator summary).
type ConversationRecord struct {
	TurnNumber int                   `json:"turn_number"`
	Messages   []ConversationMessage `json:"messages"`
	Params     ModelParams           `json:"llm_params"`
	Timestamp  time.Time             `json:"timestamp"`
}

// History is the complete persisted record of a session.
type History struct {
	Info          *SessionRecord       `json:"game_info"`
	Turns         []TurnRecord         `json:"turns"`
	Conversations []ConversationRecord `json:"conversations"`
}

// User is a registered player account.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	GamesPlayed  int       `json:"games_played"`
	GamesWon     int       `json:"games_won"`
	CreatedAt    time.Time `json:"created_at"`
}

// HealthChecker defines basic health check capabilities.
type HealthChecker interface {
	// Ping tests the storage connection.
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities.
type Closer interface {
	// Close closes the storage connection.
	Close() error
}

// Storage defines the interface for arena persistence. The game logic
// never reads back from the store mid-session; writes are sequenced
// after the corresponding state mutation.
type Storage interface {
	HealthChecker
	Closer

	// CreateSession persists a new session document.
	CreateSession(ctx context.Context, gs *arena.GameState, owner string) error

	// SaveSession overwrites the session document with current state.
	SaveSession(ctx context.Context, gs *arena.GameState) error

	// GetSession retrieves a session by ID. Returns nil if absent.
	GetSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error)

	// SaveTurn appends a turn record to the session's turn log.
	SaveTurn(ctx context.Context, id uuid.UUID, turn *TurnRecord) error

	// SaveConversation appends a conversation fragment.
	SaveConversation(ctx context.Context, id uuid.UUID, conv *ConversationRecord) error

	// EndSession marks the session completed with its winner and
	// final state.
	EndSession(ctx context.Context, id uuid.UUID, winner string, final *arena.GameState) error

	// GetHistory retrieves the complete session history.
	GetHistory(ctx context.Context, id uuid.UUID) (*History, error)

	// ListRecentSessions returns the most recently created sessions.
	ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error)

	// CreateUser stores a new user. Fails if the username is taken.
	CreateUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by username. Returns nil if absent.
	GetUser(ctx context.Context, username string) (*User, error)

	// UpdateUserStats increments a user's games played/won counters.
	UpdateUserStats(ctx context.Context, username string, won bool) error
}
