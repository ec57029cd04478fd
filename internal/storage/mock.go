package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maduarte95/arena-test/pkg/arena"
)

// Mock is an in-memory Storage implementation for testing. Individual
// methods can be overridden with injectable functions; calls are
// recorded for assertions.
type Mock struct {
	mu sync.Mutex

	sessions      map[uuid.UUID]*SessionRecord
	turns         map[uuid.UUID][]TurnRecord
	conversations map[uuid.UUID][]ConversationRecord
	users         map[string]*User
	recent        []uuid.UUID

	CreateSessionFunc func(ctx context.Context, gs *arena.GameState, owner string) error
	SaveSessionFunc   func(ctx context.Context, gs *arena.GameState) error
	GetSessionFunc    func(ctx context.Context, id uuid.UUID) (*SessionRecord, error)
	EndSessionFunc    func(ctx context.Context, id uuid.UUID, winner string, final *arena.GameState) error

	SaveSessionCalls int
	SaveTurnCalls    int
	EndSessionCalls  int
}

var _ Storage = (*Mock)(nil)

func NewMock() *Mock {
	return &Mock{
		sessions:      make(map[uuid.UUID]*SessionRecord),
		turns:         make(map[uuid.UUID][]TurnRecord),
		conversations: make(map[uuid.UUID][]ConversationRecord),
		users:         make(map[string]*User),
	}
}

func (m *Mock) Ping(ctx context.Context) error { return nil }
func (m *Mock) Close() error                   { return nil }

func (m *Mock) CreateSession(ctx context.Context, gs *arena.GameState, owner string) error {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, gs, owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[gs.ID] = &SessionRecord{
		ID:        gs.ID,
		Owner:     owner,
		Status:    StatusInProgress,
		State:     gs,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.recent = append([]uuid.UUID{gs.ID}, m.recent...)
	return nil
}

func (m *Mock) SaveSession(ctx context.Context, gs *arena.GameState) error {
	m.mu.Lock()
	m.SaveSessionCalls++
	m.mu.Unlock()
	if m.SaveSessionFunc != nil {
		return m.SaveSessionFunc(ctx, gs)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[gs.ID]
	if !ok {
		return fmt.Errorf("session not found: %s", gs.ID)
	}
	rec.State = gs
	rec.TotalTurns = gs.TurnNumber
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Mock) GetSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (m *Mock) SaveTurn(ctx context.Context, id uuid.UUID, turn *TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveTurnCalls++
	turn.Timestamp = time.Now().UTC()
	m.turns[id] = append(m.turns[id], *turn)
	return nil
}

func (m *Mock) SaveConversation(ctx context.Context, id uuid.UUID, conv *ConversationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.Timestamp = time.Now().UTC()
	m.conversations[id] = append(m.conversations[id], *conv)
	return nil
}

func (m *Mock) EndSession(ctx context.Context, id uuid.UUID, winner string, final *arena.GameState) error {
	m.mu.Lock()
	m.EndSessionCalls++
	m.mu.Unlock()
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(ctx, id, winner, final)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	rec.Status = StatusCompleted
	rec.Winner = winner
	rec.State = final
	rec.TotalTurns = final.TurnNumber
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Mock) GetHistory(ctx context.Context, id uuid.UUID) (*History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &History{
		Info:          rec,
		Turns:         m.turns[id],
		Conversations: m.conversations[id],
	}, nil
}

func (m *Mock) ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.recent) {
		limit = len(m.recent)
	}
	sessions := make([]SessionRecord, 0, limit)
	for _, id := range m.recent[:limit] {
		if rec, ok := m.sessions[id]; ok {
			sessions = append(sessions, *rec)
		}
	}
	return sessions, nil
}

func (m *Mock) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return fmt.Errorf("username %q already exists", user.Username)
	}
	user.CreatedAt = time.Now().UTC()
	m.users[user.Username] = user
	return nil
}

func (m *Mock) GetUser(ctx context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return user, nil
}

func (m *Mock) UpdateUserStats(ctx context.Context, username string, won bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return fmt.Errorf("user not found: %s", username)
	}
	user.GamesPlayed++
	if won {
		user.GamesWon++
	}
	return nil
}
