package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maduarte95/arena-test/pkg/arena"
)

const recentSessionsKey = "sessions:recent"

// RedisStorage implements the Storage interface using Redis. Session
// documents are JSON values; turn and conversation logs are lists so
// appends stay cheap and ordered.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance from a redis URL.
func NewRedisStorage(redisURL string, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStorage{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func sessionKey(id uuid.UUID) string       { return "session:" + id.String() }
func turnsKey(id uuid.UUID) string         { return "session:" + id.String() + ":turns" }
func conversationsKey(id uuid.UUID) string { return "session:" + id.String() + ":conversations" }
func userKey(username string) string       { return "user:" + username }

func (r *RedisStorage) saveRecord(ctx context.Context, rec *SessionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// CreateSession persists a new session document and indexes it.
func (r *RedisStorage) CreateSession(ctx context.Context, gs *arena.GameState, owner string) error {
	rec := &SessionRecord{
		ID:        gs.ID,
		Owner:     owner,
		Status:    StatusInProgress,
		State:     gs,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.saveRecord(ctx, rec); err != nil {
		return err
	}
	if err := r.client.LPush(ctx, recentSessionsKey, gs.ID.String()).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// SaveSession overwrites the session document with current state,
// preserving the record's metadata.
func (r *RedisStorage) SaveSession(ctx context.Context, gs *arena.GameState) error {
	rec, err := r.GetSession(ctx, gs.ID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("session not found: %s", gs.ID)
	}

	rec.State = gs
	rec.TotalTurns = gs.TurnNumber
	return r.saveRecord(ctx, rec)
}

func (r *RedisStorage) GetSession(ctx context.Context, id uuid.UUID) (*SessionRecord, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &rec, nil
}

func (r *RedisStorage) SaveTurn(ctx context.Context, id uuid.UUID, turn *TurnRecord) error {
	turn.Timestamp = time.Now().UTC()
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	if err := r.client.RPush(ctx, turnsKey(id), data).Err(); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

func (r *RedisStorage) SaveConversation(ctx context.Context, id uuid.UUID, conv *ConversationRecord) error {
	conv.Timestamp = time.Now().UTC()
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.client.RPush(ctx, conversationsKey(id), data).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// EndSession marks the session completed. The caller is expected to
// invoke this exactly once per session.
func (r *RedisStorage) EndSession(ctx context.Context, id uuid.UUID, winner string, final *arena.GameState) error {
	rec, err := r.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("session not found: %s", id)
	}

	rec.Status = StatusCompleted
	rec.Winner = winner
	rec.State = final
	rec.TotalTurns = final.TurnNumber
	return r.saveRecord(ctx, rec)
}

func (r *RedisStorage) GetHistory(ctx context.Context, id uuid.UUID) (*History, error) {
	rec, err := r.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	turnData, err := r.client.LRange(ctx, turnsKey(id), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	turns := make([]TurnRecord, 0, len(turnData))
	for _, data := range turnData {
		var turn TurnRecord
		if err := json.Unmarshal([]byte(data), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	convData, err := r.client.LRange(ctx, conversationsKey(id), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	conversations := make([]ConversationRecord, 0, len(convData))
	for _, data := range convData {
		var conv ConversationRecord
		if err := json.Unmarshal([]byte(data), &conv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	return &History{
		Info:          rec,
		Turns:         turns,
		Conversations: conversations,
	}, nil
}

func (r *RedisStorage) ListRecentSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	ids, err := r.client.LRange(ctx, recentSessionsKey, 0, int64(limit-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]SessionRecord, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			r.logger.Warn("Skipping invalid session index entry", "id", idStr)
			continue
		}
		rec, err := r.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			sessions = append(sessions, *rec)
		}
	}
	return sessions, nil
}

// CreateUser stores a new user, failing if the username is taken.
func (r *RedisStorage) CreateUser(ctx context.Context, user *User) error {
	user.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	ok, err := r.client.SetNX(ctx, userKey(user.Username), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if !ok {
		return fmt.Errorf("username %q already exists", user.Username)
	}
	return nil
}

func (r *RedisStorage) GetUser(ctx context.Context, username string) (*User, error) {
	data, err := r.client.Get(ctx, userKey(username)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	var user User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (r *RedisStorage) UpdateUserStats(ctx context.Context, username string, won bool) error {
	user, err := r.GetUser(ctx, username)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user not found: %s", username)
	}

	user.GamesPlayed++
	if won {
		user.GamesWon++
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := r.client.Set(ctx, userKey(username), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
