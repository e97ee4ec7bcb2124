// Package redisstore keeps each session's append-only score history
// and latest session-memory snapshot in Redis. Entries are TTL-bound:
// interview sessions are short-lived and nothing here is an archive.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/visa-interview-evaluator/internal/domain"
)

// Store implements domain.ScoreStore on Redis.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New constructs a Store. ttl bounds how long a session's history lives
// after its last write.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func scoresKey(sessionID string) string { return "session:" + sessionID + ":scores" }
func memoryKey(sessionID string) string { return "session:" + sessionID + ":memory" }

// AppendScore pushes one record onto the session's history. Order of
// appends is the order ListScores returns.
func (s *Store) AppendScore(ctx context.Context, sessionID string, rec domain.ScoreRecord) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal score record: %w", err)
	}
	key := scoresKey(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, b)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	return nil
}

// ListScores returns the session's full history in append order.
func (s *Store) ListScores(ctx context.Context, sessionID string) ([]domain.ScoreRecord, error) {
	raw, err := s.rdb.LRange(ctx, scoresKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	out := make([]domain.ScoreRecord, 0, len(raw))
	for _, item := range raw {
		var rec domain.ScoreRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode score record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// SaveMemory stores the latest session-memory snapshot.
func (s *Store) SaveMemory(ctx context.Context, sessionID string, mem domain.SessionMemory) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id required", domain.ErrInvalidArgument)
	}
	b, err := json.Marshal(mem)
	if err != nil {
		return fmt.Errorf("marshal session memory: %w", err)
	}
	if err := s.rdb.Set(ctx, memoryKey(sessionID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

// GetMemory returns the stored snapshot, or domain.ErrNotFound when the
// session has none.
func (s *Store) GetMemory(ctx context.Context, sessionID string) (domain.SessionMemory, error) {
	raw, err := s.rdb.Get(ctx, memoryKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.SessionMemory{}, fmt.Errorf("%w: session memory %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return domain.SessionMemory{}, fmt.Errorf("get memory: %w", err)
	}
	var mem domain.SessionMemory
	if err := json.Unmarshal([]byte(raw), &mem); err != nil {
		return domain.SessionMemory{}, fmt.Errorf("decode session memory: %w", err)
	}
	return mem, nil
}

// Ping reports Redis reachability for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
