package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyarch/tutorflow/core"
)

const redisKeyPrefix = "tutorflow:session:"

// RedisStore persists session records as JSON blobs in Redis, giving
// sessions durability across process restarts and a configurable TTL so
// abandoned sessions age out.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// RedisOptions configures the RedisStore.
type RedisOptions struct {
	// TTL is the expiry applied on every write; zero disables expiry.
	TTL time.Duration
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client redis.UniversalClient, optFns ...func(o *RedisOptions)) *RedisStore {
	opts := RedisOptions{TTL: 24 * time.Hour}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RedisStore{client: client, ttl: opts.TTL}
}

func redisKey(sessionID string) string { return redisKeyPrefix + sessionID }

// Get returns an existing record or lazily creates one.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		rec := NewRecord(sessionID)
		if err := s.Save(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session %s: %w", sessionID, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	if rec.State == nil {
		rec.State = core.NewTutorState()
	}
	if rec.State.History == nil {
		rec.State.History = &core.History{}
	}
	return &rec, nil
}

// Save stores a snapshot of the record.
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	c := rec.Clone()
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	if err := s.client.Set(ctx, redisKey(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session %s: %w", rec.ID, err)
	}
	return nil
}

// SaveCheckpoint updates state and checkpoint in one write.
func (s *RedisStore) SaveCheckpoint(ctx context.Context, sessionID string, cp Checkpoint, state *core.TutorState) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if state != nil {
		rec.State = state
	}
	rec.Checkpoint = cp
	return s.Save(ctx, rec)
}

// Delete removes a session record.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del session %s: %w", sessionID, err)
	}
	return nil
}
