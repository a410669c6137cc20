package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "xfeed:session:"

var errSessionIDTaken = errors.New("session: id already in use")

// RedisStore keeps each session as a JSON value. The key TTL is the time
// left until ExpiresAt, so Redis evicts idle sessions on its own.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func sessionKey(id string) string {
	return redisKeyPrefix + id
}

// encode returns the payload and TTL for s. A zero TTL means s has already
// expired and must not be written.
func encode(s Session, now time.Time) ([]byte, time.Duration, error) {
	if s.SessionID == "" {
		return nil, 0, errors.New("session: missing session_id")
	}
	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil, 0, nil
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, 0, fmt.Errorf("session: encode %s: %w", s.SessionID, err)
	}
	return payload, ttl, nil
}

// Create refuses to overwrite a live key with the same id.
func (r *RedisStore) Create(ctx context.Context, s Session) error {
	payload, ttl, err := encode(s, time.Now())
	if err != nil {
		return err
	}
	if ttl == 0 {
		return errors.New("session: created already expired")
	}

	ok, err := r.rdb.SetNX(ctx, sessionKey(s.SessionID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("session: redis setnx: %w", err)
	}
	if !ok {
		return errSessionIDTaken
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", sessionID, err)
	}
	return &s, nil
}

// Update writes s with a TTL recomputed from its ExpiresAt; last write wins.
// An expired s removes the key.
func (r *RedisStore) Update(ctx context.Context, s Session) error {
	payload, ttl, err := encode(s, time.Now())
	if err != nil {
		return err
	}
	if ttl == 0 {
		return r.Delete(ctx, s.SessionID)
	}
	if err := r.rdb.Set(ctx, sessionKey(s.SessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
