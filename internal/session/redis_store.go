package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps session state in Redis. The user id lives under
// sess:<token> and flashes under sess:<token>:flash; both expire with the
// session TTL, refreshed on every touch.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) userKey(token string) string  { return "sess:" + token }
func (s *RedisStore) flashKey(token string) string { return "sess:" + token + ":flash" }

func (s *RedisStore) SetUser(ctx context.Context, token string, userID uint) error {
	return s.client.Set(ctx, s.userKey(token), uint64(userID), s.ttl).Err()
}

func (s *RedisStore) UserID(ctx context.Context, token string) (uint, bool, error) {
	val, err := s.client.Get(ctx, s.userKey(token)).Uint64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	// Sliding expiry: an active session never times out mid-use.
	s.client.Expire(ctx, s.userKey(token), s.ttl)
	return uint(val), true, nil
}

func (s *RedisStore) ClearUser(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.userKey(token)).Err()
}

func (s *RedisStore) PushFlash(ctx context.Context, token string, flash Flash) error {
	payload, err := json.Marshal(flash)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.flashKey(token), payload)
	pipe.Expire(ctx, s.flashKey(token), s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) PopFlashes(ctx context.Context, token string) ([]Flash, error) {
	pipe := s.client.TxPipeline()
	items := pipe.LRange(ctx, s.flashKey(token), 0, -1)
	pipe.Del(ctx, s.flashKey(token))
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	raw, err := items.Result()
	if err != nil {
		return nil, err
	}
	flashes := make([]Flash, 0, len(raw))
	for _, item := range raw {
		var f Flash
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.userKey(token), s.flashKey(token)).Err()
}
