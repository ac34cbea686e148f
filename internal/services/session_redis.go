package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "kiosek:session:"

// RedisStore is a SessionStore shared between instances.
// Keys carry the token lifetime as their TTL.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore creates a RedisStore on an existing client
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func redisSessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return redisSessionPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisStore) Put(ctx context.Context, token string, identity Identity, ttl time.Duration) error {
	value, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisSessionKey(token), value, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, token string) (Identity, bool, error) {
	value, err := s.client.Get(ctx, redisSessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Identity{}, false, nil
	}
	if err != nil {
		return Identity{}, false, err
	}

	var identity Identity
	if err := json.Unmarshal(value, &identity); err != nil {
		return Identity{}, false, fmt.Errorf("corrupt session entry: %w", err)
	}
	return identity, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, redisSessionKey(token)).Err()
}

// Ping checks that redis answers
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
