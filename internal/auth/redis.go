// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	tokenKeyPrefix = "workpulse:token:"
	userKeyPrefix  = "workpulse:user:"
)

// RedisSessions is a Redis-backed token store. Each token maps to its user,
// and a per-user set lets RevokeUser drop everything at once.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisSessions connects to Redis and verifies the connection.
func NewRedisSessions(cfg Config, logger zerolog.Logger) (*RedisSessions, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.RedisAddr).
		Int("db", cfg.RedisDB).
		Dur("ttl", cfg.TTL).
		Msg("connected to Redis session store")

	return &RedisSessions{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// Issue mints a token for the user.
func (s *RedisSessions) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.New().String()
	userKey := userKeyPrefix + strconv.FormatInt(userID, 10)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, tokenKeyPrefix+token, userID, s.ttl)
	pipe.SAdd(ctx, userKey, token)
	pipe.Expire(ctx, userKey, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Resolve maps a token to its user and slides the expiry forward.
func (s *RedisSessions) Resolve(ctx context.Context, token string) (int64, error) {
	val, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return 0, ErrUnauthorized
	}
	if err != nil {
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("resolve token: corrupt value %q: %w", val, err)
	}

	pipe := s.client.Pipeline()
	pipe.Expire(ctx, tokenKeyPrefix+token, s.ttl)
	pipe.Expire(ctx, userKeyPrefix+val, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("token expiry refresh failed")
	}
	return userID, nil
}

// Revoke invalidates one token.
func (s *RedisSessions) Revoke(ctx context.Context, token string) error {
	val, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, tokenKeyPrefix+token)
	pipe.SRem(ctx, userKeyPrefix+val, token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// RevokeUser invalidates every token the user holds.
func (s *RedisSessions) RevokeUser(ctx context.Context, userID int64) error {
	userKey := userKeyPrefix + strconv.FormatInt(userID, 10)
	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}

	pipe := s.client.TxPipeline()
	for _, t := range tokens {
		pipe.Del(ctx, tokenKeyPrefix+t)
	}
	pipe.Del(ctx, userKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	return nil
}

// Online reports whether the user holds at least one live token. Tokens in
// the set may have individually expired while the set survives, so each
// member is checked.
func (s *RedisSessions) Online(ctx context.Context, userID int64) (bool, error) {
	userKey := userKeyPrefix + strconv.FormatInt(userID, 10)
	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return false, fmt.Errorf("online check: %w", err)
	}
	for _, t := range tokens {
		n, err := s.client.Exists(ctx, tokenKeyPrefix+t).Result()
		if err != nil {
			return false, fmt.Errorf("online check: %w", err)
		}
		if n > 0 {
			return true, nil
		}
		// drop the stale member so the set does not grow unbounded
		_ = s.client.SRem(ctx, userKey, t).Err()
	}
	return false, nil
}

// Close closes the Redis connection.
func (s *RedisSessions) Close() error {
	return s.client.Close()
}
