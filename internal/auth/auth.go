// SPDX-License-Identifier: MIT

// Package auth issues and resolves bearer tokens and verifies passwords.
// Tokens live in Redis when one is configured and in process memory
// otherwise; both stores implement the same interface so the API layer
// never knows which is behind it.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnauthorized is returned when a token is missing, expired or revoked.
var ErrUnauthorized = errors.New("unauthorized")

// Sessions stores bearer tokens with a sliding expiry.
type Sessions interface {
	// Issue mints a token for the user.
	Issue(ctx context.Context, userID int64) (string, error)
	// Resolve maps a token back to its user and refreshes the expiry.
	Resolve(ctx context.Context, token string) (int64, error)
	// Revoke invalidates a single token.
	Revoke(ctx context.Context, token string) error
	// RevokeUser invalidates every token the user holds. Used by the
	// admin force-logout action.
	RevokeUser(ctx context.Context, userID int64) error
	// Online reports whether the user holds at least one live token.
	Online(ctx context.Context, userID int64) (bool, error)
	// Close releases store resources.
	Close() error
}

// Config holds token store settings.
type Config struct {
	// TTL is the sliding token lifetime.
	TTL time.Duration
	// RedisAddr selects the Redis store when non-empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewSessions selects the Redis store when an address is configured and the
// in-memory store otherwise.
func NewSessions(cfg Config, logger zerolog.Logger) (Sessions, error) {
	if cfg.RedisAddr == "" {
		logger.Info().Dur("ttl", cfg.TTL).Msg("using in-memory session store")
		return NewMemorySessions(cfg.TTL), nil
	}
	return NewRedisSessions(cfg, logger)
}
