// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessions is the in-process fallback used when no Redis address is
// configured. Expiry is checked lazily on access.
type MemorySessions struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]memoryToken
}

type memoryToken struct {
	userID    int64
	expiresAt time.Time
}

// NewMemorySessions creates an in-memory token store.
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]memoryToken),
	}
}

// Issue mints a token for the user.
func (s *MemorySessions) Issue(_ context.Context, userID int64) (string, error) {
	token := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{userID: userID, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

// Resolve maps a token to its user and slides the expiry forward.
func (s *MemorySessions) Resolve(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok || s.now().After(t.expiresAt) {
		delete(s.tokens, token)
		return 0, ErrUnauthorized
	}
	t.expiresAt = s.now().Add(s.ttl)
	s.tokens[token] = t
	return t.userID, nil
}

// Revoke invalidates one token.
func (s *MemorySessions) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// RevokeUser invalidates every token the user holds.
func (s *MemorySessions) RevokeUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, t := range s.tokens {
		if t.userID == userID {
			delete(s.tokens, token)
		}
	}
	return nil
}

// Online reports whether the user holds at least one live token.
func (s *MemorySessions) Online(_ context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for token, t := range s.tokens {
		if now.After(t.expiresAt) {
			delete(s.tokens, token)
			continue
		}
		if t.userID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Close is a no-op for the in-memory store.
func (s *MemorySessions) Close() error { return nil }
