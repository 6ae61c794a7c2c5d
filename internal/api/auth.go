// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/log"
)

type principalKey struct{}

// principal carries the authenticated user and their bearer token through
// the request context.
type principal struct {
	user  breaks.User
	token string
}

func contextWithPrincipal(ctx context.Context, p principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFrom(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalKey{}).(principal)
	return p, ok
}

// bearerToken extracts the token from the Authorization header. The query
// parameter fallback exists for EventSource clients, which cannot set
// headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// requireAuth resolves the bearer token, loads the user and stores both in
// the request context. Requests without a valid token get 401.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeUnauthorized(w)
			return
		}

		userID, err := s.sessions.Resolve(r.Context(), token)
		if err != nil {
			writeUnauthorized(w)
			return
		}

		user, err := s.store.UserByID(r.Context(), userID)
		if err != nil {
			// user deleted since the token was issued
			_ = s.sessions.Revoke(r.Context(), token)
			writeUnauthorized(w)
			return
		}

		ctx := contextWithPrincipal(r.Context(), principal{user: user, token: token})
		ctx = log.ContextWithUserID(ctx, strconv.FormatInt(user.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireManager gates manager-scope routes.
func (s *Server) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principalFrom(r.Context())
		if !ok {
			writeUnauthorized(w)
			return
		}
		if !p.user.Role.Managerial() {
			writeForbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
