// SPDX-License-Identifier: MIT

package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/log"
)

// API is the server surface the reconciler consumes.
type API interface {
	Me(ctx context.Context) (breaks.User, error)
	ActiveBreak(ctx context.Context) (breaks.Session, error)
	BreakTypes(ctx context.Context) ([]breaks.BreakType, error)
	StartBreak(ctx context.Context, breakTypeID int64) (breaks.Session, error)
	EndBreak(ctx context.Context) (breaks.Session, error)
}

// Snapshot is one consistent view of the caller's server-side state.
type Snapshot struct {
	User      breaks.User
	Session   *breaks.Session // ongoing session, nil when none
	Types     []breaks.BreakType
	FetchedAt time.Time
}

// Reconciler keeps a local snapshot aligned with the server. Refreshes
// replace the snapshot wholesale (the server wins every disagreement) and
// concurrent refresh calls collapse into a single request. Mutations are
// applied optimistically and rolled back exactly when the server rejects
// them.
type Reconciler struct {
	api    API
	clk    clock.Clock
	logger zerolog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	snap  Snapshot
	ready bool
}

// NewReconciler creates a reconciler over the given API.
func NewReconciler(api API, clk clock.Clock) *Reconciler {
	return &Reconciler{
		api:    api,
		clk:    clk,
		logger: log.WithComponent("reconciler"),
	}
}

// Snapshot returns the current cached view. ok is false before the first
// successful refresh.
func (r *Reconciler) Snapshot() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap, r.ready
}

// Refresh fetches a fresh snapshot and replaces the cache. Concurrent calls
// share one flight. On a network error the previous snapshot survives
// untouched; on a server response the server's view wins unconditionally.
func (r *Reconciler) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := r.group.Do("refresh", func() (any, error) {
		return r.fetch(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (r *Reconciler) fetch(ctx context.Context) (Snapshot, error) {
	user, err := r.api.Me(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	types, err := r.api.BreakTypes(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		User:      user,
		Types:     types,
		FetchedAt: r.clk.Now(),
	}

	session, err := r.api.ActiveBreak(ctx)
	switch {
	case err == nil:
		snap.Session = &session
	case errors.Is(err, breaks.ErrNotFound):
		// no ongoing break
	default:
		return Snapshot{}, err
	}

	r.mu.Lock()
	r.snap = snap
	r.ready = true
	r.mu.Unlock()

	r.logger.Debug().
		Bool("on_break", snap.Session != nil).
		Int("break_types", len(snap.Types)).
		Msg("snapshot refreshed")
	return snap, nil
}

// StartBreak asks the server to open a session and installs the result in
// the cache. A conflict means the cache was stale; the reconciler refreshes
// before reporting the error so the caller renders the server's truth.
func (r *Reconciler) StartBreak(ctx context.Context, breakTypeID int64) (breaks.Session, error) {
	session, err := r.api.StartBreak(ctx, breakTypeID)
	if err != nil {
		if errors.Is(err, breaks.ErrConflict) || errors.Is(err, breaks.ErrInvalidState) {
			if _, rerr := r.Refresh(ctx); rerr != nil {
				r.logger.Warn().Err(rerr).Msg("refresh after rejected start failed")
			}
		}
		return breaks.Session{}, err
	}

	r.mu.Lock()
	r.snap.Session = &session
	r.mu.Unlock()
	return session, nil
}

// EndBreak optimistically clears the cached session, then confirms with the
// server. A network failure restores the exact prior session; a rejection
// (the server had no ongoing session) triggers a refresh because the cache
// was provably stale.
func (r *Reconciler) EndBreak(ctx context.Context) (breaks.Session, error) {
	r.mu.Lock()
	prior := r.snap.Session
	r.snap.Session = nil
	r.mu.Unlock()

	session, err := r.api.EndBreak(ctx)
	if err != nil {
		if IsNetworkError(err) {
			r.mu.Lock()
			r.snap.Session = prior
			r.mu.Unlock()
			return breaks.Session{}, err
		}
		if errors.Is(err, breaks.ErrInvalidState) {
			if _, rerr := r.Refresh(ctx); rerr != nil {
				r.logger.Warn().Err(rerr).Msg("refresh after rejected end failed")
			}
		}
		return breaks.Session{}, err
	}
	return session, nil
}
