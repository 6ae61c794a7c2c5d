// SPDX-License-Identifier: MIT

package client

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/log"
)

const (
	// alertBound caps how long a warning alert keeps demanding attention.
	// A warning that lingers past the break's own end is just noise.
	alertBound = 5 * time.Minute

	// alertPulse is how often an active alert re-asserts itself.
	alertPulse = 15 * time.Second

	// maxSeenEvents bounds the re-delivery set; a watch session can run
	// for days and event IDs are only useful while re-delivery is likely.
	maxSeenEvents = 1024
)

// Alert is a user-facing warning with a fixed expiry.
type Alert struct {
	Message   string
	ExpiresAt time.Time
}

// Hooks are the dispatcher's side effects. Any hook may be nil.
type Hooks struct {
	// OnAlert announces a new warning alert.
	OnAlert func(Alert)
	// OnAlertPulse fires repeatedly while an alert is active.
	OnAlertPulse func(Alert)
	// OnAlertDone fires when an alert stops, whether it expired, was
	// replaced by a fresh warning, or the dispatcher shut down.
	OnAlertDone func()
	// OnRefresh signals that server state changed and views should
	// re-fetch rather than patch.
	OnRefresh func(ctx context.Context)
	// OnForceLogout terminates the local session.
	OnForceLogout func(reason string)
}

// alertEffect is one running alert: a pulse loop that stops at the bound or
// on cancel, whichever comes first.
type alertEffect struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (e *alertEffect) cancel() {
	e.once.Do(func() { close(e.stop) })
}

// Dispatcher routes incoming push events to their side effects. Events
// addressed to other users are dropped even if the server misroutes them,
// and re-delivered event IDs are ignored so side effects fire once per
// event instance. A warning starts a pulsing alert that self-cancels after
// the bound; a fresh warning cancels the running alert before starting its
// own, so at most one alert is ever active.
type Dispatcher struct {
	userID int64
	hooks  Hooks
	now    func() time.Time
	logger zerolog.Logger

	pulse     time.Duration
	bound     time.Duration
	seenLimit int

	mu        sync.Mutex
	seen      map[string]struct{}
	seenOrder []string
	active    *alertEffect
}

// NewDispatcher creates a dispatcher for the given local user.
func NewDispatcher(userID int64, hooks Hooks) *Dispatcher {
	return &Dispatcher{
		userID:    userID,
		hooks:     hooks,
		now:       time.Now,
		logger:    log.WithComponent("dispatcher"),
		pulse:     alertPulse,
		bound:     alertBound,
		seenLimit: maxSeenEvents,
		seen:      make(map[string]struct{}),
	}
}

// Dispatch handles one event.
func (d *Dispatcher) Dispatch(ctx context.Context, ev hub.Event) {
	switch ev.Type {
	case hub.EventBreakWarning, hub.EventForceLogout:
		if ev.UserID != d.userID {
			d.logger.Debug().
				Str(log.FieldEvent, string(ev.Type)).
				Int64("addressed_to", ev.UserID).
				Msg("event for another user dropped")
			return
		}
	case hub.EventBreakUpdate:
		// manager-scope refresh signal, not identity-addressed
	default:
		d.logger.Debug().Str(log.FieldEvent, string(ev.Type)).Msg("unknown event type ignored")
		return
	}

	if ev.ID != "" && d.alreadySeen(ev.ID) {
		return
	}

	switch ev.Type {
	case hub.EventBreakWarning:
		d.startAlert(Alert{
			Message:   ev.Message,
			ExpiresAt: d.now().Add(d.bound),
		})
	case hub.EventBreakUpdate:
		if d.hooks.OnRefresh != nil {
			d.hooks.OnRefresh(ctx)
		}
	case hub.EventForceLogout:
		d.stopAlert()
		if d.hooks.OnForceLogout != nil {
			d.hooks.OnForceLogout(ev.Reason)
		}
	}
}

// Close cancels any active alert and waits for its loop to exit.
func (d *Dispatcher) Close() {
	d.stopAlert()
}

// startAlert replaces the running alert, if any, with a fresh one.
func (d *Dispatcher) startAlert(alert Alert) {
	eff := &alertEffect{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	d.mu.Lock()
	prev := d.active
	d.active = eff
	d.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	if d.hooks.OnAlert != nil {
		d.hooks.OnAlert(alert)
	}
	go d.runAlert(eff, alert)
}

func (d *Dispatcher) stopAlert() {
	d.mu.Lock()
	eff := d.active
	d.active = nil
	d.mu.Unlock()

	if eff != nil {
		eff.cancel()
		<-eff.done
	}
}

// runAlert pulses until the bound elapses or the effect is cancelled.
func (d *Dispatcher) runAlert(eff *alertEffect, alert Alert) {
	defer func() {
		if d.hooks.OnAlertDone != nil {
			d.hooks.OnAlertDone()
		}
		close(eff.done)
	}()

	ticker := time.NewTicker(d.pulse)
	defer ticker.Stop()
	expiry := time.NewTimer(d.bound)
	defer expiry.Stop()

	for {
		select {
		case <-eff.stop:
			return
		case <-expiry.C:
			return
		case <-ticker.C:
			if d.hooks.OnAlertPulse != nil {
				d.hooks.OnAlertPulse(alert)
			}
		}
	}
}

// alreadySeen records id and reports whether it was known. The set evicts
// oldest-first past seenLimit.
func (d *Dispatcher) alreadySeen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.seenOrder = append(d.seenOrder, id)
	if len(d.seenOrder) > d.seenLimit {
		oldest := d.seenOrder[0]
		d.seenOrder = d.seenOrder[1:]
		delete(d.seen, oldest)
	}
	return false
}
