// SPDX-License-Identifier: MIT

// Package watch sweeps ongoing break sessions and publishes push events on
// their behalf: an ending-soon warning to the break taker and a refresh
// signal to managers when a session enters violation.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/metrics"
)

// SessionSource lists the sessions the monitor sweeps.
type SessionSource interface {
	ActiveSessions(ctx context.Context) ([]breaks.Session, error)
}

// Publisher delivers push events.
type Publisher interface {
	Publish(ev hub.Event)
}

// Monitor periodically inspects ongoing sessions. State is keyed by session
// ID so each session gets at most one warning and one violation signal no
// matter how many sweeps observe it; the sets are pruned once a session
// leaves the active list, which re-arms the warning for the user's next
// break.
type Monitor struct {
	source   SessionSource
	events   Publisher
	clk      clock.Clock
	lead     time.Duration
	interval time.Duration
	logger   zerolog.Logger

	warned   map[string]struct{}
	violated map[string]struct{}
}

// New creates a monitor. lead is how long before the expected end the
// warning fires; interval is the sweep cadence.
func New(source SessionSource, events Publisher, clk clock.Clock, lead, interval time.Duration) *Monitor {
	return &Monitor{
		source:   source,
		events:   events,
		clk:      clk,
		lead:     lead,
		interval: interval,
		logger:   log.WithComponent("watch"),
		warned:   make(map[string]struct{}),
		violated: make(map[string]struct{}),
	}
}

// Run sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.clk.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info().
		Dur("interval", m.interval).
		Dur("warning_lead", m.lead).
		Msg("break monitor started")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("break monitor stopped")
			return ctx.Err()
		case <-ticker.C():
			m.Sweep(ctx)
		}
	}
}

// Sweep inspects every ongoing session once. Exported so the API layer can
// trigger an immediate pass after a mutation instead of waiting a tick.
func (m *Monitor) Sweep(ctx context.Context) {
	sessions, err := m.source.ActiveSessions(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("active session sweep failed")
		return
	}
	metrics.SetActiveBreaks(len(sessions))

	now := m.clk.Now()
	seen := make(map[string]struct{}, len(sessions))
	for _, session := range sessions {
		seen[session.ID] = struct{}{}
		m.checkWarning(session, now)
		m.checkViolation(session, now)
	}

	for id := range m.warned {
		if _, ok := seen[id]; !ok {
			delete(m.warned, id)
		}
	}
	for id := range m.violated {
		if _, ok := seen[id]; !ok {
			delete(m.violated, id)
		}
	}
}

func (m *Monitor) checkWarning(session breaks.Session, now time.Time) {
	if _, done := m.warned[session.ID]; done {
		return
	}
	remaining := clock.SecondsBetween(now, session.ExpectedEndTime)
	if remaining <= 0 || remaining > int64(m.lead/time.Second) {
		return
	}
	m.warned[session.ID] = struct{}{}

	m.events.Publish(hub.Event{
		Type:    hub.EventBreakWarning,
		UserID:  session.UserID,
		Message: fmt.Sprintf("Your %s break ends in %s", session.BreakType.Name, clock.FormatCompact(remaining)),
	})
	metrics.IncWarningSent()
	m.logger.Debug().
		Str(log.FieldSessionID, session.ID).
		Int64(log.FieldUserID, session.UserID).
		Int64("remaining_seconds", remaining).
		Msg("break warning sent")
}

func (m *Monitor) checkViolation(session breaks.Session, now time.Time) {
	if _, done := m.violated[session.ID]; done {
		return
	}
	if !session.IsOverrun(now) {
		return
	}
	m.violated[session.ID] = struct{}{}
	// a session that starts already inside the lead window goes straight
	// to violation without a separate warning
	m.warned[session.ID] = struct{}{}

	m.events.Publish(hub.Event{
		Type:   hub.EventBreakUpdate,
		UserID: session.UserID,
	})
	m.logger.Warn().
		Str(log.FieldSessionID, session.ID).
		Int64(log.FieldUserID, session.UserID).
		Str(log.FieldBreakType, session.BreakType.Name).
		Int64(log.FieldViolationSeconds, session.CurrentViolation(now)).
		Msg("break exceeded expected end")
}
