// SPDX-License-Identifier: MIT

package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/hub"
)

type stubSource struct {
	mu       sync.Mutex
	sessions []breaks.Session
	err      error
}

func (s *stubSource) ActiveSessions(context.Context) ([]breaks.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions, s.err
}

func (s *stubSource) set(sessions []breaks.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = sessions
}

type stubPublisher struct {
	mu     sync.Mutex
	events []hub.Event
}

func (p *stubPublisher) Publish(ev hub.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *stubPublisher) byType(t hub.EventType) []hub.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []hub.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func ongoingSession(id string, userID int64, start time.Time, duration int64) breaks.Session {
	return breaks.Session{
		ID:              id,
		UserID:          userID,
		BreakTypeID:     1,
		BreakType:       breaks.BreakType{ID: 1, Name: "Lunch", Duration: duration, IsActive: true},
		Status:          breaks.StatusOngoing,
		StartTime:       start,
		ExpectedEndTime: start.Add(time.Duration(duration) * time.Second),
	}
}

func TestSweepWarnsOnceInsideLeadWindow(t *testing.T) {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	source := &stubSource{}
	pub := &stubPublisher{}
	m := New(source, pub, fake, 5*time.Minute, time.Second)

	source.set([]breaks.Session{ongoingSession("s1", 7, start, 600)})
	ctx := context.Background()

	m.Sweep(ctx)
	assert.Empty(t, pub.byType(hub.EventBreakWarning), "no warning with 10m remaining")

	fake.Advance(6 * time.Minute)
	m.Sweep(ctx)
	m.Sweep(ctx)
	m.Sweep(ctx)

	warnings := pub.byType(hub.EventBreakWarning)
	require.Len(t, warnings, 1, "warning fires exactly once per session")
	assert.EqualValues(t, 7, warnings[0].UserID)
	assert.Contains(t, warnings[0].Message, "Lunch")
	assert.Contains(t, warnings[0].Message, "4m")
}

func TestSweepSignalsViolationOnsetOnce(t *testing.T) {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	source := &stubSource{}
	pub := &stubPublisher{}
	m := New(source, pub, fake, 5*time.Minute, time.Second)

	source.set([]breaks.Session{ongoingSession("s1", 7, start, 600)})
	ctx := context.Background()

	fake.Advance(11 * time.Minute)
	m.Sweep(ctx)
	m.Sweep(ctx)

	updates := pub.byType(hub.EventBreakUpdate)
	require.Len(t, updates, 1, "violation onset publishes exactly one refresh")
	assert.EqualValues(t, 7, updates[0].UserID)
	assert.Empty(t, pub.byType(hub.EventBreakWarning),
		"a session first seen past its end gets no stale warning")
}

func TestSweepReArmsAfterSessionEnds(t *testing.T) {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	source := &stubSource{}
	pub := &stubPublisher{}
	m := New(source, pub, fake, 5*time.Minute, time.Second)
	ctx := context.Background()

	source.set([]breaks.Session{ongoingSession("s1", 7, start, 300)})
	fake.Advance(time.Minute)
	m.Sweep(ctx)
	require.Len(t, pub.byType(hub.EventBreakWarning), 1)

	// session ends; the tracking entry is pruned
	source.set(nil)
	m.Sweep(ctx)

	// a fresh break for the same user warns again
	next := ongoingSession("s2", 7, fake.Now(), 300)
	source.set([]breaks.Session{next})
	fake.Advance(time.Minute)
	m.Sweep(ctx)
	assert.Len(t, pub.byType(hub.EventBreakWarning), 2)
}

func TestSweepToleratesSourceErrors(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	source := &stubSource{err: errors.New("database locked")}
	pub := &stubPublisher{}
	m := New(source, pub, fake, 5*time.Minute, time.Second)

	m.Sweep(context.Background())
	assert.Empty(t, pub.events)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	source := &stubSource{}
	pub := &stubPublisher{}
	m := New(source, pub, fake, 5*time.Minute, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop")
	}
}
