// SPDX-License-Identifier: MIT

// Package timer drives per-second observation of one ongoing break session.
// Every tick recomputes the display purely from the wall clock and the
// session's fixed fields, so a missed or delayed tick never skews the result.
package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/clock"
)

// Tick is the per-second display snapshot delivered to OnTick.
type Tick struct {
	// ElapsedOrRemaining is seconds until the expected end while on time,
	// and seconds past it once in violation.
	ElapsedOrRemaining int64
	IsViolation        bool
}

// Hooks are the observer callbacks. OnTick fires every tick; OnViolationOnset
// fires exactly once, at the first tick where the session crosses from
// on-time into overrun (edge-triggered). Both run on the engine's goroutine
// and must return quickly.
type Hooks struct {
	OnTick           func(Tick)
	OnViolationOnset func()
}

// Interval is the engine's resampling period.
const Interval = time.Second

// Observe starts ticking for the given session. Sessions that are not
// ONGOING yield an inert handle: no ticks, no onset. The caller owns the
// handle and must Cancel it on every exit path; a leaked ticker is a defect.
func Observe(clk clock.Clock, session breaks.Session, hooks Hooks) *Handle {
	h := &Handle{done: make(chan struct{})}
	if session.Status != breaks.StatusOngoing {
		h.cancelOnce.Do(func() { close(h.done) })
		return h
	}

	ticker := clk.NewTicker(Interval)
	h.wg.Add(1)
	go h.run(ticker, session, hooks)
	return h
}

// Handle controls one observation. Cancel is idempotent and stops the ticker
// deterministically: once Cancel returns, no further hook fires.
type Handle struct {
	cancelOnce sync.Once
	cancelled  atomic.Bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// Cancel stops the observation. Safe to call more than once.
func (h *Handle) Cancel() {
	h.cancelled.Store(true)
	h.cancelOnce.Do(func() { close(h.done) })
}

// Wait blocks until the engine goroutine has exited. Intended for teardown
// paths and tests.
func (h *Handle) Wait() {
	h.wg.Wait()
}

func (h *Handle) run(ticker clock.Ticker, session breaks.Session, hooks Hooks) {
	defer h.wg.Done()
	defer ticker.Stop()

	wasOverrun := false
	for {
		select {
		case <-h.done:
			return
		case now := <-ticker.C():
			if h.cancelled.Load() {
				return
			}
			overrun := session.IsOverrun(now)
			if overrun && !wasOverrun {
				wasOverrun = true
				if hooks.OnViolationOnset != nil {
					hooks.OnViolationOnset()
				}
			}
			if hooks.OnTick != nil {
				display := Tick{IsViolation: overrun}
				if overrun {
					display.ElapsedOrRemaining = session.CurrentViolation(now)
				} else {
					display.ElapsedOrRemaining = session.Remaining(now)
				}
				hooks.OnTick(display)
			}
		}
	}
}
