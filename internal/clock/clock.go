// SPDX-License-Identifier: MIT

// Package clock provides wall-clock access and duration formatting for
// break-session arithmetic. All conversions are pure; the Clock interface
// exists so time-driven components stay deterministic under test.
package clock

import "time"

// Clock abstracts wall-clock access and repeating tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is a cancellable source of periodic ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// System returns a Clock backed by the real wall clock.
func System() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }
