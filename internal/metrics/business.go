// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus instrumentation for the workpulse daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	breaksStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_breaks_started_total",
		Help: "Break sessions started, by break type",
	}, []string{"break_type"})

	breaksEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_breaks_ended_total",
		Help: "Break sessions ended, by outcome",
	}, []string{"outcome"}) // outcome=on_time|violation|cancelled

	breakViolationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "workpulse_break_violation_seconds",
		Help:    "Final overrun of ended sessions that exceeded their expected end",
		Buckets: []float64{15, 30, 60, 120, 300, 600, 1800},
	})

	activeBreaks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workpulse_active_breaks",
		Help: "Currently ongoing break sessions",
	})

	// Push channel metrics
	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "workpulse_event_subscribers",
		Help: "Connected push-event subscribers",
	})

	eventsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_events_dispatched_total",
		Help: "Push events dispatched to subscribers, by event type",
	}, []string{"event"})

	eventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workpulse_events_dropped_total",
		Help: "Push events dropped because a subscriber could not keep up",
	})

	// Monitor metrics
	warningsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workpulse_break_warnings_sent_total",
		Help: "break_warning events emitted by the monitor",
	})

	forcedLogoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workpulse_forced_logouts_total",
		Help: "force_logout events emitted by administrative action",
	})

	// Auth metrics
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workpulse_logins_total",
		Help: "Login attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

func IncBreakStarted(breakType string) { breaksStartedTotal.WithLabelValues(breakType).Inc() }
func IncBreakEnded(outcome string)     { breaksEndedTotal.WithLabelValues(outcome).Inc() }
func ObserveViolation(seconds int64)   { breakViolationSeconds.Observe(float64(seconds)) }
func SetActiveBreaks(n int)            { activeBreaks.Set(float64(n)) }
func IncActiveBreaks()                 { activeBreaks.Inc() }
func DecActiveBreaks()                 { activeBreaks.Dec() }

func IncEventSubscribers()        { eventSubscribers.Inc() }
func DecEventSubscribers()        { eventSubscribers.Dec() }
func IncEventDispatched(ev string) { eventsDispatchedTotal.WithLabelValues(ev).Inc() }
func IncEventDropped()            { eventsDroppedTotal.Inc() }

func IncWarningSent()   { warningsSentTotal.Inc() }
func IncForcedLogout()  { forcedLogoutsTotal.Inc() }
func IncLogin(outcome string) { loginsTotal.WithLabelValues(outcome).Inc() }
