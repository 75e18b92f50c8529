// Package wait provides the lower-bound timing guards: a minimum-duration
// guard that keeps a wrapped operation from finishing early, an observable
// variant that additionally records how long the operation really took, and
// a stopwatch variant that only measures.
//
// The classic use for the minimum-duration guard is flattening timing side
// channels: if a credential check fails fast on bad input, wrapping it in a
// Waiter makes success and failure take the same wall-clock time from the
// caller's point of view.
package wait

import (
	"errors"
	"time"

	"github.com/psantana5/timerguard/pkg/guard"
	"github.com/psantana5/timerguard/pkg/timeclock"
)

// ErrNegativeDuration is returned by constructors when the minimum duration
// is negative. Zero is valid and means no enforced floor.
var ErrNegativeDuration = errors.New("minimum duration must not be negative")

// Measurement describes one completed pass through a guard.
type Measurement struct {
	// Runtime is how long the wrapped operation took on its own,
	// measured before any enforced wait.
	Runtime time.Duration
	// Active is the total time between enter and exit, including the
	// enforced wait. Active >= Runtime always.
	Active time.Duration
}

// Observer receives the measurement of every completed pass. The guard core
// performs the measurement and the notification itself, so an Observer can
// extend a guard's exit behavior without being able to skip the measurement.
type Observer interface {
	Observe(m Measurement)
}

type config struct {
	clock        timeclock.Clock
	observers    []Observer
	historyLimit int
}

// Option configures a guard at construction.
type Option func(*config)

// WithClock substitutes the time source. Intended for tests.
func WithClock(c timeclock.Clock) Option {
	return func(cfg *config) { cfg.clock = c }
}

// WithObserver attaches an additional Observer. May be repeated; observers
// are notified in registration order.
func WithObserver(o Observer) Option {
	return func(cfg *config) { cfg.observers = append(cfg.observers, o) }
}

// WithHistoryLimit caps the Stats history kept by Observable and Stopwatch
// guards at n entries, dropping the oldest. Zero (the default) keeps the
// history unbounded.
func WithHistoryLimit(n int) Option {
	return func(cfg *config) { cfg.historyLimit = n }
}

// Waiter is the minimum-duration guard: the wall-clock time between Enter
// and Exit is never less than the configured minimum. If the wrapped
// operation already consumed the minimum, Exit returns immediately.
//
// A Waiter tracks a single region at a time and is not meant to be entered
// concurrently from multiple goroutines. Independent regions want
// independent Waiter instances; those nest safely.
type Waiter struct {
	min       time.Duration
	clock     timeclock.Clock
	observers []Observer
	start     time.Time
}

// NewWaiter creates a minimum-duration guard. A negative minimum is a
// configuration error; zero disables enforcement.
func NewWaiter(min time.Duration, opts ...Option) (*Waiter, error) {
	if min < 0 {
		return nil, ErrNegativeDuration
	}
	cfg := config{clock: timeclock.Real()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Waiter{
		min:       min,
		clock:     cfg.clock,
		observers: cfg.observers,
	}, nil
}

// Minimum returns the configured floor.
func (w *Waiter) Minimum() time.Duration {
	return w.min
}

// Enter records the region start time.
func (w *Waiter) Enter() {
	w.start = w.clock.Now()
}

// Exit measures the operation's runtime, blocks for whatever remains of the
// minimum duration, then notifies observers. The residual is floored at
// zero; an operation that already ran past the minimum causes no extra wait.
//
// Exit is expected to run on every exit path, including when the protected
// block failed, so both the floor and the measurement hold regardless of
// outcome. Pair Enter with a deferred Exit, or use Do.
func (w *Waiter) Exit() {
	runtime := w.clock.Since(w.start)
	if residual := w.min - runtime; residual > 0 {
		w.clock.Sleep(residual)
	}
	active := w.clock.Since(w.start)

	m := Measurement{Runtime: runtime, Active: active}
	for _, o := range w.observers {
		o.Observe(m)
	}
}

// Do runs fn as a protected block: Enter, deferred Exit, fn. The error from
// fn is returned unchanged.
func (w *Waiter) Do(fn func() error) error {
	return guard.Do(w, fn)
}

// Wrap returns a callable bracketing every invocation of fn with the
// guard's enter/exit pair.
func (w *Waiter) Wrap(fn func() error) func() error {
	return guard.Wrap(w, fn)
}

// Observable is a minimum-duration guard that also records measurements of
// every completed pass via an attached Stats.
type Observable struct {
	*Waiter
	stats *Stats
}

// NewObservable creates a minimum-duration guard with measurement
// recording. Enforcement behavior is identical to NewWaiter.
func NewObservable(min time.Duration, opts ...Option) (*Observable, error) {
	if min < 0 {
		return nil, ErrNegativeDuration
	}
	cfg := config{clock: timeclock.Real()}
	for _, opt := range opts {
		opt(&cfg)
	}
	// The Stats observer goes first so user observers see a guard whose
	// record is already up to date.
	stats := &Stats{limit: cfg.historyLimit}
	w := &Waiter{
		min:       min,
		clock:     cfg.clock,
		observers: append([]Observer{stats}, cfg.observers...),
	}
	return &Observable{Waiter: w, stats: stats}, nil
}

// Stats exposes the recorded measurements.
func (o *Observable) Stats() *Stats {
	return o.stats
}

// Stopwatch measures wrapped operations without enforcing anything: a
// zero-minimum Observable that never sleeps.
type Stopwatch struct {
	*Observable
}

// NewStopwatch creates a pure elapsed-time recorder. Additional side
// effects on exit (an external sink, a metrics recorder) are attached as
// Observers; the base measurement always runs first.
func NewStopwatch(opts ...Option) *Stopwatch {
	o, err := NewObservable(0, opts...)
	if err != nil {
		// Unreachable: a zero minimum is always valid.
		panic(err)
	}
	return &Stopwatch{Observable: o}
}
