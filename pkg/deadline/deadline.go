// Package deadline provides the upper-bound timing guard: an enforced
// ceiling on how long an operation may run before it is declared timed out.
//
// Go offers no way to interrupt a goroutine asynchronously, so the guard is
// built on the context tree instead of an interruption handler. The scoped
// surface (Start/Check) is cooperative: the protected region receives a
// context that expires at the deadline and is expected to observe it. The
// callable surface (Run/Wrap) enforces the ceiling unconditionally by
// running the callable on its own goroutine and abandoning it when the
// deadline fires.
package deadline

import (
	"context"
	"errors"
	"time"
)

// DefaultMessage is attached to a timeout when no message is configured.
const DefaultMessage = "operation timed out"

// ErrNonPositiveDuration is returned by New for a zero or negative
// duration. Detected at construction so a misconfigured guard fails before
// it protects anything.
var ErrNonPositiveDuration = errors.New("deadline duration must be positive")

// TimeoutError reports that a guard's deadline fired while the protected
// region was still executing.
type TimeoutError struct {
	Message string

	// guard identifies the Guard whose deadline produced this error, so
	// nested guards with identical messages stay distinguishable.
	guard *Guard
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return DefaultMessage
	}
	return e.Message
}

// Timeout reports true, following the net.Error convention so callers can
// detect timeouts without depending on this package's concrete type.
func (e *TimeoutError) Timeout() bool { return true }

// IsTimeout reports whether err is (or wraps) a guard timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Guard enforces an upper bound on the duration of a protected region.
// Construction is cheap and touches no shared state; timers exist only
// between Start and its matching cancel.
type Guard struct {
	duration time.Duration
	message  string
	suppress bool
}

// Option configures a Guard at construction.
type Option func(*Guard)

// WithMessage sets the text carried by the guard's TimeoutError.
func WithMessage(msg string) Option {
	return func(g *Guard) { g.message = msg }
}

// WithSuppress makes a fired deadline silent: the guard reports no error
// and control simply resumes after the protected region. Only the guard's
// own timeout is suppressed; unrelated failures still propagate.
func WithSuppress() Option {
	return func(g *Guard) { g.suppress = true }
}

// New creates a deadline guard. The duration must be positive; sub-second
// values are honored down to the resolution of the runtime timer (typically
// around a millisecond, finer on Linux).
func New(duration time.Duration, opts ...Option) (*Guard, error) {
	if duration <= 0 {
		return nil, ErrNonPositiveDuration
	}
	g := &Guard{duration: duration, message: DefaultMessage}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Duration returns the configured ceiling.
func (g *Guard) Duration() time.Duration { return g.duration }

// Start opens a protected region: it derives a context that expires after
// the guard's duration, carrying the guard's TimeoutError as its cause.
//
// The returned CancelFunc releases the region's timer and must run on every
// exit path; defer it immediately. Because regions are derived contexts,
// nesting needs no further care: releasing an inner region leaves an outer
// guard's deadline exactly as it was.
func (g *Guard) Start(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(parent, g.duration, g.timeoutErr())
}

// Check inspects a region context after (or during) the protected block.
// It returns nil while the region is live, nil for expiry caused by
// something other than this guard (an outer deadline, an external cancel),
// and the guard's TimeoutError when this guard's deadline fired. With
// suppression configured that last case also becomes nil.
func (g *Guard) Check(ctx context.Context) error {
	te, fired := g.fired(ctx)
	if !fired || g.suppress {
		return nil
	}
	return te
}

// fired reports whether ctx expired because of this guard's own deadline.
func (g *Guard) fired(ctx context.Context) (*TimeoutError, bool) {
	if ctx.Err() == nil {
		return nil, false
	}
	var te *TimeoutError
	if errors.As(context.Cause(ctx), &te) && te.guard == g {
		return te, true
	}
	return nil, false
}

// Run executes fn under the guard's deadline. fn receives the region
// context and runs on its own goroutine; if it returns first, Run returns
// its error unchanged. If the deadline fires first, Run returns the guard's
// TimeoutError (or nil under suppression) and fn's goroutine is abandoned.
//
// An abandoned fn keeps running until it observes its context. Side effects
// it performed before the deadline are visible; anything it does afterwards
// is best-effort and unspecified. fn must not write to shared state it does
// not synchronize.
func (g *Guard) Run(ctx context.Context, fn func(context.Context) error) error {
	rctx, cancel := g.Start(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(rctx)
	}()

	select {
	case err := <-done:
		// fn may have observed the expiring region and surfaced its
		// context error in the same instant the deadline fired; that
		// still counts as this guard's timeout. A genuine error of
		// fn's own passes through untouched.
		if te, fired := g.fired(rctx); fired &&
			(errors.Is(err, context.DeadlineExceeded) || errors.Is(err, te)) {
			if g.suppress {
				return nil
			}
			return te
		}
		return err
	case <-rctx.Done():
		if te, fired := g.fired(rctx); fired {
			if g.suppress {
				return nil
			}
			return te
		}
		// Expired for a reason other than this guard's own deadline;
		// suppression does not apply to unrelated failures.
		return context.Cause(rctx)
	}
}

// Wrap returns a callable with Run semantics bracketing each invocation.
func (g *Guard) Wrap(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return g.Run(ctx, fn)
	}
}

func (g *Guard) timeoutErr() *TimeoutError {
	return &TimeoutError{Message: g.message, guard: g}
}
