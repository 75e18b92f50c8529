// Package guard defines the scoped-lifecycle contract shared by the timing
// guards: an enter/exit pair that is guaranteed to run exit exactly once per
// enter, on every exit path.
//
// Guards are usable two ways, both funneling into the same pair:
//
//	w.Enter()
//	defer w.Exit()
//	// ... protected block ...
//
// or wrapping a callable:
//
//	err := guard.Do(w, func() error { ... })
package guard

// Region is a scoped lifecycle. Exit must tolerate being reached while an
// error or panic is propagating out of the protected block; implementations
// must not assume a clean exit path.
type Region interface {
	Enter()
	Exit()
}

// Do runs fn between r.Enter and r.Exit. Exit runs even when fn returns an
// error or panics; fn's error is returned unchanged.
func Do(r Region, fn func() error) error {
	r.Enter()
	defer r.Exit()
	return fn()
}

// Wrap returns a callable that brackets every invocation of fn with
// r.Enter/r.Exit, with the same guarantees as Do.
func Wrap(r Region, fn func() error) func() error {
	return func() error {
		return Do(r, fn)
	}
}
