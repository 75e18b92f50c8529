package deadline

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockUntilCancelled stands in for an operation that overruns any deadline
func blockUntilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestNewRejectsNonPositiveDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
	}{
		{"zero", 0},
		{"negative", -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.duration); !errors.Is(err, ErrNonPositiveDuration) {
				t.Errorf("Expected ErrNonPositiveDuration, got %v", err)
			}
		})
	}
}

func TestRunCompletesBeforeDeadline(t *testing.T) {
	g, err := New(time.Second)
	if err != nil {
		t.Fatal(err)
	}

	ran := false
	err = g.Run(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !ran {
		t.Error("Expected the operation to run")
	}
}

func TestRunPropagatesOperationError(t *testing.T) {
	g, err := New(time.Second)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")

	got := g.Run(context.Background(), func(ctx context.Context) error { return boom })

	if !errors.Is(got, boom) {
		t.Errorf("Expected the operation error unchanged, got %v", got)
	}
	if IsTimeout(got) {
		t.Error("Expected an unrelated failure not to read as a timeout")
	}
}

func TestRunTimesOut(t *testing.T) {
	g, err := New(30 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	got := g.Run(context.Background(), blockUntilCancelled)

	if !IsTimeout(got) {
		t.Fatalf("Expected a timeout, got %v", got)
	}
	if got.Error() != DefaultMessage {
		t.Errorf("Expected default message %q, got %q", DefaultMessage, got.Error())
	}
}

func TestRunTimesOutWithConfiguredMessage(t *testing.T) {
	g, err := New(30*time.Millisecond, WithMessage("backup took too long"))
	if err != nil {
		t.Fatal(err)
	}

	got := g.Run(context.Background(), blockUntilCancelled)

	if !IsTimeout(got) {
		t.Fatalf("Expected a timeout, got %v", got)
	}
	if got.Error() != "backup took too long" {
		t.Errorf("Expected configured message, got %q", got.Error())
	}
}

func TestRunSuppressedTimeout(t *testing.T) {
	g, err := New(30*time.Millisecond, WithSuppress())
	if err != nil {
		t.Fatal(err)
	}

	got := g.Run(context.Background(), blockUntilCancelled)

	if got != nil {
		t.Errorf("Expected a suppressed timeout to report no error, got %v", got)
	}
}

func TestSuppressDoesNotHideOperationErrors(t *testing.T) {
	g, err := New(time.Second, WithSuppress())
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")

	got := g.Run(context.Background(), func(ctx context.Context) error { return boom })

	if !errors.Is(got, boom) {
		t.Errorf("Expected suppression to pass unrelated failures through, got %v", got)
	}
}

func TestNestedGuards(t *testing.T) {
	outer, err := New(300 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	inner, err := New(30 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	octx, ocancel := outer.Start(context.Background())
	defer ocancel()

	// Inner deadline fires first
	if got := inner.Run(octx, blockUntilCancelled); !IsTimeout(got) {
		t.Fatalf("Expected inner timeout, got %v", got)
	}

	// Releasing the inner region must leave the outer guard live
	if err := outer.Check(octx); err != nil {
		t.Errorf("Expected outer region still live after inner timeout, got %v", err)
	}

	// The outer guard must still enforce its own deadline afterwards
	if got := outer.Run(octx, blockUntilCancelled); !IsTimeout(got) {
		t.Errorf("Expected outer timeout for a subsequent operation, got %v", got)
	}
}

func TestInnerTimeoutNotAttributedToOuter(t *testing.T) {
	// Same message on both guards: identity, not text, must decide
	outer, _ := New(300*time.Millisecond, WithMessage("too slow"))
	inner, _ := New(30*time.Millisecond, WithMessage("too slow"))

	octx, ocancel := outer.Start(context.Background())
	defer ocancel()
	ictx, icancel := inner.Start(octx)
	defer icancel()

	<-ictx.Done()

	if err := inner.Check(ictx); !IsTimeout(err) {
		t.Errorf("Expected inner guard to own the timeout, got %v", err)
	}
	if err := outer.Check(ictx); err != nil {
		t.Errorf("Expected outer guard not to claim the inner timeout, got %v", err)
	}
}

func TestCheckScopedRegion(t *testing.T) {
	g, err := New(30 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := g.Start(context.Background())
	defer cancel()

	if err := g.Check(ctx); err != nil {
		t.Errorf("Expected nil for a live region, got %v", err)
	}

	<-ctx.Done()

	if err := g.Check(ctx); !IsTimeout(err) {
		t.Errorf("Expected a timeout after expiry, got %v", err)
	}
}

func TestCheckIgnoresExternalCancellation(t *testing.T) {
	g, err := New(time.Second)
	if err != nil {
		t.Fatal(err)
	}

	parent, parentCancel := context.WithCancel(context.Background())
	ctx, cancel := g.Start(parent)
	defer cancel()

	parentCancel()
	<-ctx.Done()

	// Expired, but not because of this guard's deadline
	if err := g.Check(ctx); err != nil {
		t.Errorf("Expected nil for an externally cancelled region, got %v", err)
	}
}

func TestRunPropagatesExternalCancellation(t *testing.T) {
	g, err := New(time.Second, WithSuppress())
	if err != nil {
		t.Fatal(err)
	}

	parent, parentCancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		parentCancel()
	}()

	got := g.Run(parent, blockUntilCancelled)

	// Suppression covers only this guard's own deadline
	if !errors.Is(got, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", got)
	}
}

func TestWrapBracketsEveryInvocation(t *testing.T) {
	g, err := New(30 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	wrapped := g.Wrap(func(ctx context.Context) error {
		calls++
		if calls == 2 {
			return blockUntilCancelled(ctx)
		}
		return nil
	})

	if got := wrapped(context.Background()); got != nil {
		t.Errorf("Expected first invocation to pass, got %v", got)
	}
	if got := wrapped(context.Background()); !IsTimeout(got) {
		t.Errorf("Expected second invocation to time out, got %v", got)
	}
	// A fresh deadline applies per invocation
	if got := wrapped(context.Background()); got != nil {
		t.Errorf("Expected third invocation to pass, got %v", got)
	}
}

func TestTimeoutErrorShape(t *testing.T) {
	te := &TimeoutError{Message: "late"}
	if te.Error() != "late" {
		t.Errorf("Expected message, got %q", te.Error())
	}
	if !te.Timeout() {
		t.Error("Expected Timeout() to report true")
	}

	empty := &TimeoutError{}
	if empty.Error() != DefaultMessage {
		t.Errorf("Expected default message fallback, got %q", empty.Error())
	}

	if IsTimeout(errors.New("boom")) {
		t.Error("Expected IsTimeout false for unrelated errors")
	}
	if !IsTimeout(errors.Join(errors.New("outer"), te)) {
		t.Error("Expected IsTimeout to unwrap")
	}
}
