package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, check *Check) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, check *Check) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, check)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("new pipeline is empty", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if len(p.StepNames()) != 0 {
			t.Errorf("expected no names, got %v", p.StepNames())
		}
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "predict"})
		p.AddSteps(&mockStep{name: "enrich"}, &mockStep{name: "record"})

		names := p.StepNames()
		expected := []string{"predict", "enrich", "record"}
		if len(names) != len(expected) {
			t.Fatalf("expected %d names, got %v", len(expected), names)
		}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New(WithLogger(quietLogger()))
		for _, name := range []string{"first", "second"} {
			p.AddStep(&mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *Check) error {
					order = append(order, name)
					return nil
				},
			})
		}

		check := NewCheck("http://example.com")
		if err := p.Execute(context.Background(), check); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("wrong execution order: %v", order)
		}
		if len(check.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %v", check.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(&mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *Check) error {
				return expectedErr
			},
		}, second)

		check := NewCheck("http://example.com")
		err := p.Execute(context.Background(), check)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if !errors.Is(check.Err, expectedErr) || !check.Failed() {
			t.Errorf("check.Err = %v", check.Err)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		second := &mockStep{name: "should-run"}
		p := New(WithContinueOnError(true), WithLogger(quietLogger()))
		p.AddSteps(&mockStep{
			name: "failing",
			doFunc: func(_ context.Context, _ *Check) error {
				return errors.New("step failed")
			},
		}, second)

		check := NewCheck("http://example.com")
		if err := p.Execute(context.Background(), check); err != nil {
			t.Errorf("expected nil error with continueOnError, got %v", err)
		}
		if second.callCount != 1 {
			t.Error("second step should have been called")
		}
		if check.Err == nil {
			t.Error("expected error to be recorded in check")
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New(WithLogger(quietLogger()))
		p.AddStep(step)

		check := NewCheck("http://example.com")
		err := p.Execute(ctx, check)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
		if !errors.Is(check.Err, context.Canceled) {
			t.Errorf("check.Err = %v, want context.Canceled", check.Err)
		}
	})
}
