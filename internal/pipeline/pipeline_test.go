package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, run *Run) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, run *Run) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, run)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("nil logger falls back to the default", func(t *testing.T) {
		t.Parallel()

		p := New(WithLogger(nil))
		if p.logger == nil {
			t.Error("expected a logger")
		}
	})
}

// TestPipelineExecute tests step execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New()
		for _, name := range []string{"step-1", "step-2"} {
			p.AddStep(&mockStep{
				name: name,
				doFunc: func(_ context.Context, _ *Run) error {
					order = append(order, name)
					return nil
				},
			})
		}

		run := NewRun()
		if err := p.Execute(t.Context(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]string{"step-1", "step-2"}, order); diff != "" {
			t.Errorf("execution order mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"step-1", "step-2"}, run.Performed); diff != "" {
			t.Errorf("performed mismatch (-want +got):\n%s", diff)
		}
		if _, ok := run.Timings["step-2"]; !ok {
			t.Error("expected a timing for step-2")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddSteps(
			&mockStep{name: "failing-step", doFunc: func(context.Context, *Run) error { return expectedErr }},
			second,
		)

		run := NewRun()
		if err := p.Execute(t.Context(), run); !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if !errors.Is(run.Err, expectedErr) {
			t.Errorf("expected the error to be recorded, got %v", run.Err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(step)

		run := NewRun()
		if err := p.Execute(ctx, run); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
	})

	t.Run("zero run gets a timings map", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "only"})
		run := &Run{}
		if err := p.Execute(t.Context(), run); err != nil {
			t.Fatal(err)
		}
		if len(run.Timings) != 1 {
			t.Errorf("expected one timing, got %v", run.Timings)
		}
	})
}

// TestPipelineStepNames tests the StepNames method.
func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	t.Run("returns empty slice for empty pipeline", func(t *testing.T) {
		t.Parallel()

		if names := New().StepNames(); len(names) != 0 {
			t.Errorf("expected empty slice, got %v", names)
		}
	})

	t.Run("returns names in order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(
			&mockStep{name: "alpha"},
			&mockStep{name: "beta"},
			&mockStep{name: "gamma"},
		)
		if diff := cmp.Diff([]string{"alpha", "beta", "gamma"}, p.StepNames()); diff != "" {
			t.Errorf("names mismatch (-want +got):\n%s", diff)
		}
	})
}

// TestNewRun tests run initialization.
func TestNewRun(t *testing.T) {
	t.Parallel()

	a, b := NewRun(), NewRun()
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.Tree == nil || !a.Tree.IsEmpty() {
		t.Error("expected an empty tree")
	}
	if a.StartedAt.IsZero() {
		t.Error("expected a start time")
	}
}
