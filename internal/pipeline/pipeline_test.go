package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/metanull/internal/model"
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

func newTestRun(t *testing.T) *Run {
	t.Helper()
	dir := t.TempDir()
	return NewRun(model.NewSanitizationResult(
		filepath.Join(dir, "in.png"),
		filepath.Join(dir, "out.png"),
		model.DefaultSanitizationConfig(),
	))
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if p.StepCount() != 0 {
		t.Errorf("expected 0 steps, got %d", p.StepCount())
	}
	if p.logger == nil {
		t.Error("expected default logger")
	}
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds single step", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "test-step"})

		if p.StepCount() != 1 {
			t.Errorf("expected 1 step, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "first"}, &mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		names := p.StepNames()
		expected := []string{"first", "second", "third"}
		if len(names) != len(expected) {
			t.Fatalf("expected %d names, got %d", len(expected), len(names))
		}
		for i, name := range names {
			if name != expected[i] {
				t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
			}
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order and finishes", func(t *testing.T) {
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

		run := newTestRun(t)
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 2 || order[0] != "step-1" || order[1] != "step-2" {
			t.Errorf("wrong execution order: %v", order)
		}
		if !run.Result.Success {
			t.Error("expected success")
		}
		if run.Result.State != model.StateDone {
			t.Errorf("expected done, got %s", run.Result.State)
		}
		if len(run.Result.PerformedSteps) != 2 {
			t.Errorf("expected 2 performed steps, got %v", run.Result.PerformedSteps)
		}
	})

	t.Run("stops on first error and records it", func(t *testing.T) {
		t.Parallel()

		expectedErr := errors.New("step failed")
		second := &mockStep{name: "should-not-run"}

		p := New()
		p.AddStep(&mockStep{
			name: "failing-step",
			doFunc: func(_ context.Context, _ *Run) error {
				return expectedErr
			},
		})
		p.AddStep(second)

		run := newTestRun(t)
		err := p.Execute(context.Background(), run)

		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if second.callCount != 0 {
			t.Error("second step should not have been called")
		}
		if run.Result.Success {
			t.Error("expected failure")
		}
		if !errors.Is(run.Result.Err, expectedErr) {
			t.Errorf("expected recorded error, got %v", run.Result.Err)
		}
		if run.Result.ErrorMessage != "step failed" {
			t.Errorf("unexpected error message %q", run.Result.ErrorMessage)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "should-not-run"}
		p := New()
		p.AddStep(step)

		run := newTestRun(t)
		err := p.Execute(ctx, run)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("step should not have been called")
		}
		if !errors.Is(run.Result.Err, context.Canceled) {
			t.Errorf("expected cancellation on result, got %v", run.Result.Err)
		}
	})

	t.Run("removes written output on later failure", func(t *testing.T) {
		t.Parallel()

		run := newTestRun(t)
		p := New()
		p.AddStep(&mockStep{
			name: "write",
			doFunc: func(_ context.Context, r *Run) error {
				if err := os.WriteFile(r.Result.OutputPath, []byte("x"), 0o600); err != nil {
					return err
				}
				r.outputWritten = true
				return nil
			},
		})
		p.AddStep(&mockStep{
			name: "fail",
			doFunc: func(_ context.Context, _ *Run) error {
				return model.ErrResidualMetadata
			},
		})

		if err := p.Execute(context.Background(), run); !errors.Is(err, model.ErrResidualMetadata) {
			t.Fatalf("expected ErrResidualMetadata, got %v", err)
		}
		if _, err := os.Stat(run.Result.OutputPath); !os.IsNotExist(err) {
			t.Errorf("expected output to be removed, stat err = %v", err)
		}
	})

	t.Run("leaves foreign files alone when nothing was written", func(t *testing.T) {
		t.Parallel()

		run := newTestRun(t)
		if err := os.WriteFile(run.Result.OutputPath, []byte("keep"), 0o600); err != nil {
			t.Fatal(err)
		}

		p := New()
		p.AddStep(&mockStep{
			name: "fail",
			doFunc: func(_ context.Context, _ *Run) error {
				return model.ErrDecode
			},
		})
		_ = p.Execute(context.Background(), run)

		if _, err := os.Stat(run.Result.OutputPath); err != nil {
			t.Errorf("pre-existing output must survive a failure before encode: %v", err)
		}
	})

	t.Run("records duration", func(t *testing.T) {
		t.Parallel()

		run := newTestRun(t)
		p := New()
		p.AddStep(&mockStep{name: "noop"})
		if err := p.Execute(context.Background(), run); err != nil {
			t.Fatal(err)
		}
		if run.Result.Duration < 0 {
			t.Errorf("negative duration %v", run.Result.Duration)
		}
	})
}
