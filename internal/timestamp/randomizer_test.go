package timestamp

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/metanull/internal/model"
)

// TestPick tests the window bound.
func TestPick(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_800_000_000, 0)
	r := New(WithRand(rand.New(rand.NewPCG(1, 2))))

	for range 1000 {
		got := r.Pick(now)
		if got.After(now) {
			t.Fatalf("picked %v after now %v", got, now)
		}
		if got.Before(now.Add(-MaxLookbackSeconds * time.Second)) {
			t.Fatalf("picked %v before window start", got)
		}
		if got.Nanosecond() != 0 {
			t.Fatalf("expected whole seconds, got %v", got)
		}
	}
}

// TestRandomize tests timestamp rewriting on a real file.
func TestRandomize(t *testing.T) {
	t.Parallel()

	t.Run("sets atime and mtime within window", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out.png")
		if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}

		before := time.Now().Truncate(time.Second)
		applied, err := New().Randomize(path)
		after := time.Now()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		mtime := info.ModTime()
		if !mtime.Equal(applied) {
			t.Errorf("mtime %v does not match applied %v", mtime, applied)
		}
		if mtime.After(after) {
			t.Errorf("mtime %v is in the future", mtime)
		}
		if mtime.Before(before.Add(-MaxLookbackSeconds * time.Second)) {
			t.Errorf("mtime %v is older than the window", mtime)
		}
	})

	t.Run("uses injected clock", func(t *testing.T) {
		t.Parallel()

		fixed := time.Unix(1_700_000_000, 0)
		var gotA, gotM time.Time
		r := New(
			WithClock(func() time.Time { return fixed }),
			WithChtimes(func(_ string, a, m time.Time) error {
				gotA, gotM = a, m
				return nil
			}),
		)

		applied, err := r.Randomize("ignored")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !gotA.Equal(gotM) || !gotA.Equal(applied) {
			t.Errorf("atime %v, mtime %v, applied %v should match", gotA, gotM, applied)
		}
		if applied.After(fixed) || applied.Before(fixed.Add(-MaxLookbackSeconds*time.Second)) {
			t.Errorf("applied %v outside window", applied)
		}
	})

	t.Run("failure wraps ErrTimestamp", func(t *testing.T) {
		t.Parallel()

		r := New(WithChtimes(func(string, time.Time, time.Time) error {
			return fs.ErrPermission
		}))

		_, err := r.Randomize("out.jpg")
		if !errors.Is(err, model.ErrTimestamp) {
			t.Errorf("expected ErrTimestamp, got %v", err)
		}
		if !errors.Is(err, fs.ErrPermission) {
			t.Errorf("expected underlying permission error, got %v", err)
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		t.Parallel()

		_, err := New().Randomize(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, model.ErrTimestamp) {
			t.Errorf("expected ErrTimestamp, got %v", err)
		}
	})
}
