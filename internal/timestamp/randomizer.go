// Package timestamp rewrites file access and modification times to a
// random point in the recent past.
package timestamp

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/nao1215/metanull/internal/model"
)

// MaxLookbackSeconds is the width of the random window: five years of
// 365 days, counted back from the moment of the call.
const MaxLookbackSeconds = 157_680_000

// Randomizer sets file times to now minus a uniformly random number of
// whole seconds in [0, MaxLookbackSeconds]. It is safe for concurrent use.
type Randomizer struct {
	now     func() time.Time
	mu      sync.Mutex
	rng     *rand.Rand
	chtimes func(name string, atime, mtime time.Time) error
	logger  *slog.Logger
}

// Option configures a Randomizer.
type Option func(*Randomizer)

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Randomizer) {
		r.now = now
	}
}

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option {
	return func(r *Randomizer) {
		r.rng = rng
	}
}

// WithChtimes replaces os.Chtimes. Tests use it to simulate permission
// failures on the timestamp update alone.
func WithChtimes(fn func(name string, atime, mtime time.Time) error) Option {
	return func(r *Randomizer) {
		r.chtimes = fn
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Randomizer) {
		r.logger = logger
	}
}

// New creates a Randomizer. Without options it uses the wall clock, a
// ChaCha8 generator seeded from crypto/rand and os.Chtimes.
func New(opts ...Option) *Randomizer {
	r := &Randomizer{
		now:     time.Now,
		chtimes: os.Chtimes,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = newSecureRand()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Pick returns the time the next Randomize call would apply at the given
// moment. The result is truncated to whole seconds.
func (r *Randomizer) Pick(now time.Time) time.Time {
	r.mu.Lock()
	offset := r.rng.Int64N(MaxLookbackSeconds + 1)
	r.mu.Unlock()
	return time.Unix(now.Unix()-offset, 0)
}

// Randomize sets both the access and modification time of path to the
// same random instant and returns it. Errors wrap model.ErrTimestamp.
func (r *Randomizer) Randomize(path string) (time.Time, error) {
	t := r.Pick(r.now())
	if err := r.chtimes(path, t, t); err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", model.ErrTimestamp, err)
	}
	r.logger.Debug("file timestamps randomized", "path", path)
	return t, nil
}
