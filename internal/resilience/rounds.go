package resilience

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RoundsConfig controls batch retry behavior for scans that process a
// list of keys and re-attempt the retryable failures in later passes.
type RoundsConfig struct {
	// MaxRounds is the number of retry passes made over failed keys
	// after the initial pass. Zero disables retries. Default: 3.
	MaxRounds int

	// Pause, when set, is called before every attempt except the very
	// first, so consecutive attempts are always separated. It should
	// honor context cancellation.
	Pause func(ctx context.Context) error

	// OnRound is called before each retry pass with the 1-based round
	// number and how many keys remain.
	OnRound func(round, remaining int)

	// Concurrency bounds how many keys are attempted at once within a
	// pass. Zero or one keeps passes serial. Parallel passes pause
	// before every attempt, the first included, and the order in which
	// failed keys are retried is not stable.
	Concurrency int
}

// DefaultRoundsConfig returns the standard batch retry configuration.
func DefaultRoundsConfig() RoundsConfig {
	return RoundsConfig{MaxRounds: 3}
}

// Rounds runs fn once over every key, then re-runs it over the keys
// whose attempt failed retryably, up to cfg.MaxRounds extra passes.
// Keys that fail with a PermanentError are recorded once and never
// re-attempted; every other failure is considered retryable.
//
// The returned map holds the last error for each key that never
// succeeded. When the context is cancelled mid-run, keys not yet
// attempted in the current pass are recorded with the context error.
func Rounds(ctx context.Context, cfg RoundsConfig, keys []string, fn func(ctx context.Context, key string) error) map[string]error {
	if cfg.MaxRounds < 0 {
		cfg.MaxRounds = 0
	}

	failures := make(map[string]error)
	pending := keys
	first := true

	for round := 0; round <= cfg.MaxRounds && len(pending) > 0; round++ {
		if round > 0 && cfg.OnRound != nil {
			cfg.OnRound(round, len(pending))
		}

		if cfg.Concurrency > 1 {
			pending = parallelPass(ctx, cfg, pending, fn, failures)
			continue
		}

		var retry []string
		for i, key := range pending {
			if !first && cfg.Pause != nil {
				if err := cfg.Pause(ctx); err != nil {
					for _, k := range pending[i:] {
						failures[k] = err
					}
					return failures
				}
			}
			first = false

			if err := ctx.Err(); err != nil {
				for _, k := range pending[i:] {
					failures[k] = err
				}
				return failures
			}

			err := fn(ctx, key)
			switch {
			case err == nil:
				delete(failures, key)
			case IsPermanent(err):
				failures[key] = err
			default:
				failures[key] = err
				retry = append(retry, key)
			}
		}
		pending = retry
	}

	return failures
}

// parallelPass attempts every pending key with up to cfg.Concurrency
// workers and returns the keys that failed retryably. The failures map
// is shared with the caller and guarded here.
func parallelPass(ctx context.Context, cfg RoundsConfig, pending []string, fn func(ctx context.Context, key string) error, failures map[string]error) []string {
	var (
		mu    sync.Mutex
		retry []string
		g     errgroup.Group
	)
	g.SetLimit(cfg.Concurrency)

	for _, key := range pending {
		g.Go(func() error {
			if cfg.Pause != nil {
				if err := cfg.Pause(ctx); err != nil {
					mu.Lock()
					failures[key] = err
					mu.Unlock()
					return nil
				}
			}
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failures[key] = err
				mu.Unlock()
				return nil
			}

			err := fn(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				delete(failures, key)
			case IsPermanent(err):
				failures[key] = err
			default:
				failures[key] = err
				retry = append(retry, key)
			}
			return nil
		})
	}
	_ = g.Wait()

	return retry
}

// JitterPause returns a Pause hook that sleeps a uniformly random
// duration in [min, max], honoring context cancellation. Pacing fetches
// this way keeps scans from hammering the source host.
func JitterPause(min, max time.Duration) func(ctx context.Context) error {
	if max < min {
		max = min
	}
	return func(ctx context.Context) error {
		d := min
		if span := max - min; span > 0 {
			d += time.Duration(rand.Int64N(int64(span) + 1))
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

// RoundLogger returns an OnRound callback that logs each retry pass.
func RoundLogger(pipeline string) func(int, int) {
	return func(round, remaining int) {
		zap.L().Info("retry round",
			zap.String("pipeline", pipeline),
			zap.Int("round", round),
			zap.Int("remaining", remaining),
		)
	}
}
