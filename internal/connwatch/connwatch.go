// Package connwatch supervises long-running bridge tasks with
// exponential backoff. A bridge that loses its broker or its foreign
// endpoint returns a terminal error; the supervisor restarts it on a
// growing delay instead of taking the process down, and resets the
// schedule once a run has stayed up long enough to count as healthy.
package connwatch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// BackoffConfig controls the restart schedule.
type BackoffConfig struct {
	// InitialDelay is the delay before the first restart (default: 2s).
	InitialDelay time.Duration

	// MaxDelay is the ceiling for backoff growth (default: 60s).
	MaxDelay time.Duration

	// Multiplier scales the delay after each restart (default: 2.0).
	Multiplier float64

	// HealthyAfter is how long a run must survive for the schedule to
	// reset to InitialDelay (default: 60s).
	HealthyAfter time.Duration
}

// DefaultBackoffConfig returns the restart schedule:
// 2s, 4s, 8s, 16s, 32s, 60s (capped), resetting after a minute of
// healthy uptime.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 2 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		HealthyAfter: 60 * time.Second,
	}
}

func (b *BackoffConfig) applyDefaults() {
	if b.InitialDelay <= 0 {
		b.InitialDelay = 2 * time.Second
	}
	if b.MaxDelay <= 0 {
		b.MaxDelay = 60 * time.Second
	}
	if b.Multiplier <= 1 {
		b.Multiplier = 2.0
	}
	if b.HealthyAfter <= 0 {
		b.HealthyAfter = 60 * time.Second
	}
}

// TaskFunc is a supervised task. It should run until ctx is cancelled
// or a terminal error occurs.
type TaskFunc func(ctx context.Context) error

// Supervise runs task until ctx is cancelled, restarting it after
// terminal errors on the backoff schedule. It returns ctx.Err() once
// cancelled; task errors are logged, never returned.
func Supervise(ctx context.Context, name string, backoff BackoffConfig, logger *slog.Logger, task TaskFunc) error {
	if logger == nil {
		logger = slog.Default()
	}
	backoff.applyDefaults()

	delay := backoff.InitialDelay

	for {
		started := time.Now()
		err := task(ctx)

		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return ctx.Err()
		}

		uptime := time.Since(started)
		if uptime >= backoff.HealthyAfter {
			delay = backoff.InitialDelay
		}

		logger.Error("supervised task failed, restarting",
			"task", name, "error", err, "uptime", uptime.Truncate(time.Second).String(), "delay", delay.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * backoff.Multiplier)
		if delay > backoff.MaxDelay {
			delay = backoff.MaxDelay
		}
	}
}
