package connwatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2.0,
		HealthyAfter: time.Hour,
	}
}

func TestSupervise_RestartsFailedTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, "test", fastBackoff(), discardLogger(), func(context.Context) error {
			runs++
			if runs == 3 {
				cancel()
				return context.Canceled
			}
			return errors.New("boom")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Supervise() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Supervise() did not return")
	}

	if runs != 3 {
		t.Errorf("task ran %d times, want 3", runs)
	}
}

func TestSupervise_StopsOnCancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	backoff := fastBackoff()
	backoff.InitialDelay = time.Hour // park in the delay

	done := make(chan error, 1)
	go func() {
		done <- Supervise(ctx, "test", backoff, discardLogger(), func(context.Context) error {
			return errors.New("boom")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Supervise() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Supervise() did not return after cancel")
	}
}

func TestBackoffConfig_Defaults(t *testing.T) {
	var b BackoffConfig
	b.applyDefaults()

	want := DefaultBackoffConfig()
	if b != want {
		t.Errorf("applyDefaults() = %#v, want %#v", b, want)
	}
}
