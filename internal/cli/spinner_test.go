package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinnerStop(t *testing.T) {
	s := newSpinner("Laying out...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if !s.Cancelled() {
		// Stop cancels the spinner's own context.
		t.Error("Cancelled() = false after Stop")
	}
}

func TestSpinnerCancellation(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s := newSpinnerWithContext(ctx, "waiting")
			s.Start()
			time.Sleep(100 * time.Millisecond)

			if !s.Cancelled() {
				t.Error("spinner not cancelled")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("idempotent")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerSetMessage(t *testing.T) {
	s := newSpinner("iteration 0")
	s.Start()
	s.SetMessage("iteration 100")
	if got := s.Message(); got != "iteration 100" {
		t.Errorf("Message() = %q", got)
	}
	time.Sleep(100 * time.Millisecond)
	s.StopWithSuccess("done")
}
