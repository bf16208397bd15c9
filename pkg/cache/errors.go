package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks backend failures worth retrying: timeouts, dropped
// connections and server restarts.
var ErrUnavailable = errors.New("cache backend unavailable")

// Shape of [RetryWithBackoff]; variables so tests can shorten the delay.
var (
	retryAttempts = 3
	retryDelay    = 200 * time.Millisecond
)

// retryable flags an error as transient. Its message is the wrapped one.
type retryable struct{ error }

func (r retryable) Unwrap() error { return r.error }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryable{err}
}

// IsRetryable reports whether err, or anything it wraps, was marked with
// [Retryable].
func IsRetryable(err error) bool {
	var r retryable
	return errors.As(err, &r)
}

// RetryWithBackoff calls fn up to retryAttempts times. It stops early on
// success, on an error that is not [Retryable], or when ctx is done. The
// pause between calls starts at retryDelay and doubles.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}
