// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
)

// ErrMaxAttemptsExceeded is returned when every attempt failed
var ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")

// Do calls fn until it succeeds, ctx is done, or attempts run out.
// fn receives the 1-based attempt number. There is no delay between attempts.
// The returned error wraps both ErrMaxAttemptsExceeded and the last failure.
func Do(ctx context.Context, attempts int, fn func(attempt int) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, attempts, lastErr)
}
