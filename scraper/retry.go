// scraper/retry.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gewnthar/ulsync/logging"
)

// RetryPolicy bounds how often a network operation is attempted.
type RetryPolicy struct {
	Attempts   int           // total attempts, at least 1
	Backoff    time.Duration // wait before the second attempt, doubled afterwards
	MaxBackoff time.Duration
}

const defaultMaxBackoff = time.Minute

// permanentError marks a failure that retrying cannot fix (e.g. HTTP 404).
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// statusError converts an unexpected HTTP status into an error, permanent
// for client errors other than timeouts and rate limiting.
func statusError(url string, code int) error {
	err := fmt.Errorf("unexpected status %d from %s", code, url)
	if code >= 400 && code < 500 && code != http.StatusRequestTimeout && code != http.StatusTooManyRequests {
		return permanent(err)
	}
	return err
}

// Do runs fn until it succeeds, returns a permanent error, the context is
// done, or the attempts are used up. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	maxBackoff := p.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	wait := p.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) || ctx.Err() != nil {
			return err
		}
		if attempt == attempts {
			break
		}
		logging.FromContext(ctx).Warn("attempt failed, retrying",
			"op", op, "attempt", attempt, "of", attempts, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w (last error: %v)", op, ctx.Err(), err)
		case <-timer.C:
		}
		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
}
