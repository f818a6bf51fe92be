package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/ChainIngestor/internal/clock"
	"github.com/goran-ethernal/ChainIngestor/pkg/config"
)

// retryableError checks if an error should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, s := range transientMessages {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// transientMessages are substrings of provider errors worth retrying.
var transientMessages = []string{
	// timeouts
	"timeout",
	"deadline exceeded",
	// rate limiting
	"429",
	"too many requests",
	"rate limit",
	// temporary server errors
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	// node lagging behind the load balancer
	"header not found",
	"unknown block",
	// connection pool exhausted
	"connection pool",
	"no available connection",
}

// retrier runs RPC calls with exponential backoff.
type retrier struct {
	cfg   *config.RetryConfig
	clock clock.Clock
}

// do executes fn until it succeeds, fails with a non-retryable error, runs out
// of attempts or ctx is done. A nil config executes fn once.
func (r retrier) do(ctx context.Context, operation string, fn func() error) error {
	if r.cfg == nil {
		return fn()
	}

	var lastErr error
	start := r.clock.Now()

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if wait := r.cfg.Backoff(attempt); wait > 0 {
			select {
			case <-r.clock.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w",
					attempt, r.cfg.MaxAttempts, ctx.Err())
			}
			rpcRetryInc(operation)
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, r.cfg.MaxAttempts, err)
		}
	}

	return fmt.Errorf("all %d attempts failed after %v (last error: %w)",
		r.cfg.MaxAttempts, r.clock.Now().Sub(start).Round(time.Millisecond), lastErr)
}
