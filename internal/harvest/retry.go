package harvest

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"
)

// retryConfig mirrors the teacher's callWithRetry shape in
// internal/compact/haiku.go: a bounded exponential backoff loop that
// classifies errors as retryable or terminal before giving up.
type retryConfig struct {
	maxRetries     int
	initialBackoff time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{maxRetries: 3, initialBackoff: 250 * time.Millisecond}
}

// doWithRetry issues req via client, retrying on transient failures
// (timeouts, 429, 5xx) with exponential backoff. Cancellation is
// propagated and never retried.
func doWithRetry(ctx context.Context, client *http.Client, req *http.Request, cfg retryConfig) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(float64(cfg.initialBackoff) * math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err == nil && !isRetryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err == nil {
			resp.Body.Close()
			lastErr = errTransient(resp.StatusCode)
		} else {
			lastErr = err
		}

		if !isRetryable(err) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func isRetryable(err error) bool {
	if err == nil {
		return true // a retryable HTTP status, not a transport error
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

type httpStatusError int

func errTransient(status int) error { return httpStatusError(status) }

func (e httpStatusError) Error() string {
	return http.StatusText(int(e))
}
