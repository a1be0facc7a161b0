package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const maxSendAttempts = 3

func defaultBackoff(int) time.Duration {
	return time.Duration(200+rand.Intn(300)) * time.Millisecond
}

// providerError is a non-2xx provider response.
type providerError struct {
	status int
	detail string
}

func (e *providerError) Error() string {
	return e.detail
}

// retryable reports whether another attempt may succeed. Non-rate-limit 4xx
// responses are final.
func retryable(err error) bool {
	var pe *providerError
	if !errors.As(err, &pe) {
		return true
	}
	return pe.status == http.StatusTooManyRequests || pe.status >= 500
}

// postWithRetry sends the request built by newReq up to maxSendAttempts times
// and returns the body of the first 2xx response.
func postWithRetry(
	ctx context.Context,
	client *http.Client,
	backoff func(int) time.Duration,
	newReq func(context.Context) (*http.Request, error),
	formatErr func(status int, body []byte) string,
) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return body, nil
			}
			lastErr = &providerError{status: resp.StatusCode, detail: formatErr(resp.StatusCode, body)}
			if !retryable(lastErr) {
				break
			}
		}

		if attempt < maxSendAttempts {
			wait := backoff(attempt)
			if wait <= 0 {
				continue
			}
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}
	}
	return nil, lastErr
}
