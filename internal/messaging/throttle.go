package messaging

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// ThrottledSender paces outbound sends so bursts of submissions stay under the
// provider's per-sender throughput limit.
type ThrottledSender struct {
	next    TextSender
	limiter *rate.Limiter
}

// NewThrottledSender wraps next with a token bucket of perSecond sends and the
// given burst. A non-positive rate returns next unchanged.
func NewThrottledSender(next TextSender, perSecond float64, burst int) TextSender {
	if next == nil || perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledSender{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (s *ThrottledSender) SendText(ctx context.Context, to, body string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("messaging: send throttled: %w", err)
	}
	return s.next.SendText(ctx, to, body)
}
