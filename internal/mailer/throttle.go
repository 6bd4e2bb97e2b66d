package mailer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Throttled caps how fast the process hands messages to the relay, so a
// burst of submissions from many callers cannot exhaust the relay's quota.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottled allows perMinute sends with the given burst. perMinute <= 0
// returns next unchanged.
func NewThrottled(next Sender, perMinute, burst int) Sender {
	if perMinute <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Send waits for a slot within ctx's deadline, then delegates.
func (t *Throttled) Send(ctx context.Context, m *Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("relay throttle: %w", err)
	}
	return t.next.Send(ctx, m)
}
