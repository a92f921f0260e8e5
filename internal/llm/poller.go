package llm

import (
	"context"
	"time"

	"adforge/internal/logger"
)

// Poller waits for a long-running media operation to finish. Polling uses a
// fixed interval with no backoff; the attempt budget gives a deterministic
// maximum wait of MaxAttempts * Interval.
type Poller struct {
	media       MediaGenerator
	Interval    time.Duration // Wait between attempts (default 5s)
	MaxAttempts int           // Attempt budget (default 24)

	// sleep is replaceable in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller with the given interval and attempt budget.
// Zero values fall back to 5s and 24 attempts.
func NewPoller(media MediaGenerator, interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 24
	}
	return &Poller{
		media:       media,
		Interval:    interval,
		MaxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Wait polls until the operation completes, fails, or the attempt budget is
// exhausted. Completion with media returns the result; completion without
// media returns ErrNoMedia; exhaustion returns a *PollTimeoutError carrying
// the last-known operation name.
func (p *Poller) Wait(ctx context.Context, handle any) (*MediaResult, error) {
	name := NormalizeHandle(handle)

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		status := p.query(ctx, handle, name)
		if status != nil {
			if status.Name != "" {
				name = status.Name
			}
			if status.Done {
				if status.Media == nil {
					return nil, ErrNoMedia
				}
				return status.Media, nil
			}
		}

		if err := p.sleep(ctx, p.Interval); err != nil {
			return nil, err
		}
	}

	return nil, &PollTimeoutError{OperationName: name, Attempts: p.MaxAttempts}
}

// query performs one status lookup. A lookup failure is retried once within
// the same attempt using the original handle shape; a second failure gives up
// the attempt, not the whole poll.
func (p *Poller) query(ctx context.Context, handle any, name string) *OperationStatus {
	status, err := p.media.GetOperation(ctx, handle, name)
	if err == nil {
		return status
	}

	status, retryErr := p.media.GetOperation(ctx, handle, "")
	if retryErr == nil {
		return status
	}

	logger.Warn("Operation status lookup failed, waiting for next interval",
		"operation", name, "error", err.Error(), "retry_error", retryErr.Error())
	return nil
}
