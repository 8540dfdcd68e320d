package tasks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

const (
	DefaultMaxRetries = 3
	DefaultMaxDelay   = 30 * time.Second

	// upper bound on a server-requested wait
	maxRetryAfter = 2 * time.Minute
)

// RetryPolicy retries transient failures with exponential backoff. Any other
// error is returned immediately.
type RetryPolicy struct {
	MaxRetries int
	MaxDelay   time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: DefaultMaxRetries,
		MaxDelay:   DefaultMaxDelay,
		Sleep:      sleepContext,
	}
}

func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	for retryCount := 0; ; retryCount++ {
		err := fn(ctx)
		if err == nil || !modlog.IsTransient(err) || retryCount >= p.MaxRetries {
			return err
		}

		delay := p.Delay(retryCount+1, err)
		slog.Warn("Transient failure, retry scheduled", "op", op, "retry_count", retryCount+1, "max_retries", p.MaxRetries, "delay", delay.String(), "error", err)

		sleep := p.Sleep
		if sleep == nil {
			sleep = sleepContext
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// Delay is 1s, 2s, 4s ... capped at MaxDelay, or the server's Retry-After hint
// when that is longer.
func (p RetryPolicy) Delay(retryCount int, err error) time.Duration {
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	var te *modlog.TransientError
	if errors.As(err, &te) && te.RetryAfter > delay {
		delay = min(te.RetryAfter, maxRetryAfter)
	}

	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
