package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bakerboy448/RedditModLog/app/modlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Delay(t *testing.T) {
	policy := DefaultRetryPolicy()
	plain := &modlog.TransientError{Op: "fetch", Err: errors.New("timeout")}

	tests := []struct {
		name       string
		retryCount int
		err        error
		want       time.Duration
	}{
		{"first retry", 1, plain, time.Second},
		{"second retry", 2, plain, 2 * time.Second},
		{"third retry", 3, plain, 4 * time.Second},
		{"capped", 8, plain, 30 * time.Second},
		{"retry after honored", 1, &modlog.TransientError{Op: "fetch", RetryAfter: 10 * time.Second}, 10 * time.Second},
		{"retry after shorter than backoff", 3, &modlog.TransientError{Op: "fetch", RetryAfter: time.Second}, 4 * time.Second},
		{"retry after bounded", 1, &modlog.TransientError{Op: "fetch", RetryAfter: 10 * time.Minute}, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Delay(tt.retryCount, tt.err))
		})
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	var slept []time.Duration
	policy := RetryPolicy{
		MaxRetries: 3,
		MaxDelay:   30 * time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	calls := 0
	err := policy.Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &modlog.TransientError{Op: "fetch", Err: errors.New("busy")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
}

func TestRetryPolicy_DoesNotRetryPermanentErrors(t *testing.T) {
	policy := noSleepRetry()

	calls := 0
	permanent := &modlog.PermissionError{Op: "write", Err: errors.New("forbidden")}
	err := policy.Do(context.Background(), "write", func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := DefaultRetryPolicy()
	calls := 0
	err := policy.Do(ctx, "fetch", func(ctx context.Context) error {
		calls++
		return &modlog.TransientError{Op: "fetch", Err: errors.New("busy")}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
