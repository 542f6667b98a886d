package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	calls := 0
	var retried []int

	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("unavailable")
		}
		return nil
	}, func(attempt int, err error) {
		retried = append(retried, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	calls := 0
	opErr := errors.New("unavailable")

	err := Do(context.Background(), fastPolicy(2), func(ctx context.Context) error {
		calls++
		return opErr
	}, nil)

	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	opErr := errors.New("bad request")

	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		calls++
		return &Permanent{Err: opErr}
	}, nil)

	assert.Equal(t, opErr, err)
	assert.Equal(t, 1, calls)
}

func TestDo_DoesNotBackOffPastDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	opErr := errors.New("unavailable")
	p := Policy{MaxRetries: 3, InitialBackoff: time.Second, MaxBackoff: time.Second}

	start := time.Now()
	err := Do(ctx, p, func(ctx context.Context) error {
		calls++
		return opErr
	}, nil)

	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDo_ExpiredContextSkipsCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastPolicy(2), func(ctx context.Context) error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(3))
	assert.Equal(t, 300*time.Millisecond, p.Backoff(10))
}
