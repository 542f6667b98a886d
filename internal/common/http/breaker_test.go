package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker[string]("genai:test", BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, nil, nil)
	upstream := errors.New("503")

	calls := 0
	fail := func() (string, error) {
		calls++
		return "", upstream
	}

	_, err := b.Execute(fail)
	assert.ErrorIs(t, err, upstream)
	_, err = b.Execute(fail)
	assert.ErrorIs(t, err, upstream)

	_, err = b.Execute(fail)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", b.State())
}

func TestBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	b := NewBreaker[int]("embed:test", BreakerConfig{MaxFailures: 1}, nil, func(err error) bool {
		return errors.Is(err, context.Canceled)
	})

	for i := 0; i < 3; i++ {
		_, err := b.Execute(func() (int, error) { return 0, context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())

	v, err := b.Execute(func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

type recordingLogger struct{ msgs []string }

func (r *recordingLogger) Warn(msg string, _ map[string]interface{}) { r.msgs = append(r.msgs, msg) }

func TestBreaker_LogsStateChanges(t *testing.T) {
	log := &recordingLogger{}
	b := NewBreaker[string]("genai:log", BreakerConfig{MaxFailures: 1, OpenTimeout: time.Minute}, log, nil)

	_, _ = b.Execute(func() (string, error) { return "", errors.New("boom") })
	assert.Equal(t, []string{"circuit breaker state change"}, log.msgs)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(5*time.Second, PoolConfig{})
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.NotNil(t, c.Transport)
}
