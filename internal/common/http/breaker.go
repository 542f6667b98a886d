package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures a circuit breaker in front of an upstream API.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a half-open probe.
	OpenTimeout time.Duration
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration
}

const (
	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerOpenTimeout        = 30 * time.Second
)

// ErrCircuitOpen is returned instead of calling the upstream while the
// breaker is open or saturated in half-open state.
var ErrCircuitOpen = errors.New("circuit open")

// Breaker wraps gobreaker for calls returning T.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// StateLogger receives breaker state transitions.
type StateLogger interface {
	Warn(msg string, fields map[string]interface{})
}

// NewBreaker builds a named breaker. ignore reports errors that must not
// count as upstream failures (e.g. the caller's own context ending).
func NewBreaker[T any](name string, cfg BreakerConfig, log StateLogger, ignore func(error) bool) *Breaker[T] {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerMaxFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout == 0 {
		openTimeout = defaultBreakerOpenTimeout
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return ignore != nil && ignore(err)
		},
	}
	if log != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		}
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn through the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, fmt.Errorf("%s: %w: %v", b.cb.Name(), ErrCircuitOpen, err)
	}
	return out, err
}

// State reports the current breaker state for health endpoints.
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}
