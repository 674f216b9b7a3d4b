package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around the Provider.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns settings that tolerate short blips.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "gotrue",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// Breaker guards a Provider with a circuit breaker. Caller mistakes (bad
// password, bad token) count as successes; only backend failures trip it.
type Breaker struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps p.
func NewBreaker(p Provider, cfg BreakerConfig, log zerolog.Logger) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})
	return &Breaker{next: p, cb: cb}
}

// State reports the breaker state (closed, half-open, open).
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

func run[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	v, err := b.cb.Execute(func() (any, error) { return fn() })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// SignIn implements Provider.
func (b *Breaker) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return run(b, func() (*Session, error) { return b.next.SignIn(ctx, email, password) })
}

// SignOut implements Provider.
func (b *Breaker) SignOut(ctx context.Context, accessToken string) error {
	_, err := run(b, func() (struct{}, error) { return struct{}{}, b.next.SignOut(ctx, accessToken) })
	return err
}

// User implements Provider.
func (b *Breaker) User(ctx context.Context, accessToken string) (*User, error) {
	return run(b, func() (*User, error) { return b.next.User(ctx, accessToken) })
}

// SignUp implements Provider.
func (b *Breaker) SignUp(ctx context.Context, email, password string, data map[string]any) (*User, error) {
	return run(b, func() (*User, error) { return b.next.SignUp(ctx, email, password, data) })
}
