package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// BreakerVerifier stops calling a failing identity provider for a while.
// Rejected tokens count as successful calls and never open the breaker.
type BreakerVerifier struct {
	next Verifier
	cb   *gobreaker.CircuitBreaker[*Identity]
}

func NewBreakerVerifier(next Verifier, settings BreakerSettings, log *slog.Logger) *BreakerVerifier {
	if log == nil {
		log = slog.Default()
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cbSettings := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("identity provider breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidToken)
		},
	}

	return &BreakerVerifier{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Identity](cbSettings),
	}
}

func (v *BreakerVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	identity, err := v.cb.Execute(func() (*Identity, error) {
		return v.next.Verify(ctx, rawToken)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return identity, nil
}

func (v *BreakerVerifier) State() gobreaker.State {
	return v.cb.State()
}
