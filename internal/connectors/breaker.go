// Package connectors holds the data-source clients used by the agents and
// the circuit breaker shared by all of them.
package connectors

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
)

// ErrUnavailable is returned while a connector's breaker is open.
var ErrUnavailable = errors.New("data source temporarily unavailable")

// NewBreaker returns a breaker that opens after five consecutive failures
// and probes again after thirty seconds. Only errors that say the data
// source itself is unhealthy count as failures; see IsSourceFailure.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return !IsSourceFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("connector", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Connector circuit breaker state changed")
		},
	})
}

// IsSourceFailure reports whether err should count against a connector's
// breaker. Caller cancellations and request errors (Google API 4xx other
// than 429) do not.
func IsSourceFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}

// Call runs fn through cb, mapping breaker rejections to ErrUnavailable.
func Call[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrUnavailable
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return out.(T), nil
}
