package connectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func fail(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

func TestCall_ReturnsValue(t *testing.T) {
	cb := NewBreaker("test")

	out, err := Call(cb, func() (string, error) { return "rows", nil })
	require.NoError(t, err)
	assert.Equal(t, "rows", out)
}

func TestCall_OpensAfterSourceFailures(t *testing.T) {
	cb := NewBreaker("test")
	boom := errors.New("connection reset")

	for i := 0; i < 5; i++ {
		_, err := Call(cb, fail(boom))
		require.ErrorIs(t, err, boom)
	}

	_, err := Call(cb, func() (string, error) { return "rows", nil })
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCall_CallerErrorsKeepBreakerClosed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"canceled", context.Canceled},
		{"deadline", fmt.Errorf("run report: %w", context.DeadlineExceeded)},
		{"invalid argument", &googleapi.Error{Code: http.StatusBadRequest, Message: "incompatible dimensions"}},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewBreaker("test")
			for i := 0; i < 10; i++ {
				_, err := Call(cb, fail(tt.err))
				require.Error(t, err)
				require.NotErrorIs(t, err, ErrUnavailable)
			}

			out, err := Call(cb, func() (string, error) { return "rows", nil })
			require.NoError(t, err)
			assert.Equal(t, "rows", out)
		})
	}
}

func TestIsSourceFailure(t *testing.T) {
	assert.False(t, IsSourceFailure(nil))
	assert.False(t, IsSourceFailure(context.Canceled))
	assert.False(t, IsSourceFailure(&googleapi.Error{Code: http.StatusNotFound}))
	assert.True(t, IsSourceFailure(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, IsSourceFailure(&googleapi.Error{Code: http.StatusServiceUnavailable}))
	assert.True(t, IsSourceFailure(errors.New("dial tcp: connection refused")))
}
