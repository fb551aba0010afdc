package reasoning_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spikeai/spike/backend/internal/reasoning"
	"github.com/spikeai/spike/backend/pkg/models"
)

// scriptedDriver returns the queued errors in order, then "ok".
type scriptedDriver struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) Send(ctx context.Context, req reasoning.Request) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return "", err
	}
	return "ok", nil
}

func rateLimited() error {
	return &reasoning.RateLimitError{Provider: "scripted", StatusCode: 429, Message: "slow down"}
}

func TestComplete_Success(t *testing.T) {
	d := &scriptedDriver{}
	c := reasoning.NewClient(d)

	out, err := c.Complete(context.Background(), []models.ChatMessage{models.UserMessage("hi")}, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 1, d.calls)
}

func TestComplete_RetriesRateLimitThenSucceeds(t *testing.T) {
	d := &scriptedDriver{errs: []error{rateLimited(), rateLimited()}}
	var delays []time.Duration
	c := reasoning.NewClient(d,
		reasoning.WithBaseDelay(time.Millisecond),
		reasoning.WithRetryNotify(func(attempt int, delay time.Duration) { delays = append(delays, delay) }),
	)

	out, err := c.Complete(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, d.calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
}

func TestComplete_ExhaustedRetries(t *testing.T) {
	d := &scriptedDriver{errs: []error{rateLimited(), rateLimited(), rateLimited(), rateLimited()}}
	c := reasoning.NewClient(d, reasoning.WithBaseDelay(time.Millisecond))

	_, err := c.Complete(context.Background(), nil, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, reasoning.ErrExhaustedRetries), "err = %v", err)
	assert.Equal(t, 3, d.calls)
}

func TestComplete_NonRateLimitFailsImmediately(t *testing.T) {
	boom := errors.New("bad request")
	d := &scriptedDriver{errs: []error{boom}}
	c := reasoning.NewClient(d, reasoning.WithBaseDelay(time.Millisecond))

	_, err := c.Complete(context.Background(), nil, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, reasoning.ErrExhaustedRetries))
	assert.Equal(t, 1, d.calls)
}

func TestComplete_BackoffIsPerCall(t *testing.T) {
	d := &scriptedDriver{errs: []error{rateLimited()}}
	var delays []time.Duration
	c := reasoning.NewClient(d,
		reasoning.WithBaseDelay(time.Millisecond),
		reasoning.WithRetryNotify(func(attempt int, delay time.Duration) { delays = append(delays, delay) }),
	)

	_, err := c.Complete(context.Background(), nil, 0)
	require.NoError(t, err)

	d.mu.Lock()
	d.errs = []error{rateLimited()}
	d.mu.Unlock()

	_, err = c.Complete(context.Background(), nil, 0)
	require.NoError(t, err)
	// A second call starts again from the base delay.
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, delays)
}

func TestOpenAIDriver_MapsStatus(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if code := int(status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			w.Write([]byte(`{"error":"nope"}`))
			return
		}
		w.Write([]byte(`{"id":"x","choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	d := reasoning.NewOpenAIDriver(srv.URL, "key", "m", 5*time.Second)

	_, err := d.Send(context.Background(), reasoning.Request{})
	assert.True(t, reasoning.IsRateLimit(err), "429 should map to RateLimitError, got %v", err)

	status.Store(http.StatusInternalServerError)
	_, err = d.Send(context.Background(), reasoning.Request{})
	require.Error(t, err)
	assert.False(t, reasoning.IsRateLimit(err))

	status.Store(http.StatusOK)
	out, err := d.Send(context.Background(), reasoning.Request{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}
