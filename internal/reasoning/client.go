// Package reasoning is the adapter between the orchestrator and the
// reasoning (LLM) service.
//
// A Client wraps a single provider Driver and owns the retry policy: only
// rate-limit failures are retried, with an exponential delay that depends
// solely on the attempt number of that call. Every other error is returned
// to the caller on the first occurrence.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/spikeai/spike/backend/pkg/models"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxTokens  = 3000
)

var tracer = otel.Tracer("spike-backend/reasoning")

// Completer is the reasoning boundary consumed by agents and orchestrators.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage, temperature float64) (string, error)
}

// Request is a single provider call.
type Request struct {
	Messages    []models.ChatMessage
	Temperature float64
	MaxTokens   int
}

// Driver sends exactly one request to a provider. Drivers must report
// provider throttling as a *RateLimitError so the Client can retry it.
type Driver interface {
	Name() string
	Send(ctx context.Context, req Request) (string, error)
}

// Client implements Completer on top of a Driver.
type Client struct {
	driver     Driver
	maxRetries int
	baseDelay  time.Duration
	maxTokens  int
	limiter    *rate.Limiter
	onRetry    func(attempt int, delay time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets the total number of attempts per call.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseDelay sets the delay before the second attempt; later delays double.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithRateLimit throttles outbound calls process-wide to rps requests per
// second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithRetryNotify registers a hook invoked before each backoff sleep.
// attempt is zero-based and refers to the attempt that was rate-limited.
func WithRetryNotify(fn func(attempt int, delay time.Duration)) Option {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient creates a reasoning client for the given driver.
func NewClient(d Driver, opts ...Option) *Client {
	c := &Client{
		driver:     d,
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxTokens:  DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends messages to the reasoning service and returns the raw text.
//
// Rate-limited attempts are retried up to the configured budget, sleeping
// base*2^attempt between attempts. When the budget is spent the returned
// error wraps ErrExhaustedRetries. Any other failure is returned immediately.
func (c *Client) Complete(ctx context.Context, messages []models.ChatMessage, temperature float64) (string, error) {
	ctx, span := tracer.Start(ctx, "reasoning.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("reasoning.provider", c.driver.Name()),
		attribute.Float64("reasoning.temperature", temperature),
	)

	req := Request{Messages: messages, Temperature: temperature, MaxTokens: c.maxTokens}

	attempt := 0
	var text string
	op := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		out, err := c.driver.Send(ctx, req)
		if err != nil {
			if IsRateLimit(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		text = out
		return nil
	}

	notify := func(err error, d time.Duration) {
		log.Warn().
			Str("provider", c.driver.Name()).
			Int("attempt", attempt+1).
			Int("max_attempts", c.maxRetries).
			Dur("delay", d).
			Msg("Reasoning service rate limited, backing off")
		if c.onRetry != nil {
			c.onRetry(attempt, d)
		}
		attempt++
	}

	err := backoff.RetryNotify(op, c.policy(ctx), notify)
	span.SetAttributes(attribute.Int("reasoning.attempts", attempt+1))
	if err != nil {
		if IsRateLimit(err) {
			err = fmt.Errorf("%w: %d attempts rate limited: %v", ErrExhaustedRetries, c.maxRetries, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}

// policy builds a fresh, per-call backoff: base, 2*base, 4*base, ...
// with no jitter and no elapsed-time cap.
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.baseDelay << uint(c.maxRetries)
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries-1)), ctx)
}

// ── Errors ───────────────────────────────────────────────────

// ErrExhaustedRetries is returned when every attempt of a call was rate limited.
var ErrExhaustedRetries = errors.New("reasoning: exhausted retries")

// RateLimitError reports provider throttling (HTTP 429 or equivalent).
type RateLimitError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimit reports whether err is, or wraps, a *RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
