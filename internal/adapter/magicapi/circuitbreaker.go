package magicapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"mensajemagico/internal/domain"
	"mensajemagico/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// CircuitBreakerClient wraps a domain.MagicClient with circuit breaker
// protection. When the endpoint fails repeatedly the circuit opens and calls
// fail fast with domain.ErrCircuitOpen without reaching the network.
//
// Only server-side trouble trips the breaker: transport errors, 429 and 5xx.
// Client errors, plan exhaustion and caller cancellation do not.
type CircuitBreakerClient struct {
	inner   domain.MagicClient
	breaker *gobreaker.CircuitBreaker[*domain.GenerateResponse]
	logger  *slog.Logger
}

// NewCircuitBreakerClient wraps inner with a circuit breaker. Zero-valued
// settings fall back to defaults.
func NewCircuitBreakerClient(inner domain.MagicClient, cfg config.CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.GenerateResponse](gobreaker.Settings{
		Name:        "magicapi",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return !tripsBreaker(err)
		},
	})

	return &CircuitBreakerClient{inner: inner, breaker: cb, logger: logger}
}

// tripsBreaker reports whether err counts as an endpoint failure.
func tripsBreaker(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrUpgradeRequired) {
		return false
	}
	status := domain.StatusOf(err)
	if status == 0 {
		// No response: transport failure, timeout, or malformed body.
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}

// Generate implements domain.MagicClient. Calls are routed through the breaker.
func (c *CircuitBreakerClient) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerateResponse, error) {
	resp, err := c.breaker.Execute(func() (*domain.GenerateResponse, error) {
		return c.inner.Generate(ctx, req)
	})
	if err != nil {
		return nil, wrapBreakerError(err)
	}
	return resp, nil
}

// OpenStream implements domain.MagicClient. The breaker protects the initial
// connection; failures while reading the body do not count.
func (c *CircuitBreakerClient) OpenStream(ctx context.Context, req domain.GenerationRequest) (io.ReadCloser, error) {
	var body io.ReadCloser
	_, err := c.breaker.Execute(func() (*domain.GenerateResponse, error) {
		var openErr error
		body, openErr = c.inner.OpenStream(ctx, req)
		return nil, openErr
	})
	if err != nil {
		return nil, wrapBreakerError(err)
	}
	return body, nil
}

func wrapBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err)
	}
	return err
}

// State returns the current circuit breaker state for monitoring.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current circuit breaker failure/success counts.
func (c *CircuitBreakerClient) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// Compile-time interface check.
var _ domain.MagicClient = (*CircuitBreakerClient)(nil)
