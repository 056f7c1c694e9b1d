package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"mensajemagico/internal/domain"
)

func TestClassifyNilError(t *testing.T) {
	c := NewErrorClassifier()
	got := c.Classify(nil)
	if got.Category != ErrorCategoryUnknown {
		t.Errorf("Category = %d, want Unknown", got.Category)
	}
	if got.Original != nil {
		t.Errorf("Original = %v, want nil", got.Original)
	}
}

func TestClassifyRateLimit429(t *testing.T) {
	c := NewErrorClassifier()
	err := &domain.StatusError{Status: http.StatusTooManyRequests, Message: "slow down", Err: domain.ErrOverloaded}
	got := c.Classify(err)

	if got.Category != ErrorCategoryRetryable {
		t.Errorf("Category = %d, want Retryable", got.Category)
	}
	if got.Kind != domain.FailureOverloaded {
		t.Errorf("Kind = %s, want overloaded", got.Kind)
	}
	if !errors.Is(got.Sentinel, domain.ErrOverloaded) {
		t.Errorf("Sentinel = %v, want ErrOverloaded", got.Sentinel)
	}
	if got.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", got.StatusCode)
	}
}

func TestClassifyUpgradeRequired(t *testing.T) {
	c := NewErrorClassifier()
	err := fmt.Errorf("generate: %w", &domain.StatusError{Status: http.StatusForbidden, Err: domain.ErrUpgradeRequired})
	got := c.Classify(err)

	if got.Category != ErrorCategoryPermanent {
		t.Errorf("Category = %d, want Permanent", got.Category)
	}
	if got.Kind != domain.FailureUpgradeRequired {
		t.Errorf("Kind = %s, want upgrade_required", got.Kind)
	}
	if got.StatusCode != 403 {
		t.Errorf("StatusCode = %d, want 403", got.StatusCode)
	}
}

func TestClassifyCircuitOpen(t *testing.T) {
	c := NewErrorClassifier()
	got := c.Classify(fmt.Errorf("%w: %w", domain.ErrCircuitOpen, errors.New("circuit breaker is open")))

	if got.Kind != domain.FailureOverloaded {
		t.Errorf("Kind = %s, want overloaded", got.Kind)
	}
	if !errors.Is(got.Sentinel, domain.ErrCircuitOpen) {
		t.Errorf("Sentinel = %v, want ErrCircuitOpen", got.Sentinel)
	}
	if got.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", got.StatusCode)
	}
}

func TestClassifyServerError(t *testing.T) {
	c := NewErrorClassifier()
	got := c.Classify(&domain.StatusError{Status: http.StatusBadGateway, Err: domain.ErrProviderError})

	if got.Category != ErrorCategoryRetryable {
		t.Errorf("Category = %d, want Retryable", got.Category)
	}
	if got.Kind != domain.FailureUnknown {
		t.Errorf("Kind = %s, want unknown", got.Kind)
	}
	if !errors.Is(got.Sentinel, domain.ErrProviderError) {
		t.Errorf("Sentinel = %v, want ErrProviderError", got.Sentinel)
	}
}

func TestClassifyBadRequest400(t *testing.T) {
	c := NewErrorClassifier()
	got := c.Classify(&domain.StatusError{Status: http.StatusBadRequest, Err: domain.ErrProviderError})

	if got.Category != ErrorCategoryPermanent {
		t.Errorf("Category = %d, want Permanent", got.Category)
	}
	if got.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want 400", got.StatusCode)
	}
}

func TestClassifyNetworkErrors(t *testing.T) {
	c := NewErrorClassifier()
	errs := []error{
		domain.ErrTimeout,
		context.DeadlineExceeded,
		fmt.Errorf("post: %w", domain.ErrTimeout),
		errors.New("dial tcp 127.0.0.1:3000: connect: connection refused"),
		errors.New("lookup api.example: no such host"),
		fmt.Errorf("%w: %w", domain.ErrStreamInterrupted, errors.New("unexpected EOF")),
	}
	for _, err := range errs {
		got := c.Classify(err)
		if got.Kind != domain.FailureNetwork {
			t.Errorf("Classify(%v).Kind = %s, want network", err, got.Kind)
		}
		if got.Category != ErrorCategoryRetryable {
			t.Errorf("Classify(%v).Category = %d, want Retryable", err, got.Category)
		}
	}
}

func TestClassifyCancelled(t *testing.T) {
	c := NewErrorClassifier()
	got := c.Classify(fmt.Errorf("do: %w", context.Canceled))

	if got.Kind != domain.FailureCancelled {
		t.Errorf("Kind = %s, want cancelled", got.Kind)
	}
	if got.Category != ErrorCategoryPermanent {
		t.Errorf("Category = %d, want Permanent", got.Category)
	}
}

func TestClassifyUnknownError(t *testing.T) {
	c := NewErrorClassifier()
	got := c.Classify(errors.New("something odd"))

	if got.Category != ErrorCategoryUnknown {
		t.Errorf("Category = %d, want Unknown", got.Category)
	}
	if got.Kind != domain.FailureUnknown {
		t.Errorf("Kind = %s, want unknown", got.Kind)
	}
	if got.Sentinel != nil {
		t.Errorf("Sentinel = %v, want nil", got.Sentinel)
	}
}

func TestClassifyUpgradeWithoutSentinel(t *testing.T) {
	c := NewErrorClassifier()
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"plain 403", &domain.StatusError{Status: http.StatusForbidden, Err: errors.New("forbidden")}, 403},
		{"spanish marker", errors.New("Has alcanzado el límite de tu plan"), 0},
		{"english marker", errors.New("daily limit exceeded"), 0},
	}
	for _, tt := range tests {
		got := c.Classify(tt.err)
		if got.Kind != domain.FailureUpgradeRequired {
			t.Errorf("%s: Kind = %s, want upgrade_required", tt.name, got.Kind)
		}
		if got.Category != ErrorCategoryPermanent {
			t.Errorf("%s: Category = %d, want Permanent", tt.name, got.Category)
		}
		if got.StatusCode != tt.status {
			t.Errorf("%s: StatusCode = %d, want %d", tt.name, got.StatusCode, tt.status)
		}
	}
}

func TestClassify429WithLimitMarkerIsOverload(t *testing.T) {
	c := NewErrorClassifier()
	err := &domain.StatusError{Status: http.StatusTooManyRequests, Message: "rate limit exceeded", Err: errors.New("slow down")}
	if got := c.Classify(err); got.Kind != domain.FailureOverloaded {
		t.Errorf("Kind = %s, want overloaded", got.Kind)
	}
}
