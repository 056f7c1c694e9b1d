package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"mensajemagico/internal/domain"
)

// ErrorCategory indicates whether an error is retryable or permanent.
type ErrorCategory int

const (
	ErrorCategoryUnknown   ErrorCategory = iota
	ErrorCategoryRetryable               // 429, 5xx, open circuit, connection errors
	ErrorCategoryPermanent               // plan exhaustion, other 4xx, cancellation
)

// ClassifiedError holds the result of error classification.
type ClassifiedError struct {
	Original   error
	Category   ErrorCategory
	Kind       domain.FailureKind
	Sentinel   error // matched domain sentinel, or nil
	StatusCode int   // HTTP status of the failed response, or 0
}

// ErrorClassifier maps errors from the generation endpoint to failure kinds.
type ErrorClassifier struct{}

// NewErrorClassifier creates a new classifier.
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// Classify inspects an error returned by a domain.MagicClient.
func (c *ErrorClassifier) Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{}
	}

	status := domain.StatusOf(err)
	if ce := c.classifyBySentinel(err); ce.Category != ErrorCategoryUnknown {
		ce.StatusCode = status
		return ce
	}
	if status != 0 {
		return c.classifyByStatus(err, status)
	}
	return c.classifyByString(err)
}

// classifyBySentinel checks if the error wraps a known domain sentinel.
// Order matters: ErrCircuitOpen wraps ErrOverloaded.
func (c *ErrorClassifier) classifyBySentinel(err error) ClassifiedError {
	switch {
	case errors.Is(err, context.Canceled):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryPermanent,
			Kind: domain.FailureCancelled, Sentinel: context.Canceled,
		}
	case errors.Is(err, domain.ErrUpgradeRequired):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryPermanent,
			Kind: domain.FailureUpgradeRequired, Sentinel: domain.ErrUpgradeRequired,
		}
	case errors.Is(err, domain.ErrCircuitOpen):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureOverloaded, Sentinel: domain.ErrCircuitOpen,
		}
	case errors.Is(err, domain.ErrOverloaded):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureOverloaded, Sentinel: domain.ErrOverloaded,
		}
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureNetwork, Sentinel: domain.ErrTimeout,
		}
	case errors.Is(err, domain.ErrStreamInterrupted):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureNetwork, Sentinel: domain.ErrStreamInterrupted,
		}
	case errors.Is(err, domain.ErrEmptyResponse):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureUnknown, Sentinel: domain.ErrEmptyResponse,
		}
	default:
		return ClassifiedError{Original: err, Category: ErrorCategoryUnknown}
	}
}

func (c *ErrorClassifier) classifyByStatus(err error, code int) ClassifiedError {
	switch {
	case code == http.StatusTooManyRequests:
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureOverloaded, Sentinel: domain.ErrOverloaded, StatusCode: code,
		}
	case code == http.StatusForbidden || domain.HasQuotaMarker(err.Error()):
		return ClassifiedError{
			Original: err, Category: ErrorCategoryPermanent,
			Kind: domain.FailureUpgradeRequired, Sentinel: domain.ErrUpgradeRequired, StatusCode: code,
		}
	case code >= 500 && code < 600:
		return ClassifiedError{
			Original: err, Category: ErrorCategoryRetryable,
			Kind: domain.FailureUnknown, Sentinel: domain.ErrProviderError, StatusCode: code,
		}
	default:
		return ClassifiedError{
			Original: err, Category: ErrorCategoryPermanent,
			Kind: domain.FailureUnknown, Sentinel: domain.ErrProviderError, StatusCode: code,
		}
	}
}

// networkPatterns identify transport failures that carry no sentinel.
var networkPatterns = []string{
	"connection refused", "no such host", "timeout",
	"connection reset", "network is unreachable", "eof",
}

func (c *ErrorClassifier) classifyByString(err error) ClassifiedError {
	if domain.HasQuotaMarker(err.Error()) {
		return ClassifiedError{
			Original: err, Category: ErrorCategoryPermanent,
			Kind: domain.FailureUpgradeRequired, Sentinel: domain.ErrUpgradeRequired,
		}
	}
	lower := strings.ToLower(err.Error())
	for _, p := range networkPatterns {
		if strings.Contains(lower, p) {
			return ClassifiedError{
				Original: err, Category: ErrorCategoryRetryable, Kind: domain.FailureNetwork,
			}
		}
	}
	return ClassifiedError{Original: err, Category: ErrorCategoryUnknown, Kind: domain.FailureUnknown}
}
