package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Category sentinels.
var (
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrLimitReached  = fmt.Errorf("limit reached")
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the generation core.
var (
	ErrOffensiveContent    = fmt.Errorf("%w: offensive content", ErrInvalidInput)
	ErrTooManyContextWords = fmt.Errorf("%w: too many context words", ErrInvalidInput)
	ErrUnknownTone         = fmt.Errorf("%w: unknown tone", ErrInvalidInput)
	ErrMissingField        = fmt.Errorf("%w: missing required field", ErrInvalidInput)
	ErrConfigLoad          = fmt.Errorf("failed to load configuration")

	// Upstream errors.
	ErrUpgradeRequired   = fmt.Errorf("plan limit reached, upgrade required")
	ErrOverloaded        = fmt.Errorf("generation service overloaded")
	ErrCircuitOpen       = fmt.Errorf("%w: circuit open", ErrOverloaded)
	ErrStreamInterrupted = fmt.Errorf("generation stream interrupted")
	ErrEmptyResponse     = fmt.Errorf("%w: empty generation", ErrProviderError)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Orchestrator.Generate")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// StatusError is an upstream failure that carries the HTTP status of the
// response that produced it. Message is safe to show to end users.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d: %s", e.Status, e.Err)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// StatusOf extracts the HTTP status attached to err, or 0 when there is none.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// quotaMarkers identify plan exhaustion in upstream error messages.
var quotaMarkers = []string{"límite", "limit"}

// HasQuotaMarker reports whether msg carries a plan exhaustion marker.
func HasQuotaMarker(msg string) bool {
	lower := strings.ToLower(msg)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrOverloaded) || errors.Is(err, ErrTimeout)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeOffensiveContent  ErrorCode = "OFFENSIVE_CONTENT"
	CodeTooManyWords      ErrorCode = "TOO_MANY_CONTEXT_WORDS"
	CodeUnknownTone       ErrorCode = "UNKNOWN_TONE"
	CodeMissingField      ErrorCode = "MISSING_FIELD"
	CodeLimitReached      ErrorCode = "LIMIT_REACHED"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeProviderError     ErrorCode = "PROVIDER_ERROR"
	CodeEmptyResponse     ErrorCode = "EMPTY_RESPONSE"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeUpgradeRequired   ErrorCode = "UPGRADE_REQUIRED"
	CodeOverloaded        ErrorCode = "OVERLOADED"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeStreamInterrupted ErrorCode = "STREAM_INTERRUPTED"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
// More specific sentinels are listed in errorCodeOrder before the categories
// they wrap.
var errorCodeMap = map[error]ErrorCode{
	ErrInvalidInput:        CodeInvalidInput,
	ErrOffensiveContent:    CodeOffensiveContent,
	ErrTooManyContextWords: CodeTooManyWords,
	ErrUnknownTone:         CodeUnknownTone,
	ErrMissingField:        CodeMissingField,
	ErrLimitReached:        CodeLimitReached,
	ErrTimeout:             CodeTimeout,
	ErrProviderError:       CodeProviderError,
	ErrEmptyResponse:       CodeEmptyResponse,
	ErrConfigLoad:          CodeConfigLoad,
	ErrUpgradeRequired:     CodeUpgradeRequired,
	ErrOverloaded:          CodeOverloaded,
	ErrCircuitOpen:         CodeCircuitOpen,
	ErrStreamInterrupted:   CodeStreamInterrupted,
}

var errorCodeOrder = []error{
	ErrOffensiveContent,
	ErrTooManyContextWords,
	ErrUnknownTone,
	ErrMissingField,
	ErrCircuitOpen,
	ErrEmptyResponse,
	ErrUpgradeRequired,
	ErrOverloaded,
	ErrStreamInterrupted,
	ErrConfigLoad,
	ErrLimitReached,
	ErrTimeout,
	ErrInvalidInput,
	ErrProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	for _, sentinel := range errorCodeOrder {
		if errors.Is(err, sentinel) {
			return errorCodeMap[sentinel]
		}
	}
	return CodeUnknown
}

