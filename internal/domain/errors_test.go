package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Orchestrator.Generate", ErrUnknownTone, `tone "épico"`)
	want := `Orchestrator.Generate: tone "épico": invalid input: unknown tone`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Client.Generate", ErrEmptyResponse, "")
	want := "Client.Generate: provider error: empty generation"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Validate", ErrOffensiveContent, "context word")
	if !errors.Is(err, ErrOffensiveContent) {
		t.Error("errors.Is should match ErrOffensiveContent")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is should match the ErrInvalidInput category")
	}
}

func TestDomainErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDomainError("Client.OpenStream", ErrOverloaded, ""))
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("errors.As should match *DomainError")
	}
	if de.Op != "Client.OpenStream" {
		t.Errorf("Op = %q, want %q", de.Op, "Client.OpenStream")
	}
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))

	err := WrapOp("Cache.Store", ErrInvalidInput)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "Cache.Store: invalid input", err.Error())
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Status: 429, Message: "busy", Err: ErrOverloaded}
	assert.Equal(t, "status 429: busy", err.Error())
	assert.ErrorIs(t, err, ErrOverloaded)
	assert.Equal(t, 429, StatusOf(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))

	bare := &StatusError{Status: 500, Err: ErrProviderError}
	assert.Equal(t, "status 500: provider error", bare.Error())
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(ErrOverloaded))
	assert.True(t, IsRetryableError(ErrCircuitOpen))
	assert.True(t, IsRetryableError(fmt.Errorf("x: %w", ErrTimeout)))
	assert.False(t, IsRetryableError(ErrUpgradeRequired))
	assert.False(t, IsRetryableError(nil))
}

// --- ErrorCode tests ---

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeUpgradeRequired, ErrorCodeOf(ErrUpgradeRequired))
	assert.Equal(t, CodeOverloaded, ErrorCodeOf(ErrOverloaded))
	assert.Equal(t, CodeOffensiveContent, ErrorCodeOf(ErrOffensiveContent))
}

func TestErrorCodeOf_PrefersSpecificSentinel(t *testing.T) {
	assert.Equal(t, CodeCircuitOpen, ErrorCodeOf(fmt.Errorf("x: %w", ErrCircuitOpen)))
	assert.Equal(t, CodeTooManyWords, ErrorCodeOf(NewDomainError("Validate", ErrTooManyContextWords, "")))
	assert.Equal(t, CodeEmptyResponse, ErrorCodeOf(&StatusError{Status: 200, Err: ErrEmptyResponse}))
}

func TestErrorCodeOf_Unknown(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(errors.New("something else")))
}

