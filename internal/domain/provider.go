package domain

import (
	"context"
	"io"
)

// GenerateResponse is the decoded body of a successful buffered generation.
type GenerateResponse struct {
	Text             string
	RemainingCredits *float64
}

// MagicClient reaches the remote generation endpoint.
type MagicClient interface {
	// Generate performs a buffered request and returns the full response.
	Generate(ctx context.Context, req GenerationRequest) (*GenerateResponse, error)
	// OpenStream starts a streaming request. The caller owns the returned
	// body and must close it. Non-2xx responses are returned as *StatusError.
	OpenStream(ctx context.Context, req GenerationRequest) (io.ReadCloser, error)
}

// CredentialSource supplies the opaque bearer token of the signed-in user.
// An empty token means "no credential stored".
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredential is a CredentialSource backed by a fixed token.
type StaticCredential string

// Token implements CredentialSource.
func (c StaticCredential) Token(context.Context) (string, error) { return string(c), nil }

// ContentFilter classifies text as offensive.
type ContentFilter interface {
	IsOffensive(text string) bool
}
