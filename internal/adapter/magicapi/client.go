// Package magicapi is the HTTP client for the remote generation endpoint.
package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"mensajemagico/internal/domain"
	"mensajemagico/internal/infra/config"
	"mensajemagico/internal/infra/tracer"
)

// Endpoint paths, relative to the configured base URL.
const (
	GeneratePath = "/api/magic/generate"
	StreamPath   = "/api/magic/generate-stream"
)

// RequestIDHeader carries a ULID per upstream call for log correlation.
const RequestIDHeader = "X-Request-ID"

// Client implements domain.MagicClient over HTTP.
type Client struct {
	baseURL   string
	client    *http.Client
	creds     domain.CredentialSource
	limiter   *rate.Limiter      // nil = unlimited
	validator *responseValidator // nil = no contract check
	logger    *slog.Logger
}

// NewClient creates a client from cfg. When creds is nil the configured
// auth token is used as a static credential.
func NewClient(cfg config.APIConfig, creds domain.CredentialSource, logger *slog.Logger) (*Client, error) {
	if creds == nil {
		creds = domain.StaticCredential(cfg.AuthToken)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  NewHTTPClient(cfg),
		creds:   creds,
		logger:  logger,
	}

	if cfg.RequestsPerMinute > 0 {
		burst := max(cfg.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute)/60.0, burst)
	}

	if cfg.ValidateResponses {
		v, err := newResponseValidator()
		if err != nil {
			return nil, err
		}
		c.validator = v
	}
	return c, nil
}

// generateResponse is the wire shape of a buffered success body.
type generateResponse struct {
	Text             string   `json:"text"`
	Result           string   `json:"result"`
	RemainingCredits *float64 `json:"remaining_credits"`
}

// Generate implements domain.MagicClient.
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerateResponse, error) {
	requestID := newRequestID()
	ctx, span := tracer.StartSpan(ctx, "magicapi.generate",
		trace.WithAttributes(
			tracer.StringAttr("magic.request_id", requestID),
			tracer.StringAttr("magic.occasion", req.Occasion),
		),
	)
	defer span.End()

	body, headers, err := c.prepare(ctx, req, requestID)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	respBody, err := doJSONRequest(ctx, c.client, c.baseURL+GeneratePath, body, headers)
	if err != nil {
		span.SetAttributes(tracer.IntAttr("http.status_code", domain.StatusOf(err)))
		tracer.RecordError(span, err)
		return nil, err
	}

	if c.validator != nil {
		var raw any
		if err := json.Unmarshal(respBody, &raw); err != nil {
			tracer.RecordError(span, err)
			return nil, fmt.Errorf("%w: unmarshal response: %w", domain.ErrProviderError, err)
		}
		if err := c.validator.Validate(raw); err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
	}

	var payload generateResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("%w: unmarshal response: %w", domain.ErrProviderError, err)
	}

	text := strings.TrimSpace(payload.Text)
	if text == "" {
		text = strings.TrimSpace(payload.Result)
	}
	if text == "" {
		tracer.RecordError(span, domain.ErrEmptyResponse)
		return nil, domain.ErrEmptyResponse
	}

	c.logger.Debug("magic generate completed",
		"request_id", requestID,
		"chars", len(text),
		"remaining_credits", payload.RemainingCredits != nil,
	)
	tracer.SetOK(span)
	return &domain.GenerateResponse{Text: text, RemainingCredits: payload.RemainingCredits}, nil
}

// OpenStream implements domain.MagicClient. The returned body yields raw
// UTF-8 bytes as the endpoint produces them.
func (c *Client) OpenStream(ctx context.Context, req domain.GenerationRequest) (io.ReadCloser, error) {
	requestID := newRequestID()
	ctx, span := tracer.StartSpan(ctx, "magicapi.open_stream",
		trace.WithAttributes(
			tracer.StringAttr("magic.request_id", requestID),
			tracer.StringAttr("magic.occasion", req.Occasion),
		),
	)
	defer span.End()

	body, headers, err := c.prepare(ctx, req, requestID)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	resp, err := doStreamRequest(ctx, c.client, c.baseURL+StreamPath, body, headers)
	if err != nil {
		span.SetAttributes(tracer.IntAttr("http.status_code", domain.StatusOf(err)))
		tracer.RecordError(span, err)
		return nil, err
	}

	c.logger.Debug("magic stream opened", "request_id", requestID, "status", resp.StatusCode)
	tracer.SetOK(span)
	return resp.Body, nil
}

// prepare waits for the limiter, then builds the body and headers.
func (c *Client) prepare(ctx context.Context, req domain.GenerationRequest, requestID string) ([]byte, map[string]string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{RequestIDHeader: requestID}
	token, err := c.creds.Token(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load credential: %w", err)
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return body, headers, nil
}

func newRequestID() string {
	return ulid.Make().String()
}

// Compile-time interface check.
var _ domain.MagicClient = (*Client)(nil)
