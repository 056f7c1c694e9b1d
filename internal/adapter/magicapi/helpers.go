package magicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"mensajemagico/internal/domain"
)

// maxResponseBody is the maximum buffered response body we read.
const maxResponseBody = 1 << 20 // 1 MB

// maxErrorBody bounds how much of a failed response is read for its message.
const maxErrorBody = 4096

// doJSONRequest performs a JSON POST request and returns the response body.
// Non-2xx responses are returned as *domain.StatusError.
func doJSONRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	httpResp, err := post(ctx, client, url, body, headers, "application/json")
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if !isSuccess(httpResp.StatusCode) {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", transportError(err))
	}
	return respBody, nil
}

// doStreamRequest performs a JSON POST request whose response is a raw text
// stream. It returns the open *http.Response (caller must close Body).
// Non-2xx responses are returned as *domain.StatusError.
func doStreamRequest(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (*http.Response, error) {
	httpResp, err := post(ctx, client, url, body, headers, "text/plain")
	if err != nil {
		return nil, err
	}

	if !isSuccess(httpResp.StatusCode) {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}
	return httpResp, nil
}

func post(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string, accept string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", transportError(err))
	}
	return httpResp, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// transportError tags network timeouts with domain.ErrTimeout. Context
// cancellation is left untouched so callers can match it.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}

// mapHTTPError maps an HTTP status code + response body to a
// *domain.StatusError wrapping the matching sentinel:
//
//	429                           -> ErrOverloaded
//	403, or a quota marker in msg -> ErrUpgradeRequired
//	anything else                 -> ErrProviderError
func mapHTTPError(statusCode int, body []byte) error {
	msg := errorMessage(statusCode, body)

	var sentinel error
	switch {
	case statusCode == http.StatusTooManyRequests:
		sentinel = domain.ErrOverloaded
	case statusCode == http.StatusForbidden || domain.HasQuotaMarker(msg):
		sentinel = domain.ErrUpgradeRequired
	default:
		sentinel = domain.ErrProviderError
	}
	return &domain.StatusError{Status: statusCode, Message: msg, Err: sentinel}
}

// errorMessage returns the "error" field of a JSON body, falling back to the
// status text.
func errorMessage(statusCode int, body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if msg := strings.TrimSpace(payload.Error); msg != "" {
			return msg
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", statusCode)
}
