package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// callTimeout bounds every single platform API call.
const callTimeout = 8 * time.Second

// client is the shared outbound HTTP plumbing for all platform adapters.
type client struct {
	httpClient *http.Client
	userAgent  string
}

func newClient(httpClient *http.Client, userAgent string) *client {
	return &client{httpClient: httpClient, userAgent: userAgent}
}

// postJSON sends a bearer-authenticated JSON request and decodes the JSON
// response into out. Non-2xx responses become an *APIError with a truncated
// body snippet.
func (c *client) postJSON(ctx context.Context, platformKey, endpoint, accessToken string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	return c.do(ctx, platformKey, http.MethodPost, endpoint, accessToken, "application/json", bytes.NewReader(body), out)
}

// postForm sends a bearer-authenticated form-encoded request.
func (c *client) postForm(ctx context.Context, platformKey, endpoint, accessToken string, form url.Values, out any) error {
	return c.do(ctx, platformKey, http.MethodPost, endpoint, accessToken, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), out)
}

// getJSON sends a bearer-authenticated GET request.
func (c *client) getJSON(ctx context.Context, platformKey, endpoint, accessToken string, out any) error {
	return c.do(ctx, platformKey, http.MethodGet, endpoint, accessToken, "", nil, out)
}

func (c *client) do(ctx context.Context, platformKey, method, endpoint, accessToken, contentType string, body io.Reader, out any) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Platform: platformKey, Status: http.StatusBadGateway, Message: Truncate(err.Error(), 200)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	if err != nil {
		return &APIError{Platform: platformKey, Status: http.StatusBadGateway, Message: "failed to read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := http.StatusBadGateway
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			status = http.StatusUnauthorized
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			status = http.StatusTooManyRequests
		}
		return &APIError{
			Platform: platformKey,
			Status:   status,
			Message:  fmt.Sprintf("HTTP %d: %s", resp.StatusCode, Truncate(string(data), 200)),
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{Platform: platformKey, Message: "failed to parse response body"}
		}
	}

	return nil
}

// Truncate shortens s for logs and error messages. Platform error bodies are
// never propagated whole.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
