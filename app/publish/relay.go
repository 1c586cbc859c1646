package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// relayTimeout is generous relative to direct platform calls: the relay may
// fan the publish out through a workflow before answering.
const relayTimeout = 30 * time.Second

// RelayRequest is what gets handed to the external workflow relay.
type RelayRequest struct {
	ContentID   string `json:"content_id"`
	Platform    string `json:"platform"`
	AccountID   string `json:"account_id"`
	AccessToken string `json:"access_token"`
	Text        string `json:"text"`
	Title       string `json:"title,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Relay hands a publish off to the external automation webhook. It is a
// best-effort first attempt; callers fall through to direct dispatch on any
// failure here.
type Relay struct {
	url        string
	httpClient *http.Client
	userAgent  string
}

func NewRelay(url string, httpClient *http.Client, userAgent string) *Relay {
	return &Relay{url: url, httpClient: httpClient, userAgent: userAgent}
}

// Enabled reports whether a relay endpoint is configured.
func (r *Relay) Enabled() bool {
	return r != nil && r.url != ""
}

// Publish sends the request to the relay and extracts the platform post id
// from whichever of the known response keys is present.
func (r *Relay) Publish(ctx context.Context, req RelayRequest) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode relay request: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, relayTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, Truncate(string(data), 200))
	}

	return &Result{PostID: extractRelayPostID(data)}, nil
}

// extractRelayPostID tolerates the relay's historical response shapes: the
// post id has shipped under several keys depending on the workflow template.
func extractRelayPostID(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	for _, key := range []string{"post_id", "postId", "id", "url", "post_url"} {
		if v, ok := body[key].(string); ok && v != "" {
			return v
		}
	}

	return ""
}
