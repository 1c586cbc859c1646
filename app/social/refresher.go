package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openpromo/pubflow/app/platform"
)

// RefreshedToken is the outcome of a successful token refresh.
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // seconds
}

// Refresher exchanges a refresh token for a new access token. Pure function
// of (platform, refresh token); persistence is the caller's concern.
type Refresher interface {
	Refresh(ctx context.Context, p *platform.Platform, refreshToken string) (*RefreshedToken, error)
}

var _ Refresher = (*HTTPRefresher)(nil)

// HTTPRefresher performs the standard OAuth refresh_token grant against the
// platform's token endpoint.
type HTTPRefresher struct {
	httpClient *http.Client
	userAgent  string
}

func NewHTTPRefresher(httpClient *http.Client, userAgent string) *HTTPRefresher {
	return &HTTPRefresher{httpClient: httpClient, userAgent: userAgent}
}

func (r *HTTPRefresher) Refresh(ctx context.Context, p *platform.Platform, refreshToken string) (*RefreshedToken, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &RefreshedToken{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		ExpiresIn:    parsed.ExpiresIn,
	}, nil
}
