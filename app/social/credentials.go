package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/secrets"
)

var (
	// ErrNotConnected means no connection row exists for (user, platform).
	// Terminal for the current publish attempt.
	ErrNotConnected = errors.New("platform not connected")

	// ErrDecryptFailed means the stored access token could not be decrypted.
	ErrDecryptFailed = errors.New("credential decryption failed")

	// ErrRefreshFailed means the access token expired and the refresh
	// attempt did not produce a new one. Terminal, surfaced to the caller.
	ErrRefreshFailed = errors.New("token expired and refresh failed")
)

// Credentials is a resolved, usable plaintext credential set.
type Credentials struct {
	AccessToken     string
	AccountID       string
	AccountUsername string
}

// Service resolves plaintext credentials for a (user, platform) pair,
// refreshing expired access tokens on the way.
type Service struct {
	connections database.ConnectionRepository
	box         *secrets.Box
	refresher   Refresher
	now         func() time.Time
}

func NewService(connections database.ConnectionRepository, box *secrets.Box, refresher Refresher) *Service {
	return &Service{
		connections: connections,
		box:         box,
		refresher:   refresher,
		now:         time.Now,
	}
}

// Resolve returns a usable access token for the user on the platform, or one
// of the typed failures above. A successful refresh persists the new token
// pair; that is the only side effect.
func (s *Service) Resolve(ctx context.Context, userID string, p *platform.Platform) (*Credentials, error) {
	conn, err := s.connections.GetConnection(userID, p.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}
	if conn == nil {
		return nil, ErrNotConnected
	}

	if conn.TokenExpiresAt != nil && !conn.TokenExpiresAt.After(s.now()) {
		return s.refreshAndResolve(ctx, conn, p)
	}

	accessToken, err := s.box.Open(conn.AccessTokenEnc)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return &Credentials{
		AccessToken:     accessToken,
		AccountID:       conn.AccountID,
		AccountUsername: conn.AccountUsername,
	}, nil
}

func (s *Service) refreshAndResolve(ctx context.Context, conn *database.SocialConnection, p *platform.Platform) (*Credentials, error) {
	if len(conn.RefreshTokenEnc) == 0 {
		return nil, ErrRefreshFailed
	}

	refreshToken, err := s.box.Open(conn.RefreshTokenEnc)
	if err != nil {
		slog.Warn("Refresh token undecryptable", "connection_id", conn.ID, "platform", p.Key)
		return nil, ErrRefreshFailed
	}

	refreshed, err := s.refresher.Refresh(ctx, p, refreshToken)
	if err != nil {
		slog.Warn("Token refresh failed", "connection_id", conn.ID, "platform", p.Key, "error", err)
		return nil, ErrRefreshFailed
	}

	accessEnc, err := s.box.Seal(refreshed.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal refreshed access token: %w", err)
	}

	// Platforms that do not rotate refresh tokens return an empty one;
	// keep the stored value in that case.
	refreshEnc := conn.RefreshTokenEnc
	if refreshed.RefreshToken != "" {
		refreshEnc, err = s.box.Seal(refreshed.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to seal refreshed refresh token: %w", err)
		}
	}

	var expiresAt *time.Time
	if refreshed.ExpiresIn > 0 {
		t := s.now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	if err := s.connections.UpdateTokens(conn.ID, accessEnc, refreshEnc, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	slog.Info("Access token refreshed", "connection_id", conn.ID, "platform", p.Key)

	return &Credentials{
		AccessToken:     refreshed.AccessToken,
		AccountID:       conn.AccountID,
		AccountUsername: conn.AccountUsername,
	}, nil
}
