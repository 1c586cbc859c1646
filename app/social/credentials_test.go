package social

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/secrets"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// MockConnectionRepository implements a simple mock for testing
type MockConnectionRepository struct {
	conn *database.SocialConnection
	err  error

	updatedID        string
	updatedAccess    []byte
	updatedRefresh   []byte
	updatedExpiresAt *time.Time
	updateErr        error
}

func (m *MockConnectionRepository) GetConnection(userID, platform string) (*database.SocialConnection, error) {
	return m.conn, m.err
}

func (m *MockConnectionRepository) CreateConnection(conn *database.SocialConnection) error {
	return nil
}

func (m *MockConnectionRepository) GetConnectionCount() (int, error) {
	return 0, nil
}

func (m *MockConnectionRepository) UpdateTokens(id string, accessTokenEnc, refreshTokenEnc []byte, expiresAt *time.Time) error {
	m.updatedID = id
	m.updatedAccess = accessTokenEnc
	m.updatedRefresh = refreshTokenEnc
	m.updatedExpiresAt = expiresAt
	return m.updateErr
}

// MockRefresher implements Refresher for testing
type MockRefresher struct {
	token *RefreshedToken
	err   error
	calls int
}

func (m *MockRefresher) Refresh(ctx context.Context, p *platform.Platform, refreshToken string) (*RefreshedToken, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.token, nil
}

func testPlatform() *platform.Platform {
	return &platform.Platform{
		Key:      "instagram",
		Name:     "Instagram",
		APIBase:  "https://graph.example.com",
		TokenURL: "https://graph.example.com/refresh",
	}
}

func newTestService(t *testing.T, repo *MockConnectionRepository, refresher Refresher, now time.Time) (*Service, *secrets.Box) {
	t.Helper()

	box, err := secrets.NewBox(testKeyHex)
	if err != nil {
		t.Fatalf("Failed to build box: %v", err)
	}

	svc := NewService(repo, box, refresher)
	svc.now = func() time.Time { return now }

	return svc, box
}

func TestService_Resolve_NotConnected(t *testing.T) {
	repo := &MockConnectionRepository{conn: nil}
	svc, _ := newTestService(t, repo, &MockRefresher{}, time.Now())

	_, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestService_Resolve_ValidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(2 * time.Hour)

	repo := &MockConnectionRepository{}
	refresher := &MockRefresher{}
	svc, box := newTestService(t, repo, refresher, now)

	accessEnc, _ := box.Seal("valid-access-token")
	repo.conn = &database.SocialConnection{
		ID:              "conn-1",
		UserID:          "user-1",
		Platform:        "instagram",
		AccountID:       "ig-account-9",
		AccountUsername: "brand_account",
		AccessTokenEnc:  accessEnc,
		TokenExpiresAt:  &future,
	}

	creds, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if creds.AccessToken != "valid-access-token" {
		t.Errorf("Expected decrypted access token, got %q", creds.AccessToken)
	}
	if creds.AccountID != "ig-account-9" {
		t.Errorf("Expected account id to pass through, got %q", creds.AccountID)
	}
	if refresher.calls != 0 {
		t.Errorf("Expected no refresh for a valid token, got %d calls", refresher.calls)
	}
}

func TestService_Resolve_NoExpiryMeansValid(t *testing.T) {
	repo := &MockConnectionRepository{}
	refresher := &MockRefresher{}
	svc, box := newTestService(t, repo, refresher, time.Now())

	accessEnc, _ := box.Seal("long-lived-token")
	repo.conn = &database.SocialConnection{
		ID:             "conn-1",
		AccessTokenEnc: accessEnc,
		TokenExpiresAt: nil,
	}

	creds, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if creds.AccessToken != "long-lived-token" {
		t.Errorf("Expected stored token, got %q", creds.AccessToken)
	}
	if refresher.calls != 0 {
		t.Errorf("Expected no refresh without an expiry, got %d calls", refresher.calls)
	}
}

func TestService_Resolve_ExpiredTokenRefreshes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	repo := &MockConnectionRepository{}
	refresher := &MockRefresher{
		token: &RefreshedToken{
			AccessToken:  "fresh-access-token",
			RefreshToken: "rotated-refresh-token",
			ExpiresIn:    3600,
		},
	}
	svc, box := newTestService(t, repo, refresher, now)

	accessEnc, _ := box.Seal("stale-access-token")
	refreshEnc, _ := box.Seal("stored-refresh-token")
	repo.conn = &database.SocialConnection{
		ID:              "conn-1",
		AccountID:       "acct-1",
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiresAt:  &past,
	}

	creds, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if creds.AccessToken != "fresh-access-token" {
		t.Errorf("Expected refreshed token, got %q", creds.AccessToken)
	}
	if refresher.calls != 1 {
		t.Errorf("Expected one refresh call, got %d", refresher.calls)
	}

	// The refreshed pair is persisted encrypted
	if repo.updatedID != "conn-1" {
		t.Errorf("Expected tokens persisted for conn-1, got %q", repo.updatedID)
	}
	storedAccess, err := box.Open(repo.updatedAccess)
	if err != nil || storedAccess != "fresh-access-token" {
		t.Errorf("Expected persisted access token to decrypt to the fresh one, got %q (%v)", storedAccess, err)
	}
	storedRefresh, err := box.Open(repo.updatedRefresh)
	if err != nil || storedRefresh != "rotated-refresh-token" {
		t.Errorf("Expected rotated refresh token to be persisted, got %q (%v)", storedRefresh, err)
	}
	if repo.updatedExpiresAt == nil {
		t.Fatal("Expected new expiry to be persisted")
	}
	expectedExpiry := now.Add(time.Hour)
	if !repo.updatedExpiresAt.Equal(expectedExpiry) {
		t.Errorf("Expected expiry %v, got %v", expectedExpiry, *repo.updatedExpiresAt)
	}
}

func TestService_Resolve_RefreshWithoutRotationKeepsStoredToken(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	repo := &MockConnectionRepository{}
	refresher := &MockRefresher{
		token: &RefreshedToken{AccessToken: "fresh-access-token"},
	}
	svc, box := newTestService(t, repo, refresher, now)

	accessEnc, _ := box.Seal("stale")
	refreshEnc, _ := box.Seal("stored-refresh-token")
	repo.conn = &database.SocialConnection{
		ID:              "conn-1",
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiresAt:  &past,
	}

	if _, err := svc.Resolve(context.Background(), "user-1", testPlatform()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if string(repo.updatedRefresh) != string(refreshEnc) {
		t.Error("Expected stored refresh token to be kept when the platform does not rotate")
	}
}

func TestService_Resolve_RefreshFailure(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	repo := &MockConnectionRepository{}
	refresher := &MockRefresher{err: errors.New("token endpoint returned 400")}
	svc, box := newTestService(t, repo, refresher, now)

	accessEnc, _ := box.Seal("stale")
	refreshEnc, _ := box.Seal("refresh")
	repo.conn = &database.SocialConnection{
		ID:              "conn-1",
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiresAt:  &past,
	}

	_, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("Expected ErrRefreshFailed, got %v", err)
	}
	if repo.updatedID != "" {
		t.Error("Expected no token persistence after a failed refresh")
	}
}

func TestService_Resolve_ExpiredWithoutRefreshToken(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)

	repo := &MockConnectionRepository{}
	svc, box := newTestService(t, repo, &MockRefresher{}, now)

	accessEnc, _ := box.Seal("stale")
	repo.conn = &database.SocialConnection{
		ID:             "conn-1",
		AccessTokenEnc: accessEnc,
		TokenExpiresAt: &past,
	}

	_, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Errorf("Expected ErrRefreshFailed without a stored refresh token, got %v", err)
	}
}

func TestService_Resolve_UndecryptableToken(t *testing.T) {
	repo := &MockConnectionRepository{
		conn: &database.SocialConnection{
			ID:             "conn-1",
			AccessTokenEnc: []byte("garbage bytes, wrong key"),
		},
	}
	svc, _ := newTestService(t, repo, &MockRefresher{}, time.Now())

	_, err := svc.Resolve(context.Background(), "user-1", testPlatform())
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got %v", err)
	}
}
