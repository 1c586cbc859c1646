package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/openpromo/pubflow/app/autocomment"
	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/lock"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/publish"
	"github.com/openpromo/pubflow/app/social"
)

// MockContentRepository implements database.ContentRepository for testing
type MockContentRepository struct {
	content *database.ContentItem
	err     error

	mergedPatch    map[string]any
	markPublished  bool
	advancedFrom   string
	advancedTo     string
	advanceResult  bool
	advanceCalled  bool
	markPublishErr error
}

func (m *MockContentRepository) GetContent(id string) (*database.ContentItem, error) {
	return m.content, m.err
}

func (m *MockContentRepository) CreateContent(item *database.ContentItem) error {
	return nil
}

func (m *MockContentRepository) GetContentCount() (int, error) {
	return 0, nil
}

func (m *MockContentRepository) MergeMetadata(id string, patch map[string]any) error {
	m.mergedPatch = patch
	return nil
}

func (m *MockContentRepository) MarkPublished(id string, patch map[string]any) error {
	m.markPublished = true
	m.mergedPatch = patch
	return m.markPublishErr
}

func (m *MockContentRepository) AdvancePhase(id, from, to string) (bool, error) {
	m.advanceCalled = true
	m.advancedFrom = from
	m.advancedTo = to
	return m.advanceResult, nil
}

func (m *MockContentRepository) SetAutoCommentEnabled(id string, enabled bool) error {
	m.content.AutoCommentEnabled = enabled
	return nil
}

// MockCredentialResolver implements CredentialResolver for testing
type MockCredentialResolver struct {
	creds *social.Credentials
	err   error
}

func (m *MockCredentialResolver) Resolve(ctx context.Context, userID string, p *platform.Platform) (*social.Credentials, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.creds, nil
}

// testCatalog builds a catalog whose platform endpoints point at apiBase, so
// direct dispatch lands on a test server instead of the real Graph API.
func testCatalog(t *testing.T, apiBase string) *platform.Catalog {
	t.Helper()

	dir := t.TempDir()
	doc := fmt.Sprintf(`platforms:
  - key: facebook
    name: Facebook
    api_base: %[1]s
    post_url_template: https://www.facebook.com/{id}
  - key: instagram
    name: Instagram
    api_base: %[1]s
    post_url_template: https://www.instagram.com/p/{id}/
    requires_image: true
`, apiBase)
	if err := os.WriteFile(filepath.Join(dir, "test.yml"), []byte(doc), 0644); err != nil {
		t.Fatalf("Failed to write catalog override: %v", err)
	}

	catalog, err := platform.LoadCatalog(dir)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	return catalog
}

func testContent() *database.ContentItem {
	return &database.ContentItem{
		ID:     "content-1",
		UserID: "user-1",
		Title:  "Launch day",
		Body:   "Hello world",
		Status: "draft",
	}
}

func testCreds() *social.Credentials {
	return &social.Credentials{AccessToken: "token", AccountID: "acct-1"}
}

func newTestDispatcher(catalog *platform.Catalog, contents *MockContentRepository,
	creds *MockCredentialResolver, registry *publish.Registry, relay *publish.Relay,
	afterPublish func(contentID, platformKey string)) *Dispatcher {
	return NewDispatcher(catalog, contents, creds, registry, relay, lock.NewKeyedMutex(), afterPublish)
}

func TestDispatcher_Publish_MissingContentID(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	d := newTestDispatcher(catalog, &MockContentRepository{}, &MockCredentialResolver{}, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "", "facebook")
	if dispatchErr == nil || dispatchErr.Code != "missing_content_id" {
		t.Errorf("Expected missing_content_id, got %+v", dispatchErr)
	}
}

func TestDispatcher_Publish_UnsupportedPlatform(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	d := newTestDispatcher(catalog, &MockContentRepository{}, &MockCredentialResolver{}, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "myspace")
	if dispatchErr == nil || dispatchErr.Code != "unsupported_platform" {
		t.Errorf("Expected unsupported_platform, got %+v", dispatchErr)
	}
	if dispatchErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", dispatchErr.Status)
	}
}

func TestDispatcher_Publish_ContentNotFound(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	d := newTestDispatcher(catalog, &MockContentRepository{content: nil}, &MockCredentialResolver{}, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "content-404", "facebook")
	if dispatchErr == nil || dispatchErr.Code != "content_not_found" {
		t.Errorf("Expected content_not_found, got %+v", dispatchErr)
	}
}

func TestDispatcher_Publish_ForeignContentLooksNotFound(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	contents := &MockContentRepository{content: testContent()}
	d := newTestDispatcher(catalog, contents, &MockCredentialResolver{}, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "someone-else", "content-1", "facebook")
	if dispatchErr == nil || dispatchErr.Code != "content_not_found" {
		t.Errorf("Expected ownership mismatch to read as content_not_found, got %+v", dispatchErr)
	}
}

func TestDispatcher_Publish_EmptyBody(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	content := testContent()
	content.Body = ""
	d := newTestDispatcher(catalog, &MockContentRepository{content: content}, &MockCredentialResolver{}, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr == nil || dispatchErr.Code != "empty_content" {
		t.Errorf("Expected empty_content, got %+v", dispatchErr)
	}
}

func TestDispatcher_Publish_NotConnected(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{err: social.ErrNotConnected}
	d := newTestDispatcher(catalog, contents, creds, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr == nil || dispatchErr.Code != "platform_not_connected" {
		t.Errorf("Expected platform_not_connected, got %+v", dispatchErr)
	}
}

func TestDispatcher_Publish_RefreshFailureIs401(t *testing.T) {
	catalog := testCatalog(t, "https://unused.example.com")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{err: social.ErrRefreshFailed}
	d := newTestDispatcher(catalog, contents, creds, nil, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr == nil || dispatchErr.Code != "token_refresh_failed" {
		t.Fatalf("Expected token_refresh_failed, got %+v", dispatchErr)
	}
	if dispatchErr.Status != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", dispatchErr.Status)
	}
}

func TestDispatcher_Publish_ImageRequired_NoNetworkCall(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"id":"nope"}`))
	}))
	defer server.Close()

	catalog := testCatalog(t, server.URL)
	registry := publish.NewRegistry(catalog, server.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{creds: testCreds()}
	d := newTestDispatcher(catalog, contents, creds, registry, nil, nil)

	_, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "instagram")
	if dispatchErr == nil || dispatchErr.Code != "image_required" {
		t.Fatalf("Expected image_required, got %+v", dispatchErr)
	}
	if dispatchErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", dispatchErr.Status)
	}
	if calls != 0 {
		t.Errorf("Expected zero platform calls for missing image, got %d", calls)
	}
	if contents.markPublished {
		t.Error("Expected no publish record after validation failure")
	}
}

func TestDispatcher_Publish_DirectSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-post-1"}`))
	}))
	defer server.Close()

	catalog := testCatalog(t, server.URL)
	registry := publish.NewRegistry(catalog, server.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{creds: testCreds()}
	d := newTestDispatcher(catalog, contents, creds, registry, nil, nil)

	outcome, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr != nil {
		t.Fatalf("Expected success, got %+v", dispatchErr)
	}

	if outcome.Mode != ModeDirect {
		t.Errorf("Expected direct mode, got %q", outcome.Mode)
	}
	if outcome.PostID != "fb-post-1" {
		t.Errorf("Expected post id fb-post-1, got %q", outcome.PostID)
	}
	if outcome.PostURL != "https://www.facebook.com/fb-post-1" {
		t.Errorf("Expected templated post url, got %q", outcome.PostURL)
	}

	if !contents.markPublished {
		t.Fatal("Expected the publish outcome to be recorded")
	}
	for _, key := range []string{"published_at", "published_platform", "published_mode", "facebook_post_id", "facebook_post_url"} {
		if _, ok := contents.mergedPatch[key]; !ok {
			t.Errorf("Expected metadata patch to include %s", key)
		}
	}
	if contents.mergedPatch["published_mode"] != ModeDirect {
		t.Errorf("Expected published_mode direct, got %v", contents.mergedPatch["published_mode"])
	}
}

func TestDispatcher_Publish_RelayFailureFallsBackTransparently(t *testing.T) {
	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-post-2"}`))
	}))
	defer direct.Close()

	relayCalls := 0
	relayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relayCalls++
		http.Error(w, "workflow exploded", http.StatusInternalServerError)
	}))
	defer relayServer.Close()

	catalog := testCatalog(t, direct.URL)
	registry := publish.NewRegistry(catalog, direct.Client(), "Pubflow-Test/1.0")
	relay := publish.NewRelay(relayServer.URL, relayServer.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{creds: testCreds()}
	d := newTestDispatcher(catalog, contents, creds, registry, relay, nil)

	outcome, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr != nil {
		t.Fatalf("Expected fallback success, got %+v", dispatchErr)
	}

	if relayCalls != 1 {
		t.Errorf("Expected the relay to be tried once, got %d", relayCalls)
	}
	if outcome.Mode != ModeDirect {
		t.Errorf("Expected direct mode after relay failure, got %q", outcome.Mode)
	}
	if outcome.PostID != "fb-post-2" {
		t.Errorf("Expected direct post id, got %q", outcome.PostID)
	}
}

func TestDispatcher_Publish_RelaySuccess(t *testing.T) {
	relayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"post_id":"relay-post-5"}`))
	}))
	defer relayServer.Close()

	catalog := testCatalog(t, "https://unused.example.com")
	registry := publish.NewRegistry(catalog, relayServer.Client(), "Pubflow-Test/1.0")
	relay := publish.NewRelay(relayServer.URL, relayServer.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{creds: testCreds()}
	d := newTestDispatcher(catalog, contents, creds, registry, relay, nil)

	outcome, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr != nil {
		t.Fatalf("Expected relay success, got %+v", dispatchErr)
	}
	if outcome.Mode != ModeRelay {
		t.Errorf("Expected relay mode, got %q", outcome.Mode)
	}
	if outcome.PostID != "relay-post-5" {
		t.Errorf("Expected relay post id, got %q", outcome.PostID)
	}
}

func TestDispatcher_Publish_AdvancesPhaseAndFiresHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-post-3"}`))
	}))
	defer server.Close()

	content := testContent()
	content.AutoCommentEnabled = true
	content.AutoCommentPhase = autocomment.PhaseBeforeDone

	catalog := testCatalog(t, server.URL)
	registry := publish.NewRegistry(catalog, server.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: content, advanceResult: true}
	creds := &MockCredentialResolver{creds: testCreds()}

	var hookContentID, hookPlatform string
	d := newTestDispatcher(catalog, contents, creds, registry, nil, func(contentID, platformKey string) {
		hookContentID = contentID
		hookPlatform = platformKey
	})

	if _, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook"); dispatchErr != nil {
		t.Fatalf("Expected success, got %+v", dispatchErr)
	}

	if !contents.advanceCalled {
		t.Fatal("Expected phase advancement after a successful publish")
	}
	if contents.advancedFrom != autocomment.PhaseBeforeDone || contents.advancedTo != autocomment.PhaseAfterPending {
		t.Errorf("Expected before_done -> after_pending, got %s -> %s", contents.advancedFrom, contents.advancedTo)
	}
	if hookContentID != "content-1" || hookPlatform != "facebook" {
		t.Errorf("Expected after-publish hook invocation, got (%q, %q)", hookContentID, hookPlatform)
	}
}

func TestDispatcher_Publish_NoPhaseAdvanceWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-post-4"}`))
	}))
	defer server.Close()

	catalog := testCatalog(t, server.URL)
	registry := publish.NewRegistry(catalog, server.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: testContent()}
	creds := &MockCredentialResolver{creds: testCreds()}
	d := newTestDispatcher(catalog, contents, creds, registry, nil, func(string, string) {
		t.Error("Expected no hook without auto-comments")
	})

	if _, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook"); dispatchErr != nil {
		t.Fatalf("Expected success, got %+v", dispatchErr)
	}
	if contents.advanceCalled {
		t.Error("Expected no phase advancement when auto-comments are disabled")
	}
}

func TestDispatcher_Publish_RecordFailureStillSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"fb-post-5"}`))
	}))
	defer server.Close()

	catalog := testCatalog(t, server.URL)
	registry := publish.NewRegistry(catalog, server.Client(), "Pubflow-Test/1.0")
	contents := &MockContentRepository{content: testContent(), markPublishErr: fmt.Errorf("disk full")}
	creds := &MockCredentialResolver{creds: testCreds()}
	d := newTestDispatcher(catalog, contents, creds, registry, nil, nil)

	outcome, dispatchErr := d.Publish(context.Background(), "user-1", "content-1", "facebook")
	if dispatchErr != nil {
		t.Fatalf("Expected the live post to surface as success, got %+v", dispatchErr)
	}
	if outcome.PostID != "fb-post-5" {
		t.Errorf("Expected post id despite record failure, got %q", outcome.PostID)
	}
}

func TestImageFromMetadata(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		expected string
	}{
		{"nil metadata", nil, ""},
		{"direct image_url", map[string]any{"image_url": "https://cdn.example.com/a.jpg"}, "https://cdn.example.com/a.jpg"},
		{"images list of strings", map[string]any{"images": []any{"https://cdn.example.com/b.jpg"}}, "https://cdn.example.com/b.jpg"},
		{"images list of objects", map[string]any{"images": []any{map[string]any{"url": "https://cdn.example.com/c.jpg"}}}, "https://cdn.example.com/c.jpg"},
		{"image_url wins over images", map[string]any{"image_url": "https://cdn.example.com/a.jpg", "images": []any{"https://cdn.example.com/b.jpg"}}, "https://cdn.example.com/a.jpg"},
		{"empty images list", map[string]any{"images": []any{}}, ""},
		{"unrelated keys", map[string]any{"author": "someone"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := imageFromMetadata(tt.metadata)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
