package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRelay_Enabled(t *testing.T) {
	var nilRelay *Relay
	if nilRelay.Enabled() {
		t.Error("Expected nil relay to report disabled")
	}

	if NewRelay("", nil, "").Enabled() {
		t.Error("Expected relay without URL to report disabled")
	}

	if !NewRelay("https://relay.example.com/hook", nil, "").Enabled() {
		t.Error("Expected configured relay to report enabled")
	}
}

func TestRelay_Publish(t *testing.T) {
	var received RelayRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode relay request: %v", err)
		}
		w.Write([]byte(`{"post_id":"relay-post-1"}`))
	}))
	defer server.Close()

	relay := NewRelay(server.URL, server.Client(), "Pubflow-Test/1.0")

	result, err := relay.Publish(context.Background(), RelayRequest{
		ContentID:   "content-1",
		Platform:    "linkedin",
		AccountID:   "acct-1",
		AccessToken: "token",
		Text:        "post body",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.PostID != "relay-post-1" {
		t.Errorf("Expected relay post id, got %q", result.PostID)
	}
	if received.ContentID != "content-1" || received.Platform != "linkedin" {
		t.Errorf("Expected request fields to pass through, got %+v", received)
	}
}

func TestRelay_Publish_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow failed", http.StatusInternalServerError)
	}))
	defer server.Close()

	relay := NewRelay(server.URL, server.Client(), "Pubflow-Test/1.0")

	if _, err := relay.Publish(context.Background(), RelayRequest{}); err == nil {
		t.Error("Expected error for relay failure status")
	}
}

func TestExtractRelayPostID(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"post_id key", `{"post_id":"abc"}`, "abc"},
		{"camelCase key", `{"postId":"def"}`, "def"},
		{"plain id", `{"id":"ghi"}`, "ghi"},
		{"url key", `{"url":"https://example.com/p/1"}`, "https://example.com/p/1"},
		{"post_url key", `{"post_url":"https://example.com/p/2"}`, "https://example.com/p/2"},
		{"post_id wins over id", `{"id":"second","post_id":"first"}`, "first"},
		{"empty value skipped", `{"post_id":"","id":"fallback"}`, "fallback"},
		{"non-string value skipped", `{"id":42,"url":"https://example.com/p/3"}`, "https://example.com/p/3"},
		{"no known key", `{"status":"ok"}`, ""},
		{"not json", `accepted`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractRelayPostID([]byte(tt.body))
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
