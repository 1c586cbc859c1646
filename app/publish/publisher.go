package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openpromo/pubflow/app/platform"
)

// ErrImageRequired is returned before any network call when a platform that
// mandates an image is asked to publish without one.
var ErrImageRequired = errors.New("an image is required for this platform")

// Request is the normalized publish input handed to every adapter.
type Request struct {
	AccessToken string
	AccountID   string
	Text        string
	Title       string
	ImageURL    string
}

// Result is the uniform adapter outcome. PostID is the platform-assigned
// identifier normalized from whatever field the platform returns; Warning is
// set for non-fatal degradations such as posting without a requested image.
type Result struct {
	PostID  string
	Warning string
}

// APIError is a platform call failure with a suggested HTTP status for the
// caller. Raw platform bodies are truncated before they end up here.
type APIError struct {
	Platform string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Platform, e.Message)
}

// StatusCode returns the suggested HTTP status for the caller, default 500.
func (e *APIError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// Publisher normalizes "publish text (+ optional image)" into one platform's
// call sequence.
type Publisher interface {
	Publish(ctx context.Context, req Request) (*Result, error)
}

// Commenter is implemented by adapters whose platform supports commenting on
// an existing post. Returns the platform comment id.
type Commenter interface {
	Comment(ctx context.Context, accessToken, accountID, postID, text string) (string, error)
}

// Registry maps platform keys to their publisher adapters.
type Registry struct {
	publishers map[string]Publisher
}

// NewRegistry wires one adapter per supported platform from the catalog.
func NewRegistry(catalog *platform.Catalog, httpClient *http.Client, userAgent string) *Registry {
	c := newClient(httpClient, userAgent)

	publishers := map[string]Publisher{}
	for _, key := range catalog.Keys() {
		p := catalog.Get(key)
		switch key {
		case "linkedin":
			publishers[key] = NewLinkedInPublisher(c, p.APIBase)
		case "facebook":
			publishers[key] = NewFacebookPublisher(c, p.APIBase)
		case "instagram":
			publishers[key] = NewInstagramPublisher(c, p.APIBase)
		case "threads":
			publishers[key] = NewThreadsPublisher(c, p.APIBase)
		case "x":
			publishers[key] = NewXPublisher(c, p.APIBase)
		case "reddit":
			publishers[key] = NewRedditPublisher(c, p.APIBase)
		}
	}

	return &Registry{publishers: publishers}
}

// Get returns the adapter for a platform key, or nil when none is wired.
func (r *Registry) Get(key string) Publisher {
	return r.publishers[key]
}

// GetCommenter returns the platform adapter's comment capability, or nil when
// the platform does not support commenting.
func (r *Registry) GetCommenter(key string) Commenter {
	if c, ok := r.publishers[key].(Commenter); ok {
		return c
	}
	return nil
}
