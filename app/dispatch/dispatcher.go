package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openpromo/pubflow/app/autocomment"
	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/lock"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/publish"
	"github.com/openpromo/pubflow/app/social"
)

const (
	ModeRelay  = "relay"
	ModeDirect = "direct"
)

// Outcome is the caller-visible result of a successful publish.
type Outcome struct {
	Mode    string
	PostID  string
	PostURL string
	Warning string
}

// CredentialResolver is the slice of the social service the dispatcher needs.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string, p *platform.Platform) (*social.Credentials, error)
}

// Dispatcher runs the publish state machine: fetch content, resolve
// credentials, try the relay, fall back to direct platform dispatch, then
// merge the publish outcome into the content item.
type Dispatcher struct {
	catalog  *platform.Catalog
	contents database.ContentRepository
	creds    CredentialResolver
	registry *publish.Registry
	relay    *publish.Relay
	locker   lock.Locker

	// afterPublish is invoked (fire-and-forget by the caller's standards)
	// when a successful publish moved the auto-comment phase to
	// after_pending.
	afterPublish func(contentID, platformKey string)
}

func NewDispatcher(catalog *platform.Catalog, contents database.ContentRepository,
	creds CredentialResolver, registry *publish.Registry, relay *publish.Relay,
	locker lock.Locker, afterPublish func(contentID, platformKey string)) *Dispatcher {
	return &Dispatcher{
		catalog:      catalog,
		contents:     contents,
		creds:        creds,
		registry:     registry,
		relay:        relay,
		locker:       locker,
		afterPublish: afterPublish,
	}
}

// Publish runs one publish request for the calling user. Errors are always
// *Error values carrying the HTTP status for the API layer.
func (d *Dispatcher) Publish(ctx context.Context, userID, contentID, platformKey string) (*Outcome, *Error) {
	if contentID == "" {
		return nil, errMissingContentID()
	}

	p := d.catalog.Get(platformKey)
	if p == nil {
		return nil, errUnsupportedPlatform(platformKey)
	}

	// Serialize the whole publish per content id so two concurrent requests
	// cannot interleave their metadata read-modify-write.
	unlock, err := d.locker.Lock(ctx, contentID)
	if err != nil {
		return nil, errInternal()
	}
	defer unlock()

	content, err := d.contents.GetContent(contentID)
	if err != nil {
		slog.Error("Failed to load content", "content_id", contentID, "error", err)
		return nil, errInternal()
	}
	if content == nil || content.UserID != userID {
		return nil, errContentNotFound()
	}
	if content.Body == "" {
		return nil, errEmptyContent()
	}

	// A publish arriving while the before-comment batch is still running
	// waits for it, but only within a bounded budget: auto-comments are best
	// effort, never a hard publish precondition.
	if content.AutoCommentEnabled && content.AutoCommentPhase == autocomment.PhaseBeforePending {
		phase := autocomment.WaitForBeforeDone(ctx, d.contents, contentID, autocomment.BeforeWait)
		if phase == autocomment.PhaseBeforePending {
			slog.Warn("Before-comment batch still pending after wait budget, publishing anyway", "content_id", contentID)
		}
		if refreshed, err := d.contents.GetContent(contentID); err == nil && refreshed != nil {
			content = refreshed
		}
	}

	creds, err := d.creds.Resolve(ctx, userID, p)
	if err != nil {
		switch {
		case errors.Is(err, social.ErrNotConnected):
			return nil, errPlatformNotConnected(p.Name)
		case errors.Is(err, social.ErrRefreshFailed):
			return nil, errTokenRefresh(p.Name)
		case errors.Is(err, social.ErrDecryptFailed):
			return nil, errCredentials()
		default:
			slog.Error("Credential resolution failed", "content_id", contentID, "platform", p.Key, "error", err)
			return nil, errInternal()
		}
	}
	if creds.AccountID == "" {
		return nil, errMissingAccountID()
	}

	imageURL := imageFromMetadata(content.Metadata)
	if p.RequiresImage && imageURL == "" {
		// Rejected before any network call is attempted.
		return nil, errImageRequired(p.Name)
	}

	req := publish.Request{
		AccessToken: creds.AccessToken,
		AccountID:   creds.AccountID,
		Text:        content.Body,
		Title:       content.Title,
		ImageURL:    imageURL,
	}

	result, mode, dispatchErr := d.attempt(ctx, content, p, req)
	if dispatchErr != nil {
		return nil, dispatchErr
	}

	postURL := d.catalog.PostURL(p.Key, result.PostID)

	if err := d.recordPublish(content, p, mode, result.PostID, postURL); err != nil {
		slog.Error("Publish succeeded but status update failed", "content_id", contentID, "platform", p.Key, "error", err)
		// The post is live; surface success anyway.
	}

	return &Outcome{
		Mode:    mode,
		PostID:  result.PostID,
		PostURL: postURL,
		Warning: result.Warning,
	}, nil
}

// attempt tries the relay first when configured, then direct dispatch. Relay
// failures are swallowed: the caller only ever sees the direct-path error.
func (d *Dispatcher) attempt(ctx context.Context, content *database.ContentItem, p *platform.Platform, req publish.Request) (*publish.Result, string, *Error) {
	if d.relay.Enabled() {
		relayReq := publish.RelayRequest{
			ContentID:   content.ID,
			Platform:    p.Key,
			AccountID:   req.AccountID,
			AccessToken: req.AccessToken,
			Text:        req.Text,
			ImageURL:    req.ImageURL,
		}
		if p.RequiresTitle {
			relayReq.Title = req.Title
			if relayReq.Title == "" {
				relayReq.Title = publish.Truncate(req.Text, 80)
			}
		}

		result, err := d.relay.Publish(ctx, relayReq)
		if err == nil {
			slog.Info("Published via relay", "content_id", content.ID, "platform", p.Key)
			return result, ModeRelay, nil
		}

		slog.Warn("Relay publish failed, falling back to direct dispatch", "content_id", content.ID, "platform", p.Key, "error", err)
	}

	adapter := d.registry.Get(p.Key)
	if adapter == nil {
		return nil, "", errUnsupportedPlatform(p.Key)
	}

	result, err := adapter.Publish(ctx, req)
	if err != nil {
		slog.Error("Direct publish failed", "content_id", content.ID, "platform", p.Key, "error", err)
		return nil, "", fromPublishError(p.Name, err)
	}

	slog.Info("Published via direct dispatch", "content_id", content.ID, "platform", p.Key, "post_id", result.PostID)
	return result, ModeDirect, nil
}

// recordPublish merges the publish outcome into the content item and, when
// auto-comments were waiting on the publish, advances the phase marker.
func (d *Dispatcher) recordPublish(content *database.ContentItem, p *platform.Platform, mode, postID, postURL string) error {
	patch := map[string]any{
		"published_at":       time.Now().UTC().Format(time.RFC3339),
		"published_platform": p.Key,
		"published_mode":     mode,
		p.Key + "_post_id":   postID,
	}
	if postURL != "" {
		patch[p.Key+"_post_url"] = postURL
	}

	if err := d.contents.MarkPublished(content.ID, patch); err != nil {
		return err
	}

	if content.AutoCommentEnabled && content.AutoCommentPhase == autocomment.PhaseBeforeDone {
		advanced, err := d.contents.AdvancePhase(content.ID, autocomment.PhaseBeforeDone, autocomment.PhaseAfterPending)
		if err != nil {
			return err
		}
		if advanced && d.afterPublish != nil {
			d.afterPublish(content.ID, p.Key)
		}
	}

	return nil
}

// imageFromMetadata finds an attached image in the content metadata: either a
// direct image_url value or the first entry of an images list (plain URLs or
// {url: ...} objects).
func imageFromMetadata(metadata map[string]any) string {
	if metadata == nil {
		return ""
	}

	if v, ok := metadata["image_url"].(string); ok && v != "" {
		return v
	}

	images, ok := metadata["images"].([]any)
	if !ok || len(images) == 0 {
		return ""
	}

	switch first := images[0].(type) {
	case string:
		return first
	case map[string]any:
		if v, ok := first["url"].(string); ok {
			return v
		}
	}

	return ""
}
