package autocomment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openpromo/pubflow/app/database"
	"github.com/openpromo/pubflow/app/platform"
	"github.com/openpromo/pubflow/app/publish"
	"github.com/openpromo/pubflow/app/social"
)

// commentPacing spaces successive comment posts on the same account to stay
// clear of platform rate limits.
const commentPacing = 1500 * time.Millisecond

// TextSource produces comment text for a post. Implemented by the AI
// generator; the runner only depends on this contract.
type TextSource interface {
	CommentText(ctx context.Context, postText string, ordinal int) (string, error)
}

// CredentialResolver is the slice of the social service the runner needs.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string, p *platform.Platform) (*social.Credentials, error)
}

// Runner executes the before/after comment batches for a content item.
//
// The before batch runs pre-publish and only generates and stores the comment
// texts (there is no live post to attach them to yet); generation progress is
// what the before counters track. After a successful publish the after batch
// posts the stored before texts as the first comments on the live post, then
// generates and posts the after batch, and finally closes the cycle.
type Runner struct {
	contents database.ContentRepository
	jobs     database.CommentJobRepository
	catalog  *platform.Catalog
	registry *publish.Registry
	creds    CredentialResolver
	source   TextSource
}

func NewRunner(contents database.ContentRepository, jobs database.CommentJobRepository,
	catalog *platform.Catalog, registry *publish.Registry, creds CredentialResolver,
	source TextSource) *Runner {
	return &Runner{
		contents: contents,
		jobs:     jobs,
		catalog:  catalog,
		registry: registry,
		creds:    creds,
		source:   source,
	}
}

// StartCycle begins a new auto-comment cycle: wins the phase transition to
// before_pending, records the configured totals and runs the before batch.
// The phase guard comes first so a duplicate start against an in-flight
// cycle is rejected without touching the running cycle's counters.
func (r *Runner) StartCycle(ctx context.Context, contentID string, beforeCount, afterCount int) error {
	content, err := r.contents.GetContent(contentID)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	if content == nil {
		return fmt.Errorf("content %s not found", contentID)
	}

	// A fresh cycle may start from idle or from a completed previous cycle.
	advanced, err := r.contents.AdvancePhase(contentID, PhaseIdle, PhaseBeforePending)
	if err != nil {
		return err
	}
	if !advanced {
		advanced, err = r.contents.AdvancePhase(contentID, PhaseCompleted, PhaseBeforePending)
		if err != nil {
			return err
		}
	}
	if !advanced {
		return fmt.Errorf("content %s is already in an active auto-comment cycle", contentID)
	}

	// Starting a cycle opts the content in: the dispatcher's wait and the
	// before_done -> after_pending advance are gated on this flag.
	if err := r.contents.SetAutoCommentEnabled(contentID, true); err != nil {
		return err
	}

	if err := r.jobs.EnsureJob(contentID, beforeCount, afterCount); err != nil {
		return err
	}

	patch := map[string]any{
		MetaBeforeCount: beforeCount,
		MetaAfterCount:  afterCount,
	}
	if err := r.contents.MergeMetadata(contentID, patch); err != nil {
		return err
	}

	return r.runBeforeBatch(ctx, contentID, content.Body, beforeCount)
}

func (r *Runner) runBeforeBatch(ctx context.Context, contentID, postText string, count int) error {
	var texts []string
	for i := 1; i <= count; i++ {
		text, err := r.source.CommentText(ctx, postText, i)
		if err != nil {
			slog.Warn("Before-comment generation failed", "content_id", contentID, "ordinal", i, "error", err)
			continue
		}

		texts = append(texts, text)
		if err := r.jobs.IncrementBeforeDone(contentID); err != nil {
			slog.Warn("Failed to record before-comment progress", "content_id", contentID, "error", err)
		}
	}

	if err := r.contents.MergeMetadata(contentID, map[string]any{MetaBeforeTexts: texts}); err != nil {
		return err
	}

	// Best effort: the publish path proceeds even when some generations
	// failed, so the phase advances regardless.
	if _, err := r.contents.AdvancePhase(contentID, PhaseBeforePending, PhaseBeforeDone); err != nil {
		return err
	}

	slog.Info("Before-comment batch finished", "content_id", contentID, "generated", len(texts), "requested", count)
	return nil
}

// RunAfterBatch posts the prepared before texts plus the generated after
// batch onto the published post, then completes the cycle. It runs in the
// background after the publish response has been returned.
func (r *Runner) RunAfterBatch(ctx context.Context, contentID, platformKey string) error {
	content, err := r.contents.GetContent(contentID)
	if err != nil {
		return fmt.Errorf("failed to load content: %w", err)
	}
	if content == nil {
		return fmt.Errorf("content %s not found", contentID)
	}
	if content.AutoCommentPhase != PhaseAfterPending {
		slog.Debug("After batch skipped, phase moved on", "content_id", contentID, "phase", content.AutoCommentPhase)
		return nil
	}

	p := r.catalog.Get(platformKey)
	if p == nil {
		return fmt.Errorf("unsupported platform %s", platformKey)
	}

	postID, _ := content.Metadata[platformKey+"_post_id"].(string)
	commenter := r.registry.GetCommenter(platformKey)

	if postID == "" || commenter == nil {
		// Nothing to attach comments to; close the cycle rather than leave
		// it dangling in after_pending.
		slog.Warn("After batch has no target, completing cycle", "content_id", contentID, "platform", platformKey, "post_id", postID)
		_, err := r.contents.AdvancePhase(contentID, PhaseAfterPending, PhaseCompleted)
		return err
	}

	creds, err := r.creds.Resolve(ctx, content.UserID, p)
	if err != nil {
		slog.Warn("After batch credential resolution failed, completing cycle", "content_id", contentID, "platform", platformKey, "error", err)
		_, advErr := r.contents.AdvancePhase(contentID, PhaseAfterPending, PhaseCompleted)
		return advErr
	}

	// Prepared before texts go out first.
	for _, text := range metaStrings(content.Metadata, MetaBeforeTexts) {
		if err := r.postComment(ctx, commenter, creds, platformKey, postID, text); err != nil {
			slog.Warn("Before-text comment failed", "content_id", contentID, "error", err)
		}
		sleepCtx(ctx, commentPacing)
	}

	afterCount := metaInt(content.Metadata, MetaAfterCount)
	for i := 1; i <= afterCount; i++ {
		text, err := r.source.CommentText(ctx, content.Body, i)
		if err != nil {
			slog.Warn("After-comment generation failed", "content_id", contentID, "ordinal", i, "error", err)
			continue
		}

		if err := r.postComment(ctx, commenter, creds, platformKey, postID, text); err != nil {
			slog.Warn("After-comment post failed", "content_id", contentID, "ordinal", i, "error", err)
			continue
		}

		if err := r.jobs.IncrementAfterDone(contentID); err != nil {
			slog.Warn("Failed to record after-comment progress", "content_id", contentID, "error", err)
		}
		sleepCtx(ctx, commentPacing)
	}

	if _, err := r.contents.AdvancePhase(contentID, PhaseAfterPending, PhaseCompleted); err != nil {
		return err
	}

	slog.Info("After-comment batch finished", "content_id", contentID, "platform", platformKey)
	return nil
}

func (r *Runner) postComment(ctx context.Context, commenter publish.Commenter, creds *social.Credentials, platformKey, postID, text string) error {
	_, err := commenter.Comment(ctx, creds.AccessToken, creds.AccountID, postID, text)
	return err
}

func metaStrings(metadata map[string]any, key string) []string {
	raw, ok := metadata[key].([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
