package database

import (
	"time"
)

type ContentRepository interface {
	GetContent(id string) (*ContentItem, error)
	CreateContent(item *ContentItem) error
	GetContentCount() (int, error)

	// MergeMetadata applies patch to the stored metadata map with
	// fetch-then-merge semantics: existing keys not present in patch survive.
	MergeMetadata(id string, patch map[string]any) error

	// MarkPublished merges patch into metadata and sets status to published
	// in a single transaction.
	MarkPublished(id string, patch map[string]any) error

	// AdvancePhase moves the auto-comment phase marker from one value to
	// another only if the current value still matches. Returns whether the
	// row was updated.
	AdvancePhase(id, from, to string) (bool, error)

	SetAutoCommentEnabled(id string, enabled bool) error
}

type ConnectionRepository interface {
	GetConnection(userID, platform string) (*SocialConnection, error)
	CreateConnection(conn *SocialConnection) error
	GetConnectionCount() (int, error)

	UpdateTokens(id string, accessTokenEnc, refreshTokenEnc []byte, expiresAt *time.Time) error
}

type AutomationRepository interface {
	GetEnabledByPlatform(platform string) ([]Automation, error)
	CreateAutomation(a *Automation) error
	GetAutomationCount() (int, error)

	// UpdateCursor advances the processing cursor and bumps the aggregate
	// counters after a pass that found at least one new comment.
	UpdateCursor(id, lastCommentID string, processedAt time.Time, triggerDelta, dmDelta int) error
}

type CommentJobRepository interface {
	GetJob(contentID string) (*CommentJob, error)

	// EnsureJob creates the job row with the configured totals if it does
	// not exist yet, or resets the totals for a new cycle.
	EnsureJob(contentID string, beforeTotal, afterTotal int) error
	IncrementBeforeDone(contentID string) error
	IncrementAfterDone(contentID string) error
}
