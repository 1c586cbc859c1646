package autocomment

import (
	"context"
	"fmt"
	"time"

	"github.com/openpromo/pubflow/app/database"
)

// Metadata keys holding the user-configured comment counts for a cycle.
const (
	MetaBeforeCount = "auto_comment_before_count"
	MetaAfterCount  = "auto_comment_after_count"
	MetaBeforeTexts = "auto_comment_before_texts"
)

// BeforeWait bounds how long a publish will wait for the before-comment batch
// before proceeding anyway. Auto-comments are best effort, not a publish
// precondition.
const BeforeWait = 5 * time.Minute

const beforePollInterval = 2 * time.Second

// Status is the pollable per-content auto-comment progress resource.
type Status struct {
	Phase       string `json:"phase"`
	BeforeDone  int    `json:"beforeDone"`
	BeforeTotal int    `json:"beforeTotal"`
	AfterDone   int    `json:"afterDone"`
	AfterTotal  int    `json:"afterTotal"`
}

// StatusService merges the content item's phase marker with the comment job's
// counters into the caller-facing status.
type StatusService struct {
	contents database.ContentRepository
	jobs     database.CommentJobRepository
}

func NewStatusService(contents database.ContentRepository, jobs database.CommentJobRepository) *StatusService {
	return &StatusService{contents: contents, jobs: jobs}
}

// Status returns the current auto-comment status for a content item. The
// configured per-cycle totals take precedence over a zero or stale total in
// the job row, and done counters never exceed their totals.
func (s *StatusService) Status(contentID string) (*Status, error) {
	content, err := s.contents.GetContent(contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	if content == nil {
		return nil, nil
	}

	status := &Status{Phase: content.AutoCommentPhase}
	if status.Phase == "" {
		status.Phase = PhaseIdle
	}

	job, err := s.jobs.GetJob(contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment job: %w", err)
	}
	if job != nil {
		status.BeforeDone = job.BeforeDone
		status.BeforeTotal = job.BeforeTotal
		status.AfterDone = job.AfterDone
		status.AfterTotal = job.AfterTotal
	}

	// The caller-configured counts win over whatever the job reports.
	if configured := metaInt(content.Metadata, MetaBeforeCount); configured > 0 {
		status.BeforeTotal = configured
	}
	if configured := metaInt(content.Metadata, MetaAfterCount); configured > 0 {
		status.AfterTotal = configured
	}

	if status.BeforeDone > status.BeforeTotal {
		status.BeforeDone = status.BeforeTotal
	}
	if status.AfterDone > status.AfterTotal {
		status.AfterDone = status.AfterTotal
	}

	return status, nil
}

// WaitForBeforeDone polls until the content leaves before_pending, the wait
// budget runs out, or ctx is done. It returns the last observed phase; the
// caller proceeds with publishing either way.
func WaitForBeforeDone(ctx context.Context, contents database.ContentRepository, contentID string, wait time.Duration) string {
	deadline := time.Now().Add(wait)
	phase := PhaseBeforePending

	for time.Now().Before(deadline) {
		content, err := contents.GetContent(contentID)
		if err != nil || content == nil {
			return phase
		}

		phase = content.AutoCommentPhase
		if phase != PhaseBeforePending {
			return phase
		}

		select {
		case <-ctx.Done():
			return phase
		case <-time.After(beforePollInterval):
		}
	}

	return phase
}

// metaInt reads an int out of a JSON-decoded metadata map, where numbers
// arrive as float64.
func metaInt(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	switch v := metadata[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
