package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ CommentJobRepository = (*CommentJobRepo)(nil)

// CommentJobRepo handles database operations for auto-comment job progress
type CommentJobRepo struct {
	db *DB
}

func NewCommentJobRepo(db *DB) *CommentJobRepo {
	return &CommentJobRepo{db: db}
}

func (r *CommentJobRepo) GetJob(contentID string) (*CommentJob, error) {
	var job CommentJob

	err := r.db.QueryRow(`
		SELECT content_id, before_done, before_total, after_done, after_total, updated_at
		FROM comment_jobs
		WHERE content_id = ?
	`, contentID).Scan(&job.ContentID, &job.BeforeDone, &job.BeforeTotal,
		&job.AfterDone, &job.AfterTotal, &job.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment job: %w", err)
	}

	return &job, nil
}

func (r *CommentJobRepo) EnsureJob(contentID string, beforeTotal, afterTotal int) error {
	_, err := r.db.Exec(`
		INSERT INTO comment_jobs (content_id, before_total, after_total, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (content_id) DO UPDATE SET
			before_done = 0,
			before_total = excluded.before_total,
			after_done = 0,
			after_total = excluded.after_total,
			updated_at = excluded.updated_at
	`, contentID, beforeTotal, afterTotal, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to ensure comment job: %w", err)
	}
	return nil
}

func (r *CommentJobRepo) IncrementBeforeDone(contentID string) error {
	_, err := r.db.Exec(`
		UPDATE comment_jobs
		SET before_done = before_done + 1, updated_at = ?
		WHERE content_id = ?
	`, time.Now().UTC(), contentID)
	if err != nil {
		return fmt.Errorf("failed to increment before counter: %w", err)
	}
	return nil
}

func (r *CommentJobRepo) IncrementAfterDone(contentID string) error {
	_, err := r.db.Exec(`
		UPDATE comment_jobs
		SET after_done = after_done + 1, updated_at = ?
		WHERE content_id = ?
	`, time.Now().UTC(), contentID)
	if err != nil {
		return fmt.Errorf("failed to increment after counter: %w", err)
	}
	return nil
}
