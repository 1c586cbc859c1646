package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

var _ ContentRepository = (*ContentRepo)(nil)

// ContentRepo handles database operations for content items
type ContentRepo struct {
	db *DB
}

func NewContentRepo(db *DB) *ContentRepo {
	return &ContentRepo{db: db}
}

func (r *ContentRepo) GetContent(id string) (*ContentItem, error) {
	var item ContentItem
	var metadata string
	var enabled int

	err := r.db.QueryRow(`
		SELECT id, user_id, title, body, status, metadata,
		       auto_comment_enabled, auto_comment_phase, created_at, updated_at
		FROM content_items
		WHERE id = ?
	`, id).Scan(&item.ID, &item.UserID, &item.Title, &item.Body, &item.Status,
		&metadata, &enabled, &item.AutoCommentPhase, &item.CreatedAt, &item.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	item.AutoCommentEnabled = enabled != 0
	if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode content metadata: %w", err)
	}

	return &item, nil
}

func (r *ContentRepo) CreateContent(item *ContentItem) error {
	metadata := item.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode content metadata: %w", err)
	}

	phase := item.AutoCommentPhase
	if phase == "" {
		phase = "idle"
	}
	status := item.Status
	if status == "" {
		status = "draft"
	}

	_, err = r.db.Exec(`
		INSERT INTO content_items (id, user_id, title, body, status, metadata,
		                           auto_comment_enabled, auto_comment_phase)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.UserID, item.Title, item.Body, status, string(encoded),
		boolToInt(item.AutoCommentEnabled), phase)
	if err != nil {
		return fmt.Errorf("failed to create content item: %w", err)
	}

	return nil
}

func (r *ContentRepo) GetContentCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM content_items`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count content items: %w", err)
	}
	return count, nil
}

func (r *ContentRepo) MergeMetadata(id string, patch map[string]any) error {
	return r.mergeMetadata(id, patch, false)
}

func (r *ContentRepo) MarkPublished(id string, patch map[string]any) error {
	return r.mergeMetadata(id, patch, true)
}

// mergeMetadata performs the fetch-then-merge update inside a transaction so
// keys written by other flows (stored images, AI drafts) are never dropped.
func (r *ContentRepo) mergeMetadata(id string, patch map[string]any, markPublished bool) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRow(`SELECT metadata FROM content_items WHERE id = ?`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("content item %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read content metadata: %w", err)
	}

	merged := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &merged); err != nil {
		return fmt.Errorf("failed to decode content metadata: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}

	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode content metadata: %w", err)
	}

	if markPublished {
		_, err = tx.Exec(`
			UPDATE content_items
			SET metadata = ?, status = 'published', updated_at = ?
			WHERE id = ?
		`, string(encoded), time.Now().UTC(), id)
	} else {
		_, err = tx.Exec(`
			UPDATE content_items
			SET metadata = ?, updated_at = ?
			WHERE id = ?
		`, string(encoded), time.Now().UTC(), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update content metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata update: %w", err)
	}

	return nil
}

func (r *ContentRepo) AdvancePhase(id, from, to string) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE content_items
		SET auto_comment_phase = ?, updated_at = ?
		WHERE id = ? AND auto_comment_phase = ?
	`, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to advance phase: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (r *ContentRepo) SetAutoCommentEnabled(id string, enabled bool) error {
	result, err := r.db.Exec(`
		UPDATE content_items
		SET auto_comment_enabled = ?, updated_at = ?
		WHERE id = ?
	`, boolToInt(enabled), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set auto-comment flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("content item %s not found", id)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
