package database

import (
	"encoding/json"
	"fmt"
	"time"
)

var _ AutomationRepository = (*AutomationRepo)(nil)

// AutomationRepo handles database operations for comment-to-DM automations
type AutomationRepo struct {
	db *DB
}

func NewAutomationRepo(db *DB) *AutomationRepo {
	return &AutomationRepo{db: db}
}

func (r *AutomationRepo) GetEnabledByPlatform(platform string) ([]Automation, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, enabled, platforms, keyword, post_ref,
		       reply_variants, dm_template, trigger_count, dm_count,
		       last_comment_id, last_processed_at, created_at, updated_at
		FROM automations
		WHERE enabled = 1
		ORDER BY user_id, created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get enabled automations: %w", err)
	}
	defer rows.Close()

	var automations []Automation
	for rows.Next() {
		var a Automation
		var enabled int
		var platforms, variants string

		err := rows.Scan(&a.ID, &a.UserID, &enabled, &platforms, &a.Keyword,
			&a.PostRef, &variants, &a.DMTemplate, &a.TriggerCount, &a.DMCount,
			&a.LastCommentID, &a.LastProcessedAt, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation row: %w", err)
		}

		a.Enabled = enabled != 0
		if err := json.Unmarshal([]byte(platforms), &a.Platforms); err != nil {
			return nil, fmt.Errorf("failed to decode automation platforms: %w", err)
		}
		if err := json.Unmarshal([]byte(variants), &a.ReplyVariants); err != nil {
			return nil, fmt.Errorf("failed to decode reply variants: %w", err)
		}

		if !containsString(a.Platforms, platform) {
			continue
		}

		automations = append(automations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automation rows: %w", err)
	}

	return automations, nil
}

func (r *AutomationRepo) CreateAutomation(a *Automation) error {
	platforms, err := json.Marshal(a.Platforms)
	if err != nil {
		return fmt.Errorf("failed to encode automation platforms: %w", err)
	}
	variants, err := json.Marshal(a.ReplyVariants)
	if err != nil {
		return fmt.Errorf("failed to encode reply variants: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO automations (id, user_id, enabled, platforms, keyword,
		                         post_ref, reply_variants, dm_template,
		                         trigger_count, dm_count, last_comment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.UserID, boolToInt(a.Enabled), string(platforms), a.Keyword,
		a.PostRef, string(variants), a.DMTemplate, a.TriggerCount, a.DMCount,
		a.LastCommentID)
	if err != nil {
		return fmt.Errorf("failed to create automation: %w", err)
	}

	return nil
}

func (r *AutomationRepo) GetAutomationCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM automations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count automations: %w", err)
	}
	return count, nil
}

func (r *AutomationRepo) UpdateCursor(id, lastCommentID string, processedAt time.Time, triggerDelta, dmDelta int) error {
	_, err := r.db.Exec(`
		UPDATE automations
		SET last_comment_id = ?, last_processed_at = ?,
		    trigger_count = trigger_count + ?, dm_count = dm_count + ?,
		    updated_at = ?
		WHERE id = ?
	`, lastCommentID, processedAt, triggerDelta, dmDelta, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update automation cursor: %w", err)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
