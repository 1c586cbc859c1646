package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ ConnectionRepository = (*ConnectionRepo)(nil)

// ConnectionRepo handles database operations for social connections
type ConnectionRepo struct {
	db *DB
}

func NewConnectionRepo(db *DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

func (r *ConnectionRepo) GetConnection(userID, platform string) (*SocialConnection, error) {
	var conn SocialConnection

	err := r.db.QueryRow(`
		SELECT id, user_id, platform, account_id, account_username,
		       access_token_enc, refresh_token_enc, token_expires_at,
		       created_at, updated_at
		FROM social_connections
		WHERE user_id = ? AND platform = ?
	`, userID, platform).Scan(&conn.ID, &conn.UserID, &conn.Platform,
		&conn.AccountID, &conn.AccountUsername, &conn.AccessTokenEnc,
		&conn.RefreshTokenEnc, &conn.TokenExpiresAt, &conn.CreatedAt, &conn.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get social connection: %w", err)
	}

	return &conn, nil
}

func (r *ConnectionRepo) CreateConnection(conn *SocialConnection) error {
	_, err := r.db.Exec(`
		INSERT INTO social_connections (id, user_id, platform, account_id,
		                                account_username, access_token_enc,
		                                refresh_token_enc, token_expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, conn.ID, conn.UserID, conn.Platform, conn.AccountID, conn.AccountUsername,
		conn.AccessTokenEnc, conn.RefreshTokenEnc, conn.TokenExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create social connection: %w", err)
	}
	return nil
}

func (r *ConnectionRepo) GetConnectionCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM social_connections`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count social connections: %w", err)
	}
	return count, nil
}

func (r *ConnectionRepo) UpdateTokens(id string, accessTokenEnc, refreshTokenEnc []byte, expiresAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE social_connections
		SET access_token_enc = ?, refresh_token_enc = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?
	`, accessTokenEnc, refreshTokenEnc, expiresAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	return nil
}
