package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LastSync returns when the user's source was last synced, or nil if never.
func (s *SQLStorage) LastSync(ctx context.Context, userID, source string) (*time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var at time.Time
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT last_sync_at FROM sync_state WHERE user_id = ? AND source = ?`),
		userID, source,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}
	return &at, nil
}

// SetLastSync records the end of a sync run.
func (s *SQLStorage) SetLastSync(ctx context.Context, userID, source string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO sync_state (user_id, source, last_sync_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, source) DO UPDATE SET last_sync_at = excluded.last_sync_at`),
		userID, source, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record sync state: %w", err)
	}
	return nil
}
