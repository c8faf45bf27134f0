package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/nota-flow/internal/service"
)

// RecordEventIfUnder counts key's events after since and records one at now when
// the count is below limit. Check and insert share one database transaction;
// Postgres additionally takes a per-key advisory lock.
func (s *SQLStorage) RecordEventIfUnder(ctx context.Context, key string, since, now time.Time, limit int) (service.EventWindow, error) {
	if err := validateContext(ctx); err != nil {
		return service.EventWindow{}, err
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) (service.EventWindow, error) {
		var w service.EventWindow

		if s.dialect == dialectPostgres {
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
				return w, fmt.Errorf("failed to lock quota key: %w", err)
			}
		}

		rows, err := tx.QueryContext(ctx, s.rebind(`
			SELECT occurred_ns FROM rate_limit_events
			WHERE key = ? AND occurred_ns > ?
			ORDER BY occurred_ns`),
			key, since.UnixNano(),
		)
		if err != nil {
			return w, fmt.Errorf("failed to count events: %w", err)
		}
		for rows.Next() {
			var ns int64
			if err := rows.Scan(&ns); err != nil {
				_ = rows.Close()
				return w, fmt.Errorf("failed to scan event: %w", err)
			}
			if w.Count == 0 {
				w.Oldest = time.Unix(0, ns)
			}
			w.Count++
		}
		if err := rows.Close(); err != nil {
			return w, err
		}
		if err := rows.Err(); err != nil {
			return w, err
		}

		if w.Count >= limit {
			return w, nil
		}

		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO rate_limit_events (key, occurred_ns) VALUES (?, ?)`),
			key, now.UnixNano(),
		); err != nil {
			return w, fmt.Errorf("failed to record event: %w", err)
		}
		w.Recorded = true
		return w, nil
	})
}

// PruneEvents deletes events at or before before.
func (s *SQLStorage) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM rate_limit_events WHERE occurred_ns <= ?`), before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}
