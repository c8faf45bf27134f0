package storage

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/Veraticus/nota-flow/internal/common"
)

const pgDuplicateKeyCode = "23505"

// mapError translates driver errors to the common sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgDuplicateKeyCode {
		return common.ErrDuplicateEntry
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return common.ErrDuplicateEntry
	}

	return err
}
