package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/nota-flow/internal/storage"
)

// createTestStorage opens a migrated SQLite database in a temp dir.
func createTestStorage(t *testing.T) *storage.SQLStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "nota.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}
