package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)
}

func TestMigrations_AppliedOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "index.db")
	ctx := context.Background()

	first, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "/p", []string{"a"}))
	require.NoError(t, first.Close())

	// Reopening must not re-run migrations or lose data.
	second, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	defer second.Close()

	v, err := schemaVersion(ctx, second.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	fps, err := second.Load(ctx, "/p")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, fps)
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))
	v, err := schemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, ApplyMigrations(ctx, storage.db))
	require.NoError(t, storage.SetAlias(ctx, "x", "/x"))
}

func TestSave_ProjectSummary(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, "/b", []string{"1", "2", "3"}))
	require.NoError(t, storage.Save(ctx, "/a", []string{"1"}))

	projects, err := storage.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "/a", projects[0].Key)
	assert.Equal(t, 3, projects[1].Blobs)
	assert.False(t, projects[1].UpdatedAt.IsZero())
}

func TestSave_CancelledContextKeepsPreviousList(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	require.NoError(t, storage.Save(context.Background(), "/p", []string{"old"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, storage.Save(ctx, "/p", []string{"new"}))

	fps, err := storage.Load(context.Background(), "/p")
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, fps)
}
