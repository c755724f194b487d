package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"tourdesk/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupServiceRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	r := newRequest("REQ-BK")
	require.NoError(t, db.CreateRequest(ctx, r))

	dir := t.TempDir()
	logger := zerolog.Nop()
	svc := NewBackupService(db.Path(), config.BackupConfig{
		Enabled:       true,
		RetentionDays: 14,
		StoragePath:   dir,
	}, &logger)

	require.NoError(t, svc.Run())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "backup_")

	// The snapshot is a readable database containing the data.
	snap, err := NewDB(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer snap.Close()

	got, err := snap.GetRequestByCode(ctx, "REQ-BK")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
}

func TestBackupServiceDisabled(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	svc := NewBackupService("does-not-matter.db", config.BackupConfig{
		Enabled:     false,
		StoragePath: dir,
	}, &logger)

	require.NoError(t, svc.Run())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
