package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.db")

	db, err := NewDB(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path)

	for _, table := range []string{"meal_plans", "profiles", "execution_metrics", "sessions"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}

	var mode string
	require.NoError(t, db.SQL.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
	require.NoError(t, db.Close())

	// Re-opening an up-to-date database is a no-op migration
	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	db, err = NewDB(path, nil)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
