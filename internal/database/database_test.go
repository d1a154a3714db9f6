package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/watchline/internal/config"
)

func TestOpen(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		db, err := Open(&config.DatabaseConfig{Path: MemoryPath, MaxConnections: 8})
		require.NoError(t, err)
		defer func() { _ = Close(db) }()

		assert.True(t, db.Migrator().HasTable(&Setting{}))

		sqlDB, err := db.DB()
		require.NoError(t, err)
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "watchline.db")
		db, err := Open(&config.DatabaseConfig{Path: path, MaxConnections: 2, WALMode: true})
		require.NoError(t, err)
		require.NoError(t, Close(db))

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("settings survive reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "watchline.db")
		cfg := &config.DatabaseConfig{Path: path, MaxConnections: 1}

		db, err := Open(cfg)
		require.NoError(t, err)
		require.NoError(t, db.Create(&Setting{Key: "server_name", Value: "HD-2"}).Error)
		require.NoError(t, Close(db))

		db, err = Open(cfg)
		require.NoError(t, err)
		defer func() { _ = Close(db) }()

		var s Setting
		require.NoError(t, db.First(&s, "key = ?", "server_name").Error)
		assert.Equal(t, "HD-2", s.Value)
	})
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
