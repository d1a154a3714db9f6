package prefs

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/justchokingaround/watchline/internal/database"
)

// SQLStore keeps preferences in the settings table
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore creates a store over an opened database
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Get implements Store
func (s *SQLStore) Get(key string) (string, bool, error) {
	var row database.Setting
	err := s.db.Where("key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to load setting %q: %w", key, err)
	}
	return row.Value, true, nil
}

// Set implements Store
func (s *SQLStore) Set(key, value string) error {
	err := s.db.Exec(`
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}
	return nil
}

// Delete implements Store
func (s *SQLStore) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&database.Setting{}).Error
}

// Keys lists stored keys with the given prefix, in key order
func (s *SQLStore) Keys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.Model(&database.Setting{}).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return keys, nil
}
