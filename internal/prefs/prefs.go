// Package prefs persists small plain-text preferences across restarts.
package prefs

import (
	"fmt"
	"strings"
	"sync"
)

// Keys shared with the rest of the application
const (
	KeyServerName  = "server_name"
	KeyServerType  = "server_type"
	KeyHidePopup   = "hideDiscordPopup"
	SchedulePrefix = "schedule-"
)

// Store is a string key/value store. Get reports ok=false for missing keys.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// ServerPreference is the last mirror the user ended up on
type ServerPreference struct {
	Name string
	Kind string
}

// LoadServerPreference reads the saved mirror preference; missing keys yield empty fields
func LoadServerPreference(s Store) (ServerPreference, error) {
	name, _, err := s.Get(KeyServerName)
	if err != nil {
		return ServerPreference{}, fmt.Errorf("failed to read %s: %w", KeyServerName, err)
	}
	kind, _, err := s.Get(KeyServerType)
	if err != nil {
		return ServerPreference{}, fmt.Errorf("failed to read %s: %w", KeyServerType, err)
	}
	return ServerPreference{Name: name, Kind: kind}, nil
}

// SaveServerPreference stores the chosen mirror name and kind
func SaveServerPreference(s Store, p ServerPreference) error {
	if err := s.Set(KeyServerName, p.Name); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeyServerName, err)
	}
	if err := s.Set(KeyServerType, p.Kind); err != nil {
		return fmt.Errorf("failed to write %s: %w", KeyServerType, err)
	}
	return nil
}

// ClearServerPreference forgets the saved mirror
func ClearServerPreference(s Store) error {
	if err := s.Delete(KeyServerName); err != nil {
		return err
	}
	return s.Delete(KeyServerType)
}

// PopupHidden reports whether the community popup was dismissed for good.
// Any non-empty value counts, matching how the flag was always read.
func PopupHidden(s Store) (bool, error) {
	v, ok, err := s.Get(KeyHidePopup)
	if err != nil {
		return false, err
	}
	return ok && strings.TrimSpace(v) != "", nil
}

// HidePopup permanently suppresses the community popup
func HidePopup(s Store) error {
	return s.Set(KeyHidePopup, "true")
}

// MemoryStore is an in-process Store
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get implements Store
func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Set implements Store
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// Delete implements Store
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
