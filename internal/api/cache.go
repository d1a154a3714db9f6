package api

import (
	"sync"

	"github.com/justchokingaround/watchline/internal/watch"
)

// TitleCache caches title metadata to avoid refetching it when a title is reopened
type TitleCache struct {
	mu   sync.RWMutex
	data map[string]*watch.TitleDetails
}

// NewTitleCache creates a new TitleCache
func NewTitleCache() *TitleCache {
	return &TitleCache{
		data: make(map[string]*watch.TitleDetails),
	}
}

// Get retrieves cached metadata
func (c *TitleCache) Get(titleID string) (*watch.TitleDetails, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.data[titleID]
	return val, ok
}

// Set stores metadata in the cache
func (c *TitleCache) Set(titleID string, val *watch.TitleDetails) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[titleID] = val
}
