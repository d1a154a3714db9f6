// Package schedule caches the per-day airing schedule in the preference store.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/justchokingaround/watchline/internal/prefs"
)

// DateLayout is the calendar date format used for cache keys
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for dates not in YYYY-MM-DD form
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// Entry is one episode airing on a given day
type Entry struct {
	ID            string `json:"id"`
	DataID        string `json:"data_id,omitempty"`
	Title         string `json:"title"`
	JapaneseTitle string `json:"japanese_title,omitempty"`
	ReleaseDate   string `json:"releaseDate,omitempty"`
	Time          string `json:"time,omitempty"`
	EpisodeNo     int    `json:"episode_no,omitempty"`
}

// Fetcher loads the schedule for a date from upstream
type Fetcher interface {
	FetchSchedule(ctx context.Context, date string) ([]Entry, error)
}

// Cache serves schedules from the store and fetches each date at most once.
// Entries never expire.
type Cache struct {
	store   prefs.Store
	fetcher Fetcher
	group   singleflight.Group
	logger  *slog.Logger
}

// NewCache creates a Cache
func NewCache(store prefs.Store, fetcher Fetcher, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, fetcher: fetcher, logger: logger}
}

// Key returns the store key for a date
func Key(date string) string {
	return prefs.SchedulePrefix + date
}

// Lookup returns the schedule for date, fetching and storing it on a miss.
// Concurrent lookups for the same date share one fetch.
func (c *Cache) Lookup(ctx context.Context, date string) ([]Entry, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	if entries, ok := c.cached(date); ok {
		return entries, nil
	}

	v, err, shared := c.group.Do(date, func() (any, error) {
		if entries, ok := c.cached(date); ok {
			return entries, nil
		}
		return c.fetch(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("schedule lookup shared an in-flight fetch", "date", date)
	}
	return v.([]Entry), nil
}

func (c *Cache) cached(date string) ([]Entry, bool) {
	raw, ok, err := c.store.Get(Key(date))
	if err != nil {
		c.logger.Warn("failed to read cached schedule", "date", date, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		c.logger.Warn("discarding unreadable cached schedule", "date", date, "error", err)
		return nil, false
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, true
}

func (c *Cache) fetch(ctx context.Context, date string) ([]Entry, error) {
	entries, err := c.fetcher.FetchSchedule(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule for %s: %w", date, err)
	}
	if entries == nil {
		entries = []Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schedule: %w", err)
	}
	if err := c.store.Set(Key(date), string(data)); err != nil {
		// still usable for this lookup
		c.logger.Warn("failed to cache schedule", "date", date, "error", err)
	}

	c.logger.Debug("schedule fetched", "date", date, "entries", len(entries))
	return entries, nil
}

// Week returns seven consecutive dates starting at from, in from's location
func Week(from time.Time) []string {
	dates := make([]string, 0, 7)
	for i := range 7 {
		dates = append(dates, from.AddDate(0, 0, i).Format(DateLayout))
	}
	return dates
}
