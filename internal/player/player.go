package player

import (
	"context"
	"time"
)

// Player hands a resolved stream to an external video player
type Player interface {
	// Play blocks until the player exits or ctx is cancelled
	Play(ctx context.Context, url string, options PlayOptions) error
}

// PlayOptions contains options for starting playback
type PlayOptions struct {
	// Playback options
	StartTime  time.Duration `json:"start_time,omitempty"`
	Fullscreen bool          `json:"fullscreen"`

	// Subtitle options
	SubtitleFiles []string `json:"subtitle_files,omitempty"`
	SubtitleLang  string   `json:"subtitle_lang,omitempty"`

	// Headers for HTTP requests
	Headers   map[string]string `json:"headers,omitempty"`
	Referer   string            `json:"referer,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`

	// Metadata for display
	Title   string `json:"title,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

// PlayerInfo contains information about the player binary
type PlayerInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
}
