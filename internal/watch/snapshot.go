package watch

import (
	"errors"
	"time"
)

// State is the coarse position of a session in the pipeline
type State string

const (
	StateIdle           State = "idle"
	StateLoadingCatalog State = "loading_catalog"
	StateLoadingServers State = "loading_servers"
	StateLoadingStream  State = "loading_stream"
	StateReady          State = "ready"
	StateError          State = "error"
)

func loadingState(name StageName) State {
	switch name {
	case StageCatalog:
		return StateLoadingCatalog
	case StageServers:
		return StateLoadingServers
	default:
		return StateLoadingStream
	}
}

// Snapshot is a copy of everything a player or UI needs. Slices are shared
// with the session and must not be modified.
type Snapshot struct {
	State   State  `json:"state"`
	TitleID string `json:"title_id"`

	Title         *TitleDetails   `json:"title,omitempty"`
	Episodes      []Episode       `json:"episodes,omitempty"`
	TotalEpisodes int             `json:"total_episodes"`
	Selector      EpisodeSelector `json:"episode_selector,omitempty"`
	EpisodeNumber int             `json:"episode_number,omitempty"`
	NextEpisodeAt *time.Time      `json:"next_episode_at,omitempty"`

	Servers       []Server   `json:"servers,omitempty"`
	ActiveServer  *Selection `json:"active_server,omitempty"`
	ServerLoading bool       `json:"server_loading"`

	Buffering      bool            `json:"buffering"`
	StreamURL      string          `json:"stream_url,omitempty"`
	SubtitleTracks []SubtitleTrack `json:"subtitle_tracks,omitempty"`
	ThumbnailTrack string          `json:"thumbnail_track,omitempty"`
	Intro          *Range          `json:"intro,omitempty"`
	Outro          *Range          `json:"outro,omitempty"`

	Err *Error `json:"-"`
}

// ErrorKind returns the kind of the current error, or "" when there is none
func (s Snapshot) ErrorKind() ErrorKind {
	if s.Err == nil {
		return ""
	}
	return s.Err.Kind
}

// SelfContained reports whether the active mirror plays without a manifest
func (s Snapshot) SelfContained() bool {
	return s.State == StateReady && s.ActiveServer != nil && SelfContained(s.ActiveServer.Name)
}

// Guidance is the user-facing hint for the current failure. A failed mirror
// with alternatives suggests switching; anything else suggests reloading.
func (s Snapshot) Guidance() string {
	switch {
	case s.Err == nil:
		return ""
	case s.Err.Kind == NoEpisodesError:
		return "This title has no episodes yet"
	case s.Err.Kind == ManifestFetchError && len(s.Servers) > 0:
		return "Probably this server is down, try other servers. Either reload or try again after some time"
	case errors.Is(s.Err, ErrNoMirrors):
		return "No streaming servers are available for this episode. Try again after some time"
	default:
		return "Probably streaming server is down. Either reload or try again after some time"
	}
}
