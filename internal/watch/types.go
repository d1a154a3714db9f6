// Package watch resolves a title and episode into a playable stream.
//
// A Session chains three dependent stages: the episode catalog, the mirror
// (server) list and the stream manifest. Each stage is guarded against
// overlapping fetches and every result is checked against the identity that
// requested it before it is applied, so superseded responses are dropped.
package watch

import (
	"context"
	"regexp"
	"time"
)

// EpisodeSelector is the episode number carried in an episode id ("...?ep=12").
// The empty selector means "not chosen".
type EpisodeSelector string

var episodeSelectorPattern = regexp.MustCompile(`ep=(\d+)`)

// ParseSelector extracts the selector embedded in an episode id
func ParseSelector(episodeID string) EpisodeSelector {
	m := episodeSelectorPattern.FindStringSubmatch(episodeID)
	if len(m) < 2 {
		return ""
	}
	return EpisodeSelector(m[1])
}

// Episode is one catalog entry. Catalog order is preserved.
type Episode struct {
	ID            string `json:"id"`
	Number        int    `json:"number"`
	Title         string `json:"title,omitempty"`
	JapaneseTitle string `json:"japanese_title,omitempty"`
	Filler        bool   `json:"filler,omitempty"`
}

// Selector returns the selector embedded in the episode id
func (e Episode) Selector() EpisodeSelector {
	return ParseSelector(e.ID)
}

// TitleDetails is title metadata passed through to presentation
type TitleDetails struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	JapaneseTitle string   `json:"japanese_title,omitempty"`
	Poster        string   `json:"poster,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Seasons       []Season `json:"seasons,omitempty"`
}

// Season links to a related title
type Season struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Poster string `json:"poster,omitempty"`
}

// EpisodeList is the ordered catalog for a title
type EpisodeList struct {
	TotalEpisodes int       `json:"total_episodes"`
	Episodes      []Episode `json:"episodes"`
}

// ServerName identifies a mirror family
type ServerName string

const (
	ServerHD1 ServerName = "HD-1"
	ServerHD2 ServerName = "HD-2"
	ServerHD3 ServerName = "HD-3"
	// ServerHD4 is the synthetic aggregator entry; it is never fetched.
	ServerHD4 ServerName = "HD-4"
)

// ServerKind is the audio variant of a mirror
type ServerKind string

const (
	KindSub ServerKind = "sub"
	KindDub ServerKind = "dub"
)

// Server describes one mirror for an episode
type Server struct {
	Name     ServerName `json:"name"`
	Kind     ServerKind `json:"kind"`
	MirrorID string     `json:"mirror_id"`
	ServerID string     `json:"server_id,omitempty"`
}

// Selection is the active mirror
type Selection struct {
	MirrorID string     `json:"mirror_id"`
	Name     ServerName `json:"name"`
	Kind     ServerKind `json:"kind"`
}

// Selection returns the selection that points at s
func (s Server) Selection() Selection {
	return Selection{MirrorID: s.MirrorID, Name: s.Name, Kind: s.Kind}
}

// Range is a skip marker in seconds
type Range struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Track is a raw text track as returned by a mirror
type Track struct {
	File    string `json:"file"`
	Label   string `json:"label,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// SubtitleTrack is a caption track offered to the player
type SubtitleTrack struct {
	File  string `json:"file"`
	Label string `json:"label"`
}

// RawManifest is what a mirror returns before extraction
type RawManifest struct {
	StreamURL string  `json:"stream_url"`
	Tracks    []Track `json:"tracks"`
	Intro     *Range  `json:"intro,omitempty"`
	Outro     *Range  `json:"outro,omitempty"`
}

// Manifest is the playable description handed to the player.
// Every field is optional.
type Manifest struct {
	StreamURL      string          `json:"stream_url,omitempty"`
	SubtitleTracks []SubtitleTrack `json:"subtitle_tracks"`
	ThumbnailTrack string          `json:"thumbnail_track,omitempty"`
	Intro          *Range          `json:"intro,omitempty"`
	Outro          *Range          `json:"outro,omitempty"`
}

// Catalog fetches title metadata and episode lists
type Catalog interface {
	FetchTitle(ctx context.Context, titleID string) (*TitleDetails, error)
	FetchEpisodes(ctx context.Context, titleID string) (*EpisodeList, error)
}

// Mirrors fetches the raw mirror list for an episode
type Mirrors interface {
	FetchServers(ctx context.Context, titleID string, ep EpisodeSelector) ([]Server, error)
}

// Streams fetches a mirror's manifest. mirror is the normalized request name.
type Streams interface {
	FetchManifest(ctx context.Context, titleID string, ep EpisodeSelector, mirror string, kind ServerKind) (*RawManifest, error)
}

// Airing reports when the next episode of a title airs. ok is false when unknown.
type Airing interface {
	NextEpisodeAt(ctx context.Context, titleID string) (at time.Time, ok bool, err error)
}
