package watch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

// mirrorAliases maps a mirror to the name it must be requested under.
// Upstream serves HD-3 streams from the HD-1 endpoint; the reason is not
// documented by the provider, so the mapping is kept explicit here.
var mirrorAliases = map[ServerName]ServerName{
	ServerHD3: ServerHD1,
}

// selfContained mirrors are played without a manifest fetch
var selfContained = []ServerName{ServerHD1, ServerHD4}

const (
	trackKindCaptions   = "captions"
	trackKindThumbnails = "thumbnails"
)

// RequestName is the lowercase mirror name sent upstream for a manifest
func RequestName(name ServerName) string {
	if alias, ok := mirrorAliases[ServerName(strings.ToUpper(string(name)))]; ok {
		name = alias
	}
	return strings.ToLower(string(name))
}

// SelfContained reports whether a mirror skips the manifest fetch
func SelfContained(name ServerName) bool {
	return lo.ContainsBy(selfContained, func(n ServerName) bool {
		return strings.EqualFold(string(n), string(name))
	})
}

// ExtractManifest keeps what the player needs from a raw manifest:
// captions tracks as subtitles and the first thumbnails track with a file.
func ExtractManifest(raw *RawManifest) *Manifest {
	m := &Manifest{SubtitleTracks: []SubtitleTrack{}}
	if raw == nil {
		return m
	}

	m.StreamURL = raw.StreamURL
	m.Intro = raw.Intro
	m.Outro = raw.Outro

	for _, t := range raw.Tracks {
		if t.Kind == trackKindCaptions {
			m.SubtitleTracks = append(m.SubtitleTracks, SubtitleTrack{File: t.File, Label: t.Label})
		}
	}
	if thumb, ok := lo.Find(raw.Tracks, func(t Track) bool {
		return t.Kind == trackKindThumbnails && t.File != ""
	}); ok {
		m.ThumbnailTrack = thumb.File
	}
	return m
}

// ManifestResolver fetches the manifest for the active mirror
type ManifestResolver struct {
	streams Streams
	logger  *slog.Logger
}

// NewManifestResolver creates a ManifestResolver
func NewManifestResolver(streams Streams, logger *slog.Logger) *ManifestResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestResolver{streams: streams, logger: logger}
}

// Resolve looks the selection up in servers by mirror id and fetches its manifest.
// Failures are returned as *Error with kind ManifestFetchError.
func (r *ManifestResolver) Resolve(ctx context.Context, titleID string, ep EpisodeSelector, servers []Server, sel Selection) (*Manifest, error) {
	server, ok := lo.Find(servers, func(s Server) bool { return s.MirrorID == sel.MirrorID })
	if !ok {
		return nil, newError(ManifestFetchError, fmt.Errorf("%w: %s", ErrUnknownMirror, sel.MirrorID))
	}

	mirror := RequestName(server.Name)
	kind := ServerKind(strings.ToLower(string(server.Kind)))
	r.logger.Debug("fetching manifest", "title", titleID, "ep", ep, "mirror", mirror, "kind", kind)

	raw, err := r.streams.FetchManifest(ctx, titleID, ep, mirror, kind)
	if err != nil {
		return nil, newError(ManifestFetchError, fmt.Errorf("failed to fetch manifest from %s/%s: %w", server.Name, kind, err))
	}
	return ExtractManifest(raw), nil
}
