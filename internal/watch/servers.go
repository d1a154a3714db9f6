package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/justchokingaround/watchline/internal/prefs"
)

// supportedServers are the real mirrors kept from an upstream list
var supportedServers = []ServerName{ServerHD1, ServerHD2, ServerHD3}

// recognizedServers bounds the kind-only preference match
var recognizedServers = []ServerName{ServerHD1, ServerHD2, ServerHD3, ServerHD4}

// Aggregator entries appended by SynthesizeAggregators. The ids are fixed so a
// saved selection keeps pointing at the same entry across episodes.
var (
	aggregatorSub = Server{Name: ServerHD4, Kind: KindSub, MirrorID: "69696969", ServerID: "41"}
	aggregatorDub = Server{Name: ServerHD4, Kind: KindDub, MirrorID: "96969696", ServerID: "42"}
)

// FilterSupported drops mirrors whose name is not HD-1, HD-2 or HD-3
func FilterSupported(servers []Server) []Server {
	return lo.Filter(servers, func(s Server, _ int) bool {
		return lo.Contains(supportedServers, s.Name)
	})
}

// SynthesizeAggregators returns a copy of servers with an HD-4 entry appended
// for each kind present: one for sub, one for dub, at most two in total.
func SynthesizeAggregators(servers []Server) []Server {
	out := make([]Server, len(servers), len(servers)+2)
	copy(out, servers)

	if lo.ContainsBy(servers, func(s Server) bool { return s.Kind == KindSub }) {
		out = append(out, aggregatorSub)
	}
	if lo.ContainsBy(servers, func(s Server) bool { return s.Kind == KindDub }) {
		out = append(out, aggregatorDub)
	}
	return out
}

// SelectServer picks the active mirror by precedence: saved name and kind,
// saved name, saved kind among recognized names, then the first entry.
// ok is false only for an empty list.
func SelectServer(servers []Server, pref prefs.ServerPreference) (Server, bool) {
	name, kind := ServerName(pref.Name), ServerKind(pref.Kind)

	if s, ok := lo.Find(servers, func(s Server) bool { return s.Name == name && s.Kind == kind }); ok {
		return s, true
	}
	if s, ok := lo.Find(servers, func(s Server) bool { return s.Name == name }); ok {
		return s, true
	}
	if s, ok := lo.Find(servers, func(s Server) bool {
		return s.Kind == kind && lo.Contains(recognizedServers, s.Name)
	}); ok {
		return s, true
	}
	return lo.First(servers)
}

// ServerListResult is a resolved mirror list and the chosen entry
type ServerListResult struct {
	Servers  []Server
	Selected *Server
}

// ServerListResolver fetches, filters and ranks mirrors for an episode
type ServerListResolver struct {
	mirrors Mirrors
	store   prefs.Store
	logger  *slog.Logger
}

// NewServerListResolver creates a ServerListResolver
func NewServerListResolver(mirrors Mirrors, store prefs.Store, logger *slog.Logger) *ServerListResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerListResolver{mirrors: mirrors, store: store, logger: logger}
}

// Resolve fetches the mirror list and selects an entry using the saved preference.
// It does not persist the choice; call Remember once the result is accepted.
func (r *ServerListResolver) Resolve(ctx context.Context, titleID string, ep EpisodeSelector) (*ServerListResult, error) {
	raw, err := r.mirrors.FetchServers(ctx, titleID, ep)
	if err != nil {
		return nil, newError(ServerListError, fmt.Errorf("failed to fetch servers for %s ep %s: %w", titleID, ep, err))
	}

	servers := SynthesizeAggregators(FilterSupported(raw))
	if dropped := len(raw) - (len(servers) - aggregatorCount(servers)); dropped > 0 {
		r.logger.Debug("dropped unsupported mirrors", "title", titleID, "ep", ep, "count", dropped)
	}

	pref, err := prefs.LoadServerPreference(r.store)
	if err != nil {
		// a broken store should not block playback
		r.logger.Warn("failed to load server preference", "error", err)
	}

	result := &ServerListResult{Servers: servers}
	if s, ok := SelectServer(servers, pref); ok {
		result.Selected = &s
	}
	return result, nil
}

// Remember persists sel as the preferred mirror
func (r *ServerListResolver) Remember(sel Selection) {
	err := prefs.SaveServerPreference(r.store, prefs.ServerPreference{
		Name: string(sel.Name),
		Kind: string(sel.Kind),
	})
	if err != nil {
		r.logger.Warn("failed to save server preference", "error", err)
	}
}

func aggregatorCount(servers []Server) int {
	return lo.CountBy(servers, func(s Server) bool { return s.Name == ServerHD4 })
}
