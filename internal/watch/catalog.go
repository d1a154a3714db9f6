package watch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// CatalogResult is a resolved catalog plus the effective episode
type CatalogResult struct {
	Title         *TitleDetails
	Episodes      []Episode
	TotalEpisodes int
	Selector      EpisodeSelector
	// Episode is the catalog entry for Selector, nil when the catalog is empty
	Episode *Episode
}

// Empty reports whether no episode can be resolved
func (r *CatalogResult) Empty() bool {
	return len(r.Episodes) == 0
}

// CatalogResolver fetches title metadata and episodes for a title
type CatalogResolver struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewCatalogResolver creates a CatalogResolver
func NewCatalogResolver(catalog Catalog, logger *slog.Logger) *CatalogResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogResolver{catalog: catalog, logger: logger}
}

// Resolve fetches metadata and episodes concurrently and derives the effective selector.
// Fetch failures are returned as *Error with kind CatalogFetchError.
func (r *CatalogResolver) Resolve(ctx context.Context, titleID string, explicit EpisodeSelector) (*CatalogResult, error) {
	var (
		title    *TitleDetails
		episodes *EpisodeList
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := r.catalog.FetchTitle(gctx, titleID)
		if err != nil {
			return fmt.Errorf("failed to fetch title %s: %w", titleID, err)
		}
		title = t
		return nil
	})
	g.Go(func() error {
		e, err := r.catalog.FetchEpisodes(gctx, titleID)
		if err != nil {
			return fmt.Errorf("failed to fetch episodes for %s: %w", titleID, err)
		}
		episodes = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, newError(CatalogFetchError, err)
	}

	result := &CatalogResult{Title: title}
	if episodes != nil {
		result.Episodes = episodes.Episodes
		result.TotalEpisodes = episodes.TotalEpisodes
	}
	if result.TotalEpisodes == 0 {
		result.TotalEpisodes = len(result.Episodes)
	}

	result.Selector, result.Episode = ResolveSelector(result.Episodes, explicit)
	if explicit != "" && result.Selector != explicit {
		r.logger.Debug("requested episode not in catalog, using first episode",
			"title", titleID, "requested", explicit, "resolved", result.Selector)
	}

	return result, nil
}

// ResolveSelector picks the effective episode. An explicit selector present in
// the catalog wins; otherwise the first catalog episode is used. An empty
// catalog keeps the explicit selector (possibly empty) and returns no episode.
func ResolveSelector(episodes []Episode, explicit EpisodeSelector) (EpisodeSelector, *Episode) {
	if len(episodes) == 0 {
		return explicit, nil
	}

	if explicit != "" {
		if ep, ok := lo.Find(episodes, func(e Episode) bool { return e.Selector() == explicit }); ok {
			return explicit, &ep
		}
	}

	first := episodes[0]
	return first.Selector(), &first
}
