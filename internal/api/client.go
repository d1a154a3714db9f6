// Package api talks to the aniwatch-style JSON API that backs the watch
// pipeline and the schedule.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/justchokingaround/watchline/internal/api/http"
	"github.com/justchokingaround/watchline/internal/config"
	"github.com/justchokingaround/watchline/internal/schedule"
	"github.com/justchokingaround/watchline/internal/watch"
)

// ErrUnsuccessful is returned when the API answers with success=false
var ErrUnsuccessful = errors.New("API reported failure")

// Client implements the watch and schedule collaborators over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	titles     *TitleCache
	debug      bool
	logger     *slog.Logger
}

var (
	_ watch.Catalog    = (*Client)(nil)
	_ watch.Mirrors    = (*Client)(nil)
	_ watch.Streams    = (*Client)(nil)
	_ watch.Airing     = (*Client)(nil)
	_ schedule.Fetcher = (*Client)(nil)
)

// NewClient creates a new API client
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := http.NewClient(http.ClientConfig{
		Timeout:    cfg.API.Timeout,
		MaxRetries: cfg.API.MaxRetries,
		UserAgent:  "watchline/1.0",
		Debug:      cfg.Advanced.Debug,
		Logger:     logger,
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: httpClient,
		titles:     NewTitleCache(),
		debug:      cfg.Advanced.Debug,
		logger:     logger,
	}
}

// FetchTitle retrieves title metadata. Results are cached for the client's lifetime.
func (c *Client) FetchTitle(ctx context.Context, titleID string) (*watch.TitleDetails, error) {
	if t, ok := c.titles.Get(titleID); ok {
		return t, nil
	}

	var resp InfoResponse
	if err := c.get(ctx, "/api/info", map[string]string{"id": titleID}, &resp); err != nil {
		return nil, fmt.Errorf("get info failed: %w", err)
	}

	t := &watch.TitleDetails{
		ID:            resp.Data.ID,
		Title:         resp.Data.Title,
		JapaneseTitle: resp.Data.JapaneseTitle,
		Poster:        resp.Data.Poster,
		Overview:      resp.Data.AnimeInfo.Overview,
	}
	if t.ID == "" {
		t.ID = titleID
	}
	for _, s := range resp.Seasons {
		t.Seasons = append(t.Seasons, watch.Season{ID: s.ID, Title: s.Title, Poster: s.SeasonPoster})
	}

	c.titles.Set(titleID, t)
	return t, nil
}

// FetchEpisodes retrieves the ordered episode list of a title
func (c *Client) FetchEpisodes(ctx context.Context, titleID string) (*watch.EpisodeList, error) {
	var resp EpisodesResponse
	if err := c.get(ctx, "/api/episodes/"+url.PathEscape(titleID), nil, &resp); err != nil {
		return nil, fmt.Errorf("get episodes failed: %w", err)
	}

	list := &watch.EpisodeList{
		TotalEpisodes: resp.TotalEpisodes,
		Episodes:      make([]watch.Episode, 0, len(resp.Episodes)),
	}
	for _, e := range resp.Episodes {
		list.Episodes = append(list.Episodes, watch.Episode{
			ID:            e.ID,
			Number:        e.EpisodeNo,
			Title:         e.Title,
			JapaneseTitle: e.JapaneseTitle,
			Filler:        e.Filler,
		})
	}
	return list, nil
}

// FetchServers retrieves the raw mirror list for an episode
func (c *Client) FetchServers(ctx context.Context, titleID string, ep watch.EpisodeSelector) ([]watch.Server, error) {
	var resp []ServerInfo
	endpoint := "/api/servers/" + url.PathEscape(titleID)
	if err := c.get(ctx, endpoint, map[string]string{"ep": string(ep)}, &resp); err != nil {
		return nil, fmt.Errorf("get servers failed: %w", err)
	}

	servers := make([]watch.Server, 0, len(resp))
	for _, s := range resp {
		servers = append(servers, watch.Server{
			Name:     watch.ServerName(s.ServerName),
			Kind:     watch.ServerKind(strings.ToLower(s.Type)),
			MirrorID: string(s.DataID),
			ServerID: string(s.ServerID),
		})
	}
	return servers, nil
}

// FetchManifest retrieves the streaming link for a mirror. mirror is the
// lowercase request name.
func (c *Client) FetchManifest(ctx context.Context, titleID string, ep watch.EpisodeSelector, mirror string, kind watch.ServerKind) (*watch.RawManifest, error) {
	params := map[string]string{
		"id":     titleID + "?ep=" + string(ep),
		"server": mirror,
		"type":   string(kind),
	}

	var resp StreamResponse
	if err := c.get(ctx, "/api/stream", params, &resp); err != nil {
		return nil, fmt.Errorf("get stream failed: %w", err)
	}
	if len(resp.StreamingLink) == 0 {
		return &watch.RawManifest{}, nil
	}

	link := resp.StreamingLink[0]
	if c.debug {
		c.logger.Debug("stream response", "mirror", mirror, "kind", kind, "links", len(resp.StreamingLink), "tracks", len(link.Tracks))
	}

	raw := &watch.RawManifest{
		StreamURL: link.Link.File,
		Tracks:    make([]watch.Track, 0, len(link.Tracks)),
	}
	for _, t := range link.Tracks {
		raw.Tracks = append(raw.Tracks, watch.Track{File: t.File, Label: t.Label, Kind: t.Kind, Default: t.Default})
	}
	if link.Intro != nil {
		raw.Intro = &watch.Range{Start: link.Intro.Start, End: link.Intro.End}
	}
	if link.Outro != nil {
		raw.Outro = &watch.Range{Start: link.Outro.Start, End: link.Outro.End}
	}
	return raw, nil
}

// FetchSchedule retrieves the airing schedule for a YYYY-MM-DD date
func (c *Client) FetchSchedule(ctx context.Context, date string) ([]schedule.Entry, error) {
	var resp []ScheduleItem
	if err := c.get(ctx, "/api/schedule", map[string]string{"date": date}, &resp); err != nil {
		return nil, fmt.Errorf("get schedule failed: %w", err)
	}
	if resp == nil {
		return nil, nil
	}

	entries := make([]schedule.Entry, 0, len(resp))
	for _, s := range resp {
		entries = append(entries, schedule.Entry{
			ID:            s.ID,
			DataID:        string(s.DataID),
			Title:         s.Title,
			JapaneseTitle: s.JapaneseTitle,
			ReleaseDate:   s.ReleaseDate,
			Time:          s.Time,
			EpisodeNo:     s.EpisodeNo,
		})
	}
	return entries, nil
}

var nextEpisodeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// NextEpisodeAt returns when the next episode of a title airs. ok is false
// when the API has no date for it.
func (c *Client) NextEpisodeAt(ctx context.Context, titleID string) (time.Time, bool, error) {
	var resp NextEpisodeResponse
	if err := c.get(ctx, "/api/schedule/"+url.PathEscape(titleID), nil, &resp); err != nil {
		return time.Time{}, false, fmt.Errorf("get next episode failed: %w", err)
	}

	value := strings.TrimSpace(resp.NextEpisodeSchedule)
	if value == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range nextEpisodeLayouts {
		if at, err := time.Parse(layout, value); err == nil {
			return at, true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized next episode time %q", value)
}

// get performs a GET request and decodes the results field of the envelope
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string, result any) error {
	fullURL := c.baseURL + endpoint

	resp, err := c.httpClient.Get(ctx, fullURL, params)
	if err != nil {
		var statusErr *http.StatusError
		if errors.As(err, &statusErr) {
			var errorResp ErrorResponse
			if jsonErr := json.Unmarshal(statusErr.Body, &errorResp); jsonErr == nil {
				if msg := firstNonEmpty(errorResp.Message, errorResp.Error); msg != "" {
					return fmt.Errorf("API error (%d): %s: %w", statusErr.StatusCode, msg, err)
				}
			}
			return fmt.Errorf("API error: %w", err)
		}
		return fmt.Errorf("HTTP request failed (is API server running at %s?): %w", c.baseURL, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !env.Success {
		if env.Message != "" {
			return fmt.Errorf("%w: %s", ErrUnsuccessful, env.Message)
		}
		return ErrUnsuccessful
	}
	if len(env.Results) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Results, result); err != nil {
		return fmt.Errorf("failed to parse results: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
