package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/watchline/internal/config"
	"github.com/justchokingaround/watchline/internal/watch"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.Timeout = 5 * time.Second
	return NewClient(cfg, nil)
}

func respond(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestClient_FetchTitle(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/info", r.URL.Path)
		assert.Equal(t, "frieren-18542", r.URL.Query().Get("id"))
		respond(w, `{"success":true,"results":{
			"data":{"id":"frieren-18542","data_id":18542,"title":"Frieren","japanese_title":"Sousou no Frieren",
				"poster":"p.jpg","animeInfo":{"Overview":"After the party...","Status":"Finished Airing"}},
			"seasons":[{"id":"frieren-2","title":"Season 2","season_poster":"s2.jpg"}]}}`)
	})

	ctx := context.Background()
	title, err := c.FetchTitle(ctx, "frieren-18542")
	require.NoError(t, err)

	assert.Equal(t, "Frieren", title.Title)
	assert.Equal(t, "Sousou no Frieren", title.JapaneseTitle)
	assert.Equal(t, "After the party...", title.Overview)
	assert.Equal(t, []watch.Season{{ID: "frieren-2", Title: "Season 2", Poster: "s2.jpg"}}, title.Seasons)

	_, err = c.FetchTitle(ctx, "frieren-18542")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "metadata is cached")
}

func TestClient_FetchEpisodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/episodes/frieren-18542", r.URL.Path)
		respond(w, `{"success":true,"results":{"totalEpisodes":28,"episodes":[
			{"episode_no":1,"id":"frieren-18542?ep=107257","title":"The Journey's End","filler":false},
			{"episode_no":2,"id":"frieren-18542?ep=107258","title":"It Didn't Have to Be Magic","filler":true}]}}`)
	})

	list, err := c.FetchEpisodes(context.Background(), "frieren-18542")
	require.NoError(t, err)

	assert.Equal(t, 28, list.TotalEpisodes)
	require.Len(t, list.Episodes, 2)
	assert.Equal(t, watch.EpisodeSelector("107257"), list.Episodes[0].Selector())
	assert.Equal(t, 2, list.Episodes[1].Number)
	assert.True(t, list.Episodes[1].Filler)
}

func TestClient_FetchServers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/servers/frieren-18542", r.URL.Path)
		assert.Equal(t, "107257", r.URL.Query().Get("ep"))
		respond(w, `{"success":true,"results":[
			{"type":"sub","data_id":"1184011","server_id":4,"serverName":"HD-1"},
			{"type":"dub","data_id":1184014,"server_id":"1","serverName":"HD-2"}]}`)
	})

	servers, err := c.FetchServers(context.Background(), "frieren-18542", "107257")
	require.NoError(t, err)

	assert.Equal(t, []watch.Server{
		{Name: watch.ServerHD1, Kind: watch.KindSub, MirrorID: "1184011", ServerID: "4"},
		{Name: watch.ServerHD2, Kind: watch.KindDub, MirrorID: "1184014", ServerID: "1"},
	}, servers)
}

func TestClient_FetchManifest(t *testing.T) {
	t.Run("object link", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "/api/stream", r.URL.Path)
			assert.Equal(t, "frieren-18542?ep=107257", q.Get("id"))
			assert.Equal(t, "hd-2", q.Get("server"))
			assert.Equal(t, "dub", q.Get("type"))
			respond(w, `{"success":true,"results":{"streamingLink":{
				"id":1,"type":"dub","link":{"file":"https://cdn.example/master.m3u8","type":"hls"},
				"tracks":[{"file":"a.vtt","label":"EN","kind":"captions","default":true},{"file":"t.vtt","kind":"thumbnails"}],
				"intro":{"start":0,"end":90},"outro":{"start":1300,"end":1390}}}}`)
		})

		raw, err := c.FetchManifest(context.Background(), "frieren-18542", "107257", "hd-2", watch.KindDub)
		require.NoError(t, err)

		assert.Equal(t, "https://cdn.example/master.m3u8", raw.StreamURL)
		assert.Len(t, raw.Tracks, 2)
		assert.Equal(t, &watch.Range{Start: 0, End: 90}, raw.Intro)
		assert.Equal(t, &watch.Range{Start: 1300, End: 1390}, raw.Outro)

		m := watch.ExtractManifest(raw)
		assert.Equal(t, []watch.SubtitleTrack{{File: "a.vtt", Label: "EN"}}, m.SubtitleTracks)
		assert.Equal(t, "t.vtt", m.ThumbnailTrack)
	})

	t.Run("array link uses the first entry", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(w, `{"success":true,"results":{"streamingLink":[
				{"link":{"file":"first.m3u8"}},{"link":{"file":"second.m3u8"}}]}}`)
		})

		raw, err := c.FetchManifest(context.Background(), "x", "1", "hd-2", watch.KindSub)
		require.NoError(t, err)
		assert.Equal(t, "first.m3u8", raw.StreamURL)
		assert.Nil(t, raw.Intro)
	})

	t.Run("missing link is an empty manifest", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(w, `{"success":true,"results":{"streamingLink":null}}`)
		})

		raw, err := c.FetchManifest(context.Background(), "x", "1", "hd-2", watch.KindSub)
		require.NoError(t, err)
		assert.Empty(t, raw.StreamURL)
	})
}

func TestClient_FetchSchedule(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/schedule", r.URL.Path)
		assert.Equal(t, "2026-10-16", r.URL.Query().Get("date"))
		respond(w, `{"success":true,"results":[
			{"id":"one-piece-100","data_id":100,"title":"One Piece","japanese_title":"One Piece",
			 "releaseDate":"2026-10-16","time":"09:30","episode_no":1150}]}`)
	})

	entries, err := c.FetchSchedule(context.Background(), "2026-10-16")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "100", entries[0].DataID)
	assert.Equal(t, "09:30", entries[0].Time)
	assert.Equal(t, 1150, entries[0].EpisodeNo)
}

func TestClient_NextEpisodeAt(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		ok     bool
		want   time.Time
		hasErr bool
	}{
		{"space separated", "2026-10-18 15:30:00", true, time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC), false},
		{"rfc3339", "2026-10-18T15:30:00Z", true, time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC), false},
		{"unknown", "", false, time.Time{}, false},
		{"garbage", "next week", false, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/schedule/one-piece-100", r.URL.Path)
				respond(w, `{"success":true,"results":{"nextEpisodeSchedule":"`+tt.value+`"}}`)
			})

			at, ok, err := c.NextEpisodeAt(context.Background(), "one-piece-100")
			if tt.hasErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(at))
		})
	}
}

func TestClient_Errors(t *testing.T) {
	t.Run("success false", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(w, `{"success":false,"message":"anime not found"}`)
		})
		_, err := c.FetchEpisodes(context.Background(), "x")
		assert.ErrorIs(t, err, ErrUnsuccessful)
		assert.Contains(t, err.Error(), "anime not found")
	})

	t.Run("http error with message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			respond(w, `{"success":false,"message":"upstream blocked"}`)
		})
		_, err := c.FetchServers(context.Background(), "x", "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upstream blocked")
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(w, `<html>`)
		})
		_, err := c.FetchSchedule(context.Background(), "2026-10-16")
		assert.Error(t, err)
	})

	t.Run("server down", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		cfg := config.DefaultConfig()
		cfg.API.BaseURL = server.URL
		_, err := NewClient(cfg, nil).FetchEpisodes(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is API server running")
	})
}
