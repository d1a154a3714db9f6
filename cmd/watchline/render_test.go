package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/watchline/internal/schedule"
	"github.com/justchokingaround/watchline/internal/watch"
)

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "00:00", formatSeconds(0))
	assert.Equal(t, "01:30", formatSeconds(90))
	assert.Equal(t, "62:05", formatSeconds(3725))
}

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "frieren-18542", displayTitle(watch.Snapshot{TitleID: "frieren-18542"}))
	assert.Equal(t, "Frieren - Episode 3", displayTitle(watch.Snapshot{
		TitleID:       "frieren-18542",
		Title:         &watch.TitleDetails{Title: "Frieren"},
		EpisodeNumber: 3,
	}))
}

func TestRenderSnapshot(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		out := renderSnapshot(watch.Snapshot{
			State:         watch.StateReady,
			TitleID:       "frieren-18542",
			EpisodeNumber: 1,
			Servers: []watch.Server{
				{Name: watch.ServerHD2, Kind: watch.KindSub, MirrorID: "m1"},
				{Name: watch.ServerHD2, Kind: watch.KindDub, MirrorID: "m2"},
			},
			ActiveServer:   &watch.Selection{MirrorID: "m2", Name: watch.ServerHD2, Kind: watch.KindDub},
			StreamURL:      "https://cdn.example/master.m3u8",
			SubtitleTracks: []watch.SubtitleTrack{{File: "https://cdn.example/en.vtt", Label: "English"}},
			Intro:          &watch.Range{Start: 0, End: 90},
		})

		assert.Contains(t, out, "[HD-2/dub]")
		assert.Contains(t, out, "https://cdn.example/master.m3u8")
		assert.Contains(t, out, "English")
		assert.Contains(t, out, "00:00 - 01:30")
	})

	t.Run("self contained", func(t *testing.T) {
		out := renderSnapshot(watch.Snapshot{
			State:        watch.StateReady,
			ActiveServer: &watch.Selection{MirrorID: "m1", Name: watch.ServerHD1, Kind: watch.KindSub},
		})
		assert.Contains(t, out, "embedded player")
	})

	t.Run("error", func(t *testing.T) {
		out := renderSnapshot(watch.Snapshot{
			State: watch.StateError,
			Err:   &watch.Error{Kind: watch.CatalogFetchError, Err: fmt.Errorf("boom")},
		})
		assert.Contains(t, out, "boom")
		assert.Contains(t, out, "reload")
	})
}

func TestNewSnapshotOutput(t *testing.T) {
	out := newSnapshotOutput(watch.Snapshot{
		State:   watch.StateError,
		Servers: []watch.Server{{Name: watch.ServerHD2, Kind: watch.KindSub, MirrorID: "m1"}},
		Err:     &watch.Error{Kind: watch.ManifestFetchError, Err: fmt.Errorf("timeout")},
	})

	assert.Equal(t, watch.ManifestFetchError, out.ErrorKind)
	assert.Equal(t, "manifest_fetch: timeout", out.Error)
	assert.Contains(t, out.Guidance, "try other servers")

	assert.Empty(t, newSnapshotOutput(watch.Snapshot{State: watch.StateReady}).Error)
}

func TestRenderSchedule(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	t.Run("empty", func(t *testing.T) {
		out := renderSchedule("2024-03-01", nil, now)
		assert.Contains(t, out, "Friday, March 1")
		assert.Contains(t, out, "No data to display")
	})

	t.Run("entries", func(t *testing.T) {
		out := renderSchedule("2024-03-01", []schedule.Entry{
			{ID: "a", Title: "Early Show", Time: "09:00", EpisodeNo: 4},
			{ID: "b", Title: "Late Show", Time: "18:30"},
		}, now)

		assert.Contains(t, out, "Early Show")
		assert.Contains(t, out, "Episode 4")
		assert.Contains(t, out, "3 hours ago")
		assert.Contains(t, out, "6 hours from now")
	})

	t.Run("long titles are truncated", func(t *testing.T) {
		long := strings.Repeat("葬送のフリーレン ", 10)
		out := renderSchedule("2024-03-01", []schedule.Entry{{ID: "a", Title: long, Time: "09:00"}}, now)
		assert.NotContains(t, out, long)
		assert.Contains(t, out, "…")
	})
}

func TestAirsAt(t *testing.T) {
	at, ok := airsAt("2024-03-01", schedule.Entry{Time: "18:30"})
	require.True(t, ok)
	assert.Equal(t, 18, at.Hour())
	assert.Equal(t, 30, at.Minute())

	_, ok = airsAt("2024-03-01", schedule.Entry{Time: "soon"})
	assert.False(t, ok)
}
