package mpv

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/watchline/internal/config"
	"github.com/justchokingaround/watchline/internal/player"
)

func TestBuildMPVArgs(t *testing.T) {
	url := "https://cdn.example/master.m3u8"

	tests := []struct {
		name     string
		player   *MPVPlayer
		options  player.PlayOptions
		contains []string
		absent   []string
	}{
		{
			name:     "basic playback",
			player:   &MPVPlayer{},
			options:  player.PlayOptions{},
			contains: []string{"--no-ytdl", "--msg-level=all=warn", "--user-agent=" + defaultUserAgent},
			absent:   []string{"--fullscreen"},
		},
		{
			name:     "debug keeps mpv output",
			player:   &MPVPlayer{debug: true},
			absent:   []string{"--msg-level=all=warn"},
			contains: []string{"--no-ytdl"},
		},
		{
			name:     "start time from intro skip",
			player:   &MPVPlayer{},
			options:  player.PlayOptions{StartTime: 90500 * time.Millisecond},
			contains: []string{"--start=90.5"},
		},
		{
			name:   "one sub-file per track",
			player: &MPVPlayer{},
			options: player.PlayOptions{
				SubtitleFiles: []string{"https://cdn.example/en.vtt", "https://cdn.example/es.vtt"},
				SubtitleLang:  "English",
			},
			contains: []string{
				"--sub-file=https://cdn.example/en.vtt",
				"--sub-file=https://cdn.example/es.vtt",
				"--slang=English",
			},
		},
		{
			name:   "headers and title",
			player: &MPVPlayer{},
			options: player.PlayOptions{
				Referer:   "https://megacloud.example/",
				UserAgent: "watchline-test",
				Headers:   map[string]string{"Origin": "https://megacloud.example", "Referer": "ignored"},
				Title:     "Frieren - Episode 3",
			},
			contains: []string{
				"--referrer=https://megacloud.example/",
				"--user-agent=watchline-test",
				"--http-header-fields=Origin: https://megacloud.example",
				"--force-media-title=Frieren - Episode 3",
			},
		},
		{
			name:     "configured extra args",
			player:   &MPVPlayer{extraArgs: []string{"--hwdec=auto", "--volume=60"}},
			contains: []string{"--hwdec=auto", "--volume=60"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.player.buildMPVArgs(url, tt.options)

			require.NotEmpty(t, args)
			assert.Equal(t, url, args[len(args)-1], "url must be last")
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, unwanted := range tt.absent {
				assert.NotContains(t, args, unwanted)
			}
		})
	}
}

func TestPlay_RequiresURL(t *testing.T) {
	p := &MPVPlayer{executable: "mpv"}
	err := p.Play(context.Background(), "", player.PlayOptions{})
	assert.Error(t, err)
}

func TestNewMPVPlayer_MissingExecutable(t *testing.T) {
	_, err := NewMPVPlayer(&config.PlayerConfig{Executable: "watchline-no-such-player"}, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectPlatform(t *testing.T) {
	platform := DetectPlatform()

	switch runtime.GOOS {
	case "windows":
		assert.Equal(t, PlatformWindows, platform)
	case "darwin":
		assert.Equal(t, PlatformMac, platform)
	case "linux":
		if isWSL() {
			assert.Equal(t, PlatformWSL, platform)
		} else {
			assert.Equal(t, PlatformLinux, platform)
		}
	}
}

func TestGetMPVExecutable(t *testing.T) {
	assert.Equal(t, "mpv", GetMPVExecutable(PlatformLinux))
	assert.Equal(t, "mpv", GetMPVExecutable(PlatformMac))
	assert.Equal(t, "mpv.exe", GetMPVExecutable(PlatformWindows))
	assert.Equal(t, "mpv", GetMPVExecutable(PlatformWSL))
	assert.Equal(t, "wsl", PlatformWSL.String())
}
