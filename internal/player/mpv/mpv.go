package mpv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/justchokingaround/watchline/internal/config"
	"github.com/justchokingaround/watchline/internal/player"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// MPVPlayer launches mpv as a child process
type MPVPlayer struct {
	executable string
	extraArgs  []string
	slang      string
	platform   Platform
	debug      bool
	logger     *slog.Logger
}

var _ player.Player = (*MPVPlayer)(nil)

// NewMPVPlayer creates a player from the player section of the config.
// It fails when the executable cannot be found.
func NewMPVPlayer(cfg *config.PlayerConfig, debug bool, logger *slog.Logger) (*MPVPlayer, error) {
	if cfg == nil {
		cfg = &config.DefaultConfig().Player
	}
	if logger == nil {
		logger = slog.Default()
	}

	platform := DetectPlatform()
	path, err := FindMPVExecutable(platform, cfg.Executable)
	if err != nil {
		return nil, fmt.Errorf("mpv not found: %w", err)
	}

	return &MPVPlayer{
		executable: path,
		extraArgs:  cfg.Args,
		slang:      cfg.SubtitleLang,
		platform:   platform,
		debug:      debug,
		logger:     logger,
	}, nil
}

// Info describes the resolved binary
func (p *MPVPlayer) Info() player.PlayerInfo {
	return player.PlayerInfo{Name: "mpv", Path: p.executable}
}

// Play runs mpv on url and waits for it to exit
func (p *MPVPlayer) Play(ctx context.Context, url string, options player.PlayOptions) error {
	if url == "" {
		return errors.New("no stream url to play")
	}
	if options.SubtitleLang == "" {
		options.SubtitleLang = p.slang
	}

	args := p.buildMPVArgs(url, options)
	cmd := exec.CommandContext(ctx, p.executable, args...)
	cmd.Stdin = os.Stdin
	if p.debug {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}
	setupProcessAttributes(cmd)

	p.logger.Info("starting mpv", "title", options.Title, "episode", options.Episode, "subtitles", len(options.SubtitleFiles))
	p.logger.Debug("mpv arguments", "args", args)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("mpv exited: %w", err)
	}
	return nil
}

// buildMPVArgs builds the command-line arguments for mpv
func (p *MPVPlayer) buildMPVArgs(url string, opts player.PlayOptions) []string {
	args := []string{"--no-ytdl"}

	if !p.debug {
		args = append(args, "--msg-level=all=warn")
	}

	if opts.StartTime > 0 {
		args = append(args, fmt.Sprintf("--start=%g", opts.StartTime.Seconds()))
	}

	if opts.Fullscreen {
		args = append(args, "--fullscreen")
	}

	for _, file := range opts.SubtitleFiles {
		args = append(args, "--sub-file="+file)
	}
	if opts.SubtitleLang != "" {
		args = append(args, "--slang="+opts.SubtitleLang)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	args = append(args, "--user-agent="+userAgent)

	if opts.Referer != "" {
		args = append(args, "--referrer="+opts.Referer)
	}

	var headers []string
	for key, value := range opts.Headers {
		if key != "User-Agent" && key != "Referer" {
			headers = append(headers, key+": "+value)
		}
	}
	if len(headers) > 0 {
		sort.Strings(headers)
		args = append(args, "--http-header-fields="+strings.Join(headers, ","))
	}

	if opts.Title != "" {
		args = append(args, "--force-media-title="+opts.Title)
	}

	args = append(args, p.extraArgs...)

	// URL must be last
	return append(args, url)
}
