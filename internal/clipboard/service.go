package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/justchokingaround/watchline/internal/config"
)

// Service copies stream urls to the system clipboard
type Service interface {
	Write(ctx context.Context, text string) error
}

type clipboardService struct {
	command string
	logger  *slog.Logger

	// primary is swapped out in tests
	primary func(string) error
}

// NewService creates a clipboard service. A configured command is used only
// when the native clipboard is unavailable.
func NewService(cfg *config.ClipboardConfig, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &clipboardService{logger: logger, primary: clipboard.WriteAll}
	if cfg != nil {
		s.command = cfg.Command
	}
	return s
}

// Write copies text, falling back to a system tool when the native clipboard fails
func (s *clipboardService) Write(ctx context.Context, text string) error {
	err := s.primary(text)
	if err == nil {
		s.logger.Debug("copied to clipboard", "length", len(text))
		return nil
	}
	s.logger.Warn("failed to copy to clipboard using primary method", "error", err)

	parts, err := s.fallbackCommand()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("clipboard command %q failed: %w", parts[0], err)
	}

	s.logger.Debug("copied to clipboard", "command", parts[0], "length", len(text))
	return nil
}

func (s *clipboardService) fallbackCommand() ([]string, error) {
	if s.command != "" {
		parts := parseCommand(s.command)
		if len(parts) == 0 {
			return nil, fmt.Errorf("invalid clipboard command in config: %s", s.command)
		}
		return parts, nil
	}

	switch runtime.GOOS {
	case "windows":
		return []string{"clip.exe"}, nil
	case "darwin":
		return []string{"pbcopy"}, nil
	case "linux":
		if isWSL() {
			return []string{"clip.exe"}, nil
		}
		switch {
		case commandExists("wl-copy"):
			return []string{"wl-copy"}, nil
		case commandExists("xclip"):
			return []string{"xclip", "-selection", "clipboard"}, nil
		case commandExists("xsel"):
			return []string{"xsel", "--clipboard", "--input"}, nil
		}
		return nil, errors.New("no clipboard tool found (install wl-clipboard, xclip or xsel)")
	default:
		return nil, fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}
}

// parseCommand parses a command string into executable parts, respecting quotes
func parseCommand(command string) []string {
	var parts []string
	var current strings.Builder
	var inQuotes bool
	var quoteChar rune

	for _, char := range command {
		switch {
		case char == '\'' || char == '"':
			if !inQuotes {
				inQuotes = true
				quoteChar = char
			} else if char == quoteChar {
				inQuotes = false
			} else {
				current.WriteRune(char)
			}
		case char == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
