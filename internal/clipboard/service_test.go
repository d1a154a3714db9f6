package clipboard

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/watchline/internal/config"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"wl-copy", []string{"wl-copy"}},
		{"xclip -selection clipboard", []string{"xclip", "-selection", "clipboard"}},
		{`sh -c "cat > /tmp/clip"`, []string{"sh", "-c", "cat > /tmp/clip"}},
		{`echo 'it"s'`, []string{"echo", `it"s`}},
		{"   ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseCommand(tt.in), tt.in)
	}
}

func TestWrite_PrimarySucceeds(t *testing.T) {
	var got string
	s := NewService(nil, nil).(*clipboardService)
	s.primary = func(text string) error {
		got = text
		return nil
	}

	require.NoError(t, s.Write(context.Background(), "https://cdn.example/master.m3u8"))
	assert.Equal(t, "https://cdn.example/master.m3u8", got)
}

func TestWrite_FallsBackToConfiguredCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	out := filepath.Join(t.TempDir(), "clip.txt")
	s := NewService(&config.ClipboardConfig{Command: `sh -c "cat > ` + out + `"`}, nil).(*clipboardService)
	s.primary = func(string) error { return errors.New("no display") }

	require.NoError(t, s.Write(context.Background(), "stream-url"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "stream-url", string(data))
}

func TestWrite_FailingCommand(t *testing.T) {
	s := NewService(&config.ClipboardConfig{Command: "watchline-no-such-clipboard"}, nil).(*clipboardService)
	s.primary = func(string) error { return errors.New("no display") }

	assert.Error(t, s.Write(context.Background(), "x"))
}
