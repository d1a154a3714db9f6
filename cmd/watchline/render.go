package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/justchokingaround/watchline/internal/schedule"
	"github.com/justchokingaround/watchline/internal/watch"
)

// Oxocarbon palette
var (
	colorMuted  = lipgloss.Color("#767676")
	colorFg     = lipgloss.Color("#f2f4f8")
	colorPurple = lipgloss.Color("#be95ff")
	colorMauve  = lipgloss.Color("#d1aaff")
	colorGreen  = lipgloss.Color("#42be65")
	colorRed    = lipgloss.Color("#ff5252")
	colorCyan   = lipgloss.Color("#33b1ff")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(colorPurple).
			Padding(0, 1).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMauve).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	activeStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	inactiveStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Width(7)

	boxStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#393939"))
)

func displayTitle(snap watch.Snapshot) string {
	name := snap.TitleID
	if snap.Title != nil && snap.Title.Title != "" {
		name = snap.Title.Title
	}
	if snap.EpisodeNumber > 0 {
		return fmt.Sprintf("%s - Episode %d", name, snap.EpisodeNumber)
	}
	return name
}

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value))
}

func formatSeconds(s float64) string {
	d := time.Duration(s * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func renderSnapshot(snap watch.Snapshot) string {
	var lines []string
	lines = append(lines, titleStyle.Render(displayTitle(snap)))

	if snap.TotalEpisodes > 0 {
		lines = append(lines, field("Episodes", humanize.Comma(int64(snap.TotalEpisodes))))
	}
	if snap.NextEpisodeAt != nil {
		lines = append(lines, field("Next", fmt.Sprintf("%s (%s)", humanize.Time(*snap.NextEpisodeAt), snap.NextEpisodeAt.Local().Format("Mon Jan 2 15:04"))))
	}

	if len(snap.Servers) > 0 {
		var servers []string
		for _, s := range snap.Servers {
			label := fmt.Sprintf("%s/%s", s.Name, s.Kind)
			if snap.ActiveServer != nil && snap.ActiveServer.MirrorID == s.MirrorID {
				servers = append(servers, activeStyle.Render("["+label+"]"))
			} else {
				servers = append(servers, inactiveStyle.Render(label))
			}
		}
		lines = append(lines, field("Servers", strings.Join(servers, " ")))
	}

	switch {
	case snap.Err != nil:
		lines = append(lines, "", errorStyle.Render(string(snap.Err.Kind)+": "+snap.Err.Error()), helpStyle.Render(snap.Guidance()))
	case snap.SelfContained():
		lines = append(lines, field("Stream", fmt.Sprintf("%s plays in its embedded player", snap.ActiveServer.Name)))
	case snap.State == watch.StateReady:
		lines = append(lines, field("Stream", snap.StreamURL))
		for _, t := range snap.SubtitleTracks {
			lines = append(lines, field("Subtitle", fmt.Sprintf("%s  %s", t.Label, t.File)))
		}
		if snap.ThumbnailTrack != "" {
			lines = append(lines, field("Thumbnails", snap.ThumbnailTrack))
		}
		if snap.Intro != nil {
			lines = append(lines, field("Intro", formatSeconds(snap.Intro.Start)+" - "+formatSeconds(snap.Intro.End)))
		}
		if snap.Outro != nil {
			lines = append(lines, field("Outro", formatSeconds(snap.Outro.Start)+" - "+formatSeconds(snap.Outro.End)))
		}
	default:
		lines = append(lines, field("State", string(snap.State)))
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

// snapshotOutput is the --json shape of a snapshot
type snapshotOutput struct {
	watch.Snapshot
	ErrorKind watch.ErrorKind `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	Guidance  string          `json:"guidance,omitempty"`
}

func newSnapshotOutput(snap watch.Snapshot) snapshotOutput {
	out := snapshotOutput{Snapshot: snap, ErrorKind: snap.ErrorKind(), Guidance: snap.Guidance()}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
	}
	return out
}

// scheduleTitleWidth is the number of terminal cells a schedule title may use
const scheduleTitleWidth = 48

// airsAt combines a schedule date and HH:MM time in the local zone
func airsAt(date string, e schedule.Entry) (time.Time, bool) {
	at, err := time.ParseInLocation(schedule.DateLayout+" 15:04", date+" "+e.Time, time.Local)
	return at, err == nil
}

func renderSchedule(date string, entries []schedule.Entry, now time.Time) string {
	day, err := time.ParseInLocation(schedule.DateLayout, date, time.Local)
	heading := date
	if err == nil {
		heading = day.Format("Monday, January 2")
	}

	lines := []string{subtitleStyle.Render(heading)}
	if len(entries) == 0 {
		lines = append(lines, helpStyle.Render("No data to display"))
		return strings.Join(lines, "\n")
	}

	for _, e := range entries {
		title := runewidth.Truncate(e.Title, scheduleTitleWidth, "…")
		row := timeStyle.Render(e.Time) + valueStyle.Render(title)
		if e.EpisodeNo > 0 {
			row += inactiveStyle.Render(fmt.Sprintf("  Episode %d", e.EpisodeNo))
		}
		if at, ok := airsAt(date, e); ok {
			style := inactiveStyle
			if at.After(now) {
				style = activeStyle
			}
			row += "  " + style.Render(humanize.RelTime(at, now, "ago", "from now"))
		}
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}
