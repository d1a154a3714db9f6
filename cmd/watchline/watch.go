package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/watchline/internal/api"
	"github.com/justchokingaround/watchline/internal/clipboard"
	"github.com/justchokingaround/watchline/internal/player"
	"github.com/justchokingaround/watchline/internal/player/mpv"
	"github.com/justchokingaround/watchline/internal/prefs"
	"github.com/justchokingaround/watchline/internal/watch"
)

// watchCmd resolves a title to a stream
var watchCmd = &cobra.Command{
	Use:   "watch <title-id>",
	Short: "Resolve an episode to a playable stream",
	Long: `Resolve an episode of a title to a playable stream.

Without --ep the first episode is used. The mirror is chosen from your last
selection unless --server or --type is given; the choice is remembered.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchEp        string
	watchNumber    int
	watchServer    string
	watchKind      string
	watchPlay      bool
	watchCopy      bool
	watchJSON      bool
	watchSkipIntro bool
	watchTimeout   time.Duration
)

func init() {
	watchCmd.Flags().StringVar(&watchEp, "ep", "", "episode id (the value after ?ep=)")
	watchCmd.Flags().IntVarP(&watchNumber, "episode", "e", 0, "episode number")
	watchCmd.Flags().StringVarP(&watchServer, "server", "s", "", "mirror name (HD-1, HD-2, HD-3, HD-4)")
	watchCmd.Flags().StringVarP(&watchKind, "type", "t", "", "audio type (sub, dub)")
	watchCmd.Flags().BoolVarP(&watchPlay, "play", "p", false, "play the stream with mpv")
	watchCmd.Flags().BoolVarP(&watchCopy, "copy", "c", false, "copy the stream url to the clipboard")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print the result as JSON")
	watchCmd.Flags().BoolVar(&watchSkipIntro, "skip-intro", false, "start playback after the intro when it opens the episode")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 2*time.Minute, "give up if the stream is not resolved in time")
	watchCmd.MarkFlagsMutuallyExclusive("ep", "episode")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := api.NewClient(cfg, logger)
	sess, err := watch.NewSession(watch.Options{
		Catalog: client,
		Mirrors: client,
		Streams: client,
		Airing:  client,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	logger.Debug("watch session created", "session", sess.ID(), "title", args[0])

	sess.Open(args[0], watch.EpisodeSelector(watchEp))
	if err := settle(ctx, sess); err != nil {
		return err
	}

	if watchNumber > 0 {
		if err := selectEpisodeNumber(sess, watchNumber); err != nil {
			return err
		}
		if err := settle(ctx, sess); err != nil {
			return err
		}
	}

	if watchServer != "" || watchKind != "" {
		if err := selectServer(sess, watchServer, watchKind); err != nil {
			return err
		}
		if err := settle(ctx, sess); err != nil {
			return err
		}
	}

	snap := sess.Snapshot()
	if watchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newSnapshotOutput(snap)); err != nil {
			return err
		}
	} else {
		fmt.Println(renderSnapshot(snap))
		showPopupHint()
	}

	if snap.Err != nil {
		return snap.Err
	}

	if watchCopy {
		if err := copyStream(ctx, snap); err != nil {
			return err
		}
	}
	if watchPlay {
		return playStream(ctx, snap)
	}
	return nil
}

// settle waits for in-flight fetches, giving up on interrupt or timeout
func settle(ctx context.Context, sess *watch.Session) error {
	ctx, cancel := context.WithTimeout(ctx, watchTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sess.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		sess.Close()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("stream not resolved within %s", watchTimeout)
		}
		return ctx.Err()
	}
}

func selectEpisodeNumber(sess *watch.Session, number int) error {
	snap := sess.Snapshot()
	ep, ok := lo.Find(snap.Episodes, func(e watch.Episode) bool { return e.Number == number })
	if !ok {
		return fmt.Errorf("episode %d not found (title has %d episodes)", number, len(snap.Episodes))
	}
	return sess.SelectEpisode(ep.Selector())
}

func selectServer(sess *watch.Session, name, kind string) error {
	snap := sess.Snapshot()
	if len(snap.Servers) == 0 {
		// nothing to choose from; the snapshot error explains why
		return nil
	}

	match := func(s watch.Server) bool {
		return (name == "" || strings.EqualFold(string(s.Name), name)) &&
			(kind == "" || strings.EqualFold(string(s.Kind), kind))
	}
	server, ok := lo.Find(snap.Servers, match)
	if !ok {
		available := lo.Map(snap.Servers, func(s watch.Server, _ int) string {
			return fmt.Sprintf("%s/%s", s.Name, s.Kind)
		})
		return fmt.Errorf("no mirror matches %s/%s (available: %s)", name, kind, strings.Join(available, ", "))
	}
	return sess.SelectServer(server.MirrorID)
}

func copyStream(ctx context.Context, snap watch.Snapshot) error {
	if snap.StreamURL == "" {
		return fmt.Errorf("%s is played in its embedded player and has no direct stream url", snap.ActiveServer.Name)
	}
	if err := clipboard.NewService(&cfg.Advanced.Clipboard, logger).Write(ctx, snap.StreamURL); err != nil {
		return fmt.Errorf("failed to copy stream url: %w", err)
	}
	fmt.Println(successStyle.Render("Stream url copied to clipboard"))
	return nil
}

func playStream(ctx context.Context, snap watch.Snapshot) error {
	if snap.StreamURL == "" {
		return fmt.Errorf("%s is played in its embedded player and cannot be handed to mpv; pick another server with --server", snap.ActiveServer.Name)
	}

	p, err := mpv.NewMPVPlayer(&cfg.Player, cfg.Advanced.Debug, logger)
	if err != nil {
		return err
	}

	opts := player.PlayOptions{
		SubtitleFiles: lo.Map(snap.SubtitleTracks, func(t watch.SubtitleTrack, _ int) string { return t.File }),
		Title:         displayTitle(snap),
		Episode:       snap.EpisodeNumber,
	}
	if watchSkipIntro && snap.Intro != nil && snap.Intro.Start <= 1 && snap.Intro.End > 0 {
		opts.StartTime = time.Duration(snap.Intro.End * float64(time.Second))
	}
	return p.Play(ctx, snap.StreamURL, opts)
}

func showPopupHint() {
	hidden, err := prefs.PopupHidden(store)
	if err != nil {
		logger.Warn("failed to read popup flag", "error", err)
		return
	}
	if !hidden {
		fmt.Println(helpStyle.Render("Join the community for updates and mirror status. Hide this with `watchline popup dismiss`."))
	}
}
