package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jiemo/player/internal/app"
	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/spf13/cobra"
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play [media-id]",
	Short: "Play a catalog item, or resume the current one",
	Long: `Play the catalog item with the given media id in Apple Music.

Without an id, resumes the prepared track. Playing the track that is already
playing leaves it alone.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

// pauseCmd represents the pause command
var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback in Apple Music",
	Long:  `Pause playback in Apple Music. Pauses the currently playing track.`,
	RunE:  runPause,
}

// playpauseCmd represents the playpause command
var playpauseCmd = &cobra.Command{
	Use:   "playpause",
	Short: "Toggle play/pause in Apple Music",
	Long:  `Toggle between play and pause states in Apple Music. If playing, pauses. If paused, resumes.`,
	RunE:  runPlayPause,
}

// nextCmd represents the next command
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track in Apple Music",
	Long:  `Skip to the next track in Apple Music. Advances to the next track in the current playlist or queue.`,
	RunE:  runNext,
}

// prevCmd represents the prev command
var prevCmd = &cobra.Command{
	Use:   "prev",
	Short: "Go to previous track in Apple Music",
	Long:  `Go to the previous track in Apple Music. Returns to the previous track in the current playlist or queue.`,
	RunE:  runPrev,
}

// seekCmd represents the seek command
var seekCmd = &cobra.Command{
	Use:   "seek <M:SS|seconds|percent%>",
	Short: "Seek within the current track",
	Long: `Move the playback position of the current track.

The position is an M:SS timestamp, a number of seconds, or a percentage of
the track's duration such as 40%. Percentages need a known duration.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

// repeatCmd represents the repeat command
var repeatCmd = &cobra.Command{
	Use:   "repeat [none|one|all]",
	Short: "Cycle or set the repeat mode",
	Long: `Control the repeat mode in Apple Music.

Without arguments, advances none -> one -> all -> none.
With an argument, sets that mode ('off' is the same as 'none').`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRepeat,
}

func init() {
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(playpauseCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(repeatCmd)
}

// currentID returns the prepared item's id
func currentID(p *app.Provider) string {
	md, _ := p.Connection().NowPlaying().Value()
	return md.ID
}

func runPlay(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		id := currentID(p)
		if len(args) == 1 {
			id = args[0]
		}
		if id == "" {
			return errors.New("nothing to resume; pass a media id")
		}

		if err := p.Main().MediaItemClicked(ctx, viewmodel.ItemData{ID: id}); err != nil {
			return fmt.Errorf("failed to play: %w", err)
		}
		return nil
	})
}

func runPause(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		if err := p.Connection().Pause(ctx); err != nil {
			return fmt.Errorf("failed to pause: %w", err)
		}
		return nil
	})
}

func runPlayPause(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		id := currentID(p)
		if id == "" {
			return errors.New("nothing prepared to play or pause")
		}

		if err := p.Main().PlayMediaID(ctx, id); err != nil {
			return fmt.Errorf("failed to toggle playback: %w", err)
		}
		return nil
	})
}

func runNext(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		if err := p.Main().SkipNext(ctx); err != nil {
			return fmt.Errorf("failed to skip to next track: %w", err)
		}
		return nil
	})
}

func runPrev(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		if err := p.Main().SkipPrevious(ctx); err != nil {
			return fmt.Errorf("failed to go to previous track: %w", err)
		}
		return nil
	})
}

func runSeek(cmd *cobra.Command, args []string) error {
	value, percent, err := parseSeek(args[0])
	if err != nil {
		return err
	}

	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		if !percent {
			if err := p.Main().SeekTo(ctx, value); err != nil {
				return fmt.Errorf("failed to seek: %w", err)
			}
			return nil
		}

		dur, _ := p.NowPlaying().Duration().Value()
		sent, err := p.Main().SeekToProgress(ctx, int(value), dur)
		if err != nil {
			return fmt.Errorf("failed to seek: %w", err)
		}
		if !sent {
			return errors.New("track duration unknown; seek to a timestamp instead")
		}
		return nil
	})
}

// maxSeek bounds absolute seek positions
const maxSeek = 24 * time.Hour

// parseSeek reads a seek argument. It returns milliseconds, or a whole
// percentage when percent is true.
func parseSeek(arg string) (value int64, percent bool, err error) {
	arg = strings.TrimSpace(arg)

	if p, ok := strings.CutSuffix(arg, "%"); ok {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 100 {
			return 0, false, fmt.Errorf("invalid seek percentage: %s (must be 0-100%%)", arg)
		}
		return int64(n), true, nil
	}

	if m, s, ok := strings.Cut(arg, ":"); ok {
		mins, err1 := strconv.Atoi(m)
		sec, err2 := strconv.Atoi(s)
		if err1 != nil || err2 != nil || mins < 0 || sec < 0 || sec > 59 || mins > int(maxSeek/time.Minute) {
			return 0, false, fmt.Errorf("invalid seek timestamp: %s (must be M:SS)", arg)
		}
		return int64(mins*60+sec) * 1000, false, nil
	}

	secs, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || secs > maxSeek.Seconds() {
		return 0, false, fmt.Errorf("invalid seek position: %s", arg)
	}
	return int64(secs * 1000), false, nil
}

func runRepeat(cmd *cobra.Command, args []string) error {
	var mode media.RepeatMode
	if len(args) == 1 {
		m, ok := media.ParseRepeatMode(args[0])
		if !ok {
			return fmt.Errorf("invalid repeat mode: %s (must be none, one or all)", args[0])
		}
		mode = m
	}

	return withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		if len(args) == 0 {
			current, _ := p.Connection().RepeatMode().Value()
			mode = viewmodel.NextRepeatMode(current)
		}

		if err := p.Main().SetRepeatMode(ctx, mode); err != nil {
			return fmt.Errorf("failed to set repeat mode: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Repeat: %s\n", mode)
		return nil
	})
}
