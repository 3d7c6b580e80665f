/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/jiemo/player/internal/app"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

// errNotPlaying makes the now command exit 1 without printing an error
var errNotPlaying = errors.New("nothing playing")

// nowCmd represents the now command
var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Display the currently playing track",
	Long: `Query Apple Music and display the currently playing track.

The output format can be customized in ~/.config/jiemo/config.yaml using a
Go template. Available fields: .ID, .Title, .Subtitle, .Album, .Duration,
.Position, .Percent, .Repeat

Exit codes:
  0 - Track is currently playing
  1 - No track playing, paused, or Music app not running`,
	RunE: runNow,
}

func init() {
	rootCmd.AddCommand(nowCmd)

	nowCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	nowCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	nowCmd.Flags().Bool("marquee", false, "Enable marquee scrolling for long text (overrides config)")
}

// trackInfo is what the output template sees
type trackInfo struct {
	ID       string
	Title    string
	Subtitle string
	Album    string
	Duration string // M:SS
	Position string // M:SS
	Percent  int    // -1 when the duration is unknown
	Repeat   string
}

func runNow(cmd *cobra.Command, args []string) error {
	var output string
	err := withSession(cmd, func(ctx context.Context, p *app.Provider) error {
		cfg := p.Config()

		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = cfg.OutputFormat
		}

		state, _ := p.Connection().PlaybackState().Value()
		if !state.IsPlaying() {
			return errNotPlaying
		}

		text, err := formatTrack(currentTrack(p), format)
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}

		width, _ := cmd.Flags().GetInt("width")
		if width == 0 {
			width = cfg.OutputWidth
		}
		marquee := cfg.MarqueeEnabled
		if cmd.Flags().Changed("marquee") {
			marquee, _ = cmd.Flags().GetBool("marquee")
		}

		if width > 0 {
			if marquee {
				text = marqueeText(text, width, cfg.MarqueeSpeed, cfg.MarqueeSeparator, time.Now())
			} else {
				text = padToWidth(text, width)
			}
		}

		output = text
		return nil
	})
	if errors.Is(err, errNotPlaying) {
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	fmt.Println(output)
	return nil
}

// currentTrack reads the now-playing projection
func currentTrack(p *app.Provider) trackInfo {
	vm := p.NowPlaying()
	md, _ := vm.Metadata().Value()
	pos, _ := vm.Position().Value()
	dur, _ := vm.Duration().Value()
	repeat, _ := vm.RepeatMode().Value()
	raw, _ := p.Connection().NowPlaying().Value()

	percent, ok := viewmodel.ProgressPercent(pos, dur)
	if !ok {
		percent = -1
	}

	return trackInfo{
		ID:       md.ID,
		Title:    md.Title,
		Subtitle: md.Subtitle,
		Album:    raw.Album,
		Duration: md.Duration,
		Position: viewmodel.TimestampToMSS(pos),
		Percent:  percent,
		Repeat:   repeat.String(),
	}
}

// formatTrack applies the template to the track data
func formatTrack(track trackInfo, templateStr string) (string, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// padToWidth pads or truncates text to exactly width display columns,
// ending truncated text with "...". Width <= 0 leaves text unchanged.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text
	}

	const ellipsis = "..."
	current := runewidth.StringWidth(text)

	switch {
	case current == width:
		return text
	case current < width:
		return text + strings.Repeat(" ", width-current)
	case width <= len(ellipsis):
		return ellipsis[:width]
	}

	// Wide runes can leave the cut one column short
	truncated := runewidth.Truncate(text, width-len(ellipsis), "") + ellipsis
	if w := runewidth.StringWidth(truncated); w < width {
		truncated += strings.Repeat(" ", width-w)
	}
	return truncated
}

// marqueeText scrolls text that does not fit in width. The window start is
// derived from now, speed columns per second, over text+separator+text, so
// each status line refresh advances it without any saved state. Text that
// fits is padded instead.
func marqueeText(text string, width int, speed int, separator string, now time.Time) string {
	if width <= 0 {
		return text
	}
	if runewidth.StringWidth(text) <= width {
		return padToWidth(text, width)
	}

	loop := []rune(text + separator + text)
	start := int(now.Unix()*int64(speed)) % len(loop)
	if start < 0 {
		start += len(loop)
	}

	var b strings.Builder
	used := 0
	for i := 0; i < len(loop); i++ {
		r := loop[(start+i)%len(loop)]
		rw := runewidth.RuneWidth(r)
		if used+rw > width {
			break
		}
		b.WriteRune(r)
		used += rw
	}

	if used < width {
		b.WriteString(strings.Repeat(" ", width-used))
	}
	return b.String()
}
