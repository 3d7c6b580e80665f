package tui

import (
	"fmt"
	"strings"

	"github.com/jiemo/player/internal/viewmodel"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
)

// buildProgressBar creates a text-based progress bar for a 0-100 percentage
func buildProgressBar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		return strings.Repeat("-", width)
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent * width / 100
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// progressText renders "position bar duration". A negative percent draws an
// empty track, used while the duration is unknown.
func progressText(positionMs, durationMs int64, percent, barWidth int) string {
	pos := viewmodel.TimestampToMSS(positionMs)
	dur := viewmodel.TimestampToMSS(durationMs)
	return fmt.Sprintf("%s %s %s", pos, buildProgressBar(percent, barWidth), dur)
}

func iconGlyph(icon viewmodel.Icon) string {
	switch icon {
	case viewmodel.IconPlay:
		return "[green]▶[-]" // Play triangle
	case viewmodel.IconPause:
		return "[yellow]⏸[-]" // Pause icon
	case viewmodel.IconRepeatOne:
		return "[white]\U0001F502[-]"
	case viewmodel.IconRepeatAll:
		return "[white]\U0001F501[-]"
	default:
		return "[gray]\U0001F501[-]"
	}
}

// nowPlayingText renders the title block of the now-playing panel
func nowPlayingText(md viewmodel.NowPlayingMetadata, button, repeat viewmodel.Icon) string {
	var sb strings.Builder
	sb.WriteString("\n")
	if md.ID == "" {
		sb.WriteString("[gray]No track playing[-]")
	} else {
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(md.Title)))
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]", tview.Escape(md.Subtitle)))
	}
	sb.WriteString(fmt.Sprintf("\n\n%s  %s", iconGlyph(button), iconGlyph(repeat)))
	return sb.String()
}

// itemText renders one list row
func itemText(item viewmodel.ItemData, width int) (main, secondary string) {
	var prefix string
	switch item.Indicator {
	case viewmodel.IndicatorPlaying:
		prefix = "⏸ "
	case viewmodel.IndicatorPaused:
		prefix = "▶ "
	default:
		prefix = "  "
	}

	title := item.Title
	if item.Browsable {
		title += " ›"
	}
	if width > 0 {
		title = runewidth.Truncate(title, width-runewidth.StringWidth(prefix), "...")
	}

	return prefix + tview.Escape(title), "  " + tview.Escape(item.Subtitle)
}

// statusText is the banner above a list
func statusText(loading, networkError bool) string {
	switch {
	case networkError:
		return "[red]Network error: could not load items[-]"
	case loading:
		return "[gray]Loading...[-]"
	default:
		return ""
	}
}
