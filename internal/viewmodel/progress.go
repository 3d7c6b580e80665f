package viewmodel

import (
	"fmt"

	"github.com/jiemo/player/internal/media"
)

// ProgressPercent returns the seek bar position for positionMs within
// durationMs, truncated toward zero and clamped to [0, 100]. ok is false when
// the duration is unknown, in which case the bar should be left alone.
func ProgressPercent(positionMs, durationMs int64) (percent int, ok bool) {
	if durationMs <= 0 {
		return 0, false
	}
	p := positionMs * 100 / durationMs
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	return int(p), true
}

// SeekTarget converts a seek bar percentage into an absolute position. The
// multiplication happens first so short durations do not truncate to zero.
// ok is false when the duration is unknown and no seek should be issued.
func SeekTarget(percent int, durationMs int64) (positionMs int64, ok bool) {
	if durationMs <= 0 {
		return 0, false
	}
	switch {
	case percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}
	return int64(percent) * durationMs / 100, true
}

// TimestampToMSS formats milliseconds as M:SS. Minutes are not wrapped into
// hours.
func TimestampToMSS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// NextRepeatMode cycles through the three repeat modes
func NextRepeatMode(m media.RepeatMode) media.RepeatMode {
	n := media.RepeatMode(media.RepeatModeCount)
	return ((m%n+n)%n + 1) % n
}
