// Package media holds the data model shared by the session connection,
// the browse catalog and the view models.
package media

import "time"

// Item is one browsable or playable entry under a parent in the catalog
type Item struct {
	ID          string        // Stable identifier; for playable items, the backend's track id
	ParentID    string        // Identifier of the containing entry
	Title       string        // Display title
	Subtitle    string        // Artist, or a short description for browsable entries
	Album       string        // Album name (playable items only)
	AlbumArtURI string        // Art reference, empty when unknown
	Duration    time.Duration // Track length, zero for browsable entries
	Browsable   bool          // True when the item has children rather than audio
}

// Metadata describes the item the session is currently playing or has prepared
type Metadata struct {
	ID          string
	Title       string
	Subtitle    string
	Album       string
	AlbumArtURI string
	Duration    time.Duration
}

// IsZero reports whether no item is prepared.
func (m Metadata) IsZero() bool {
	return m == Metadata{}
}

// State is the transport state reported by the playback backend
type State int

const (
	StateNone      State = iota // Nothing prepared
	StateStopped                // Prepared but stopped
	StatePaused                 // Paused mid-track
	StatePlaying                // Audio is playing
	StateBuffering              // Waiting on the backend
	StateError                  // Backend reported a failure
)

// String returns a human-readable representation of the State
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateStopped:
		return "stopped"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateBuffering:
		return "buffering"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PlaybackState is a point-in-time reading of the transport.
// Position is the playback position as of UpdatedAt.
type PlaybackState struct {
	State     State
	Position  time.Duration
	UpdatedAt time.Time
}

// IsPrepared reports whether an item is loaded and can be resumed or paused.
func (p PlaybackState) IsPrepared() bool {
	switch p.State {
	case StateStopped, StatePaused, StatePlaying, StateBuffering:
		return true
	}
	return false
}

// IsPlaying reports whether audio is playing or about to.
func (p PlaybackState) IsPlaying() bool {
	return p.State == StatePlaying || p.State == StateBuffering
}

// PlayEnabled reports whether a play command would resume playback.
func (p PlaybackState) PlayEnabled() bool {
	return p.State == StatePaused || p.State == StateStopped ||
		p.State == StateError
}

// CurrentPosition extrapolates the position to now while playing.
// The result never goes below zero and, when duration is positive,
// never past it.
func (p PlaybackState) CurrentPosition(now time.Time, duration time.Duration) time.Duration {
	pos := p.Position
	if p.State == StatePlaying && !p.UpdatedAt.IsZero() {
		if elapsed := now.Sub(p.UpdatedAt); elapsed > 0 {
			pos += elapsed
		}
	}
	if pos < 0 {
		pos = 0
	}
	if duration > 0 && pos > duration {
		pos = duration
	}
	return pos
}

// RepeatMode is the backend's repeat setting. The numeric values are part
// of the contract: cycling advances through them modulo RepeatModeCount.
type RepeatMode int

const (
	RepeatNone RepeatMode = iota // Stop at the end of the queue
	RepeatOne                    // Repeat the current track
	RepeatAll                    // Repeat the whole queue
)

// RepeatModeCount is the number of repeat modes.
const RepeatModeCount = 3

// String returns the name used by the CLI and the backend
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "none"
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseRepeatMode maps a CLI or backend name to a RepeatMode.
// "off" is accepted as an alias for "none".
func ParseRepeatMode(s string) (RepeatMode, bool) {
	switch s {
	case "none", "off":
		return RepeatNone, true
	case "one":
		return RepeatOne, true
	case "all":
		return RepeatAll, true
	}
	return RepeatNone, false
}
