package music

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jiemo/player/internal/media"
)

const fieldSeparator = "|||"

// ErrInvalidTrackID is returned by PlayTrack for ids that are not Music
// persistent ids.
var ErrInvalidTrackID = errors.New("invalid track id")

// AppleScriptClient implements the Client interface using AppleScript to query Apple Music
type AppleScriptClient struct {
	// run executes a script and returns its stdout. Replaced in tests.
	run func(ctx context.Context, script string) ([]byte, error)
}

// NewAppleScriptClient creates a new AppleScript-based music client
func NewAppleScriptClient() *AppleScriptClient {
	return &AppleScriptClient{run: osascript}
}

func osascript(ctx context.Context, script string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("osascript error: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("failed to execute osascript: %w", err)
	}
	return output, nil
}

// IsRunning checks if the Music app is currently running
func (c *AppleScriptClient) IsRunning(ctx context.Context) (bool, error) {
	script := `tell application "System Events" to (name of processes) contains "Music"`

	output, err := c.run(ctx, script)
	if err != nil {
		return false, fmt.Errorf("failed to check if Music is running: %w", err)
	}

	return strings.TrimSpace(string(output)) == "true", nil
}

// GetCurrentTrack returns the currently playing or paused track from Apple Music.
// A single osascript call checks that Music is running and reads the track
// fields together so they describe the same instant.
func (c *AppleScriptClient) GetCurrentTrack(ctx context.Context) (*Track, error) {
	script := `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "not_running"
	end if
end tell
tell application "Music"
	if player state is stopped then
		return "stopped"
	else
		set trackID to persistent ID of current track
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set trackDuration to duration of current track
		set playerPos to player position
		set playerState to player state as string
		set repeatMode to song repeat as string

		return trackID & "|||" & trackName & "|||" & trackArtist & "|||" & trackAlbum & "|||" & trackDuration & "|||" & playerPos & "|||" & playerState & "|||" & repeatMode
	end if
end tell`

	output, err := c.run(ctx, script)
	if err != nil {
		return nil, err
	}

	result := strings.TrimSpace(string(output))

	if result == "not_running" || result == "stopped" {
		return nil, nil
	}

	track, err := parseTrackOutput(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track output: %w", err)
	}

	return track, nil
}

// parseTrackOutput parses the delimited output from the AppleScript
func parseTrackOutput(output string) (*Track, error) {
	parts := strings.Split(output, fieldSeparator)
	if len(parts) != 8 {
		return nil, fmt.Errorf("expected 8 parts, got %d: %q", len(parts), output)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	durationSec, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", parts[4], err)
	}

	positionSec, err := strconv.ParseFloat(parts[5], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse position %q: %w", parts[5], err)
	}

	var state PlayState
	switch parts[6] {
	case "playing":
		state = StatePlaying
	case "paused":
		state = StatePaused
	case "stopped":
		state = StateStopped
	default:
		return nil, fmt.Errorf("unknown player state: %q", parts[6])
	}

	repeat, ok := media.ParseRepeatMode(parts[7])
	if !ok {
		return nil, fmt.Errorf("unknown repeat mode: %q", parts[7])
	}

	return &Track{
		ID:       parts[0],
		Name:     parts[1],
		Artist:   parts[2],
		Album:    parts[3],
		Duration: secondsToDuration(durationSec),
		Position: secondsToDuration(positionSec),
		State:    state,
		Repeat:   repeat,
	}, nil
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (c *AppleScriptClient) tell(ctx context.Context, command, action string) error {
	if _, err := c.run(ctx, `tell application "Music" to `+command); err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	return nil
}

// Play resumes playback in Apple Music
func (c *AppleScriptClient) Play(ctx context.Context) error {
	return c.tell(ctx, "play", "play")
}

// Pause pauses playback in Apple Music
func (c *AppleScriptClient) Pause(ctx context.Context) error {
	return c.tell(ctx, "pause", "pause")
}

// PlayTrack plays a library track by persistent id.
// Persistent ids are hex strings; anything else is rejected before it can
// reach the script.
func (c *AppleScriptClient) PlayTrack(ctx context.Context, id string) error {
	if !isPersistentID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidTrackID, id)
	}
	command := fmt.Sprintf(`play (first track of library playlist 1 whose persistent ID is %q)`, id)
	return c.tell(ctx, command, "play track "+id)
}

func isPersistentID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Seek sets the player position of the current track
func (c *AppleScriptClient) Seek(ctx context.Context, position time.Duration) error {
	if position < 0 {
		position = 0
	}
	command := fmt.Sprintf("set player position to %.3f", position.Seconds())
	return c.tell(ctx, command, "seek")
}

// SetRepeat sets the song repeat mode in Apple Music
func (c *AppleScriptClient) SetRepeat(ctx context.Context, mode media.RepeatMode) error {
	var value string
	switch mode {
	case media.RepeatNone:
		value = "off"
	case media.RepeatOne:
		value = "one"
	case media.RepeatAll:
		value = "all"
	default:
		return fmt.Errorf("unknown repeat mode %d", mode)
	}
	return c.tell(ctx, "set song repeat to "+value, "set repeat")
}

// NextTrack skips to the next track in Apple Music
func (c *AppleScriptClient) NextTrack(ctx context.Context) error {
	return c.tell(ctx, "next track", "skip to next track")
}

// PreviousTrack goes back to the previous track in Apple Music
func (c *AppleScriptClient) PreviousTrack(ctx context.Context) error {
	return c.tell(ctx, "back track", "go to previous track")
}
