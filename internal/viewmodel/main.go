package viewmodel

import (
	"context"

	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/observable"
	"github.com/rs/zerolog"
)

// Main is the shared view model every screen forwards gestures to
type Main struct {
	session Session
	logger  zerolog.Logger
	scope   *observable.Scope

	rootMediaID *observable.Field[string]
	navigate    *observable.Field[*observable.Event[string]]
}

// NewMain creates the shared view model
func NewMain(s Session, logger zerolog.Logger) *Main {
	m := &Main{
		session:     s,
		logger:      logger.With().Str("component", "viewmodel.main").Logger(),
		scope:       observable.NewScope(),
		rootMediaID: observable.NewField[string](),
		navigate:    observable.NewField[*observable.Event[string]](),
	}

	m.scope.Add(s.IsConnected().Subscribe(func(connected bool) {
		if connected {
			setIfChanged(m.rootMediaID, s.RootMediaID())
		}
	}))

	return m
}

// RootMediaID holds the browse root once the session has connected
func (m *Main) RootMediaID() observable.Observable[string] { return m.rootMediaID }

// NavigateToMediaItem carries a one-shot request to open a browsable item
func (m *Main) NavigateToMediaItem() observable.Observable[*observable.Event[string]] {
	return m.navigate
}

// MediaItemClicked opens browsable items and plays playable ones. Clicking
// the item that is already playing does not pause it.
func (m *Main) MediaItemClicked(ctx context.Context, item ItemData) error {
	if item.Browsable {
		m.navigate.Set(observable.NewEvent(item.ID))
		return nil
	}
	return m.playMedia(ctx, item.ID, false)
}

// PlayMediaID plays id, or toggles play/pause if id is already prepared
func (m *Main) PlayMediaID(ctx context.Context, id string) error {
	return m.playMedia(ctx, id, true)
}

func (m *Main) playMedia(ctx context.Context, id string, pauseAllowed bool) error {
	if id == "" {
		return nil
	}

	nowPlaying, _ := m.session.NowPlaying().Value()
	state, _ := m.session.PlaybackState().Value()

	if !state.IsPrepared() || nowPlaying.ID != id {
		return m.session.Play(ctx, id)
	}

	switch {
	case state.IsPlaying():
		if pauseAllowed {
			return m.session.Pause(ctx)
		}
		return nil
	case state.PlayEnabled():
		return m.session.Resume(ctx)
	default:
		m.logger.Warn().
			Str("id", id).
			Str("state", state.State.String()).
			Msg("Playable item clicked but neither play nor pause are enabled")
		return nil
	}
}

// SeekTo moves the playhead to positionMs
func (m *Main) SeekTo(ctx context.Context, positionMs int64) error {
	return m.session.SeekTo(ctx, positionMs)
}

// SeekToProgress seeks to percent of durationMs. It reports false without
// issuing a command when the duration is unknown.
func (m *Main) SeekToProgress(ctx context.Context, percent int, durationMs int64) (bool, error) {
	target, ok := SeekTarget(percent, durationMs)
	if !ok {
		m.logger.Debug().Int("percent", percent).Msg("Seek skipped, duration unknown")
		return false, nil
	}
	return true, m.session.SeekTo(ctx, target)
}

// SetRepeatMode sets the repeat mode
func (m *Main) SetRepeatMode(ctx context.Context, mode media.RepeatMode) error {
	return m.session.SetRepeatMode(ctx, mode)
}

// CycleRepeatMode advances to the next repeat mode
func (m *Main) CycleRepeatMode(ctx context.Context) error {
	cur, _ := m.session.RepeatMode().Value()
	return m.session.SetRepeatMode(ctx, NextRepeatMode(cur))
}

// SkipNext skips to the next item
func (m *Main) SkipNext(ctx context.Context) error {
	return m.session.SkipNext(ctx)
}

// SkipPrevious goes back to the previous item
func (m *Main) SkipPrevious(ctx context.Context) error {
	return m.session.SkipPrevious(ctx)
}

// Close detaches the view model from the session
func (m *Main) Close() {
	m.scope.Close()
}
