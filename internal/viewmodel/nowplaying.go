package viewmodel

import (
	"context"
	"sync"
	"time"

	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/observable"
	"github.com/rs/zerolog"
)

// DefaultPositionInterval is how often the playing position is refreshed
const DefaultPositionInterval = 250 * time.Millisecond

// Icon names a transport button face
type Icon int

const (
	IconPlay Icon = iota
	IconPause
	IconRepeatOff
	IconRepeatOne
	IconRepeatAll
)

func repeatIcon(m media.RepeatMode) Icon {
	switch m {
	case media.RepeatOne:
		return IconRepeatOne
	case media.RepeatAll:
		return IconRepeatAll
	default:
		return IconRepeatOff
	}
}

// NowPlayingMetadata is the display form of the prepared item
type NowPlayingMetadata struct {
	ID          string
	AlbumArtURI string
	Title       string
	Subtitle    string
	Duration    string // M:SS
}

func newNowPlayingMetadata(md media.Metadata) NowPlayingMetadata {
	return NowPlayingMetadata{
		ID:          md.ID,
		AlbumArtURI: md.AlbumArtURI,
		Title:       md.Title,
		Subtitle:    md.Subtitle,
		Duration:    TimestampToMSS(md.Duration.Milliseconds()),
	}
}

// NowPlaying projects the prepared item and transport state for the
// now-playing screen
type NowPlaying struct {
	session  Session
	logger   zerolog.Logger
	scope    *observable.Scope
	interval time.Duration
	now      func() time.Time

	metadata   *observable.Field[NowPlayingMetadata]
	position   *observable.Field[int64]
	duration   *observable.Field[int64]
	buttonIcon *observable.Field[Icon]
	repeatMode *observable.Field[media.RepeatMode]
	repeatIcon *observable.Field[Icon]

	mu    sync.Mutex
	md    media.Metadata
	state media.PlaybackState
}

// NewNowPlaying creates the now-playing view model. Position only advances
// between backend polls while Run is active.
func NewNowPlaying(s Session, positionInterval time.Duration, logger zerolog.Logger) *NowPlaying {
	return newNowPlaying(s, positionInterval, logger, time.Now)
}

func newNowPlaying(s Session, positionInterval time.Duration, logger zerolog.Logger, now func() time.Time) *NowPlaying {
	if positionInterval <= 0 {
		positionInterval = DefaultPositionInterval
	}

	vm := &NowPlaying{
		session:    s,
		logger:     logger.With().Str("component", "viewmodel.nowplaying").Logger(),
		scope:      observable.NewScope(),
		interval:   positionInterval,
		now:        now,
		metadata:   observable.NewFieldWith(NowPlayingMetadata{Duration: TimestampToMSS(0)}),
		position:   observable.NewFieldWith[int64](0),
		duration:   observable.NewFieldWith[int64](0),
		buttonIcon: observable.NewFieldWith(IconPlay),
		repeatMode: observable.NewFieldWith(media.RepeatNone),
		repeatIcon: observable.NewFieldWith(IconRepeatOff),
	}

	vm.scope.Add(
		s.NowPlaying().Subscribe(func(md media.Metadata) {
			vm.mu.Lock()
			defer vm.mu.Unlock()
			vm.md = md
			vm.publishLocked()
		}),
		s.PlaybackState().Subscribe(func(st media.PlaybackState) {
			vm.mu.Lock()
			defer vm.mu.Unlock()
			vm.state = st
			vm.publishLocked()
		}),
		s.RepeatMode().Subscribe(func(m media.RepeatMode) {
			vm.mu.Lock()
			defer vm.mu.Unlock()
			setIfChanged(vm.repeatMode, m)
			setIfChanged(vm.repeatIcon, repeatIcon(m))
		}),
	)

	return vm
}

// Metadata is the prepared item
func (vm *NowPlaying) Metadata() observable.Observable[NowPlayingMetadata] { return vm.metadata }

// Position is the playhead in milliseconds
func (vm *NowPlaying) Position() observable.Observable[int64] { return vm.position }

// Duration is the prepared item's length in milliseconds; 0 when unknown
func (vm *NowPlaying) Duration() observable.Observable[int64] { return vm.duration }

// ButtonIcon is the face of the play/pause button
func (vm *NowPlaying) ButtonIcon() observable.Observable[Icon] { return vm.buttonIcon }

// RepeatMode is the current repeat mode
func (vm *NowPlaying) RepeatMode() observable.Observable[media.RepeatMode] { return vm.repeatMode }

// RepeatIcon is the face of the repeat button
func (vm *NowPlaying) RepeatIcon() observable.Observable[Icon] { return vm.repeatIcon }

// SkipNext skips to the next item
func (vm *NowPlaying) SkipNext(ctx context.Context) error {
	return vm.session.SkipNext(ctx)
}

// SkipToPrevious goes back to the previous item
func (vm *NowPlaying) SkipToPrevious(ctx context.Context) error {
	return vm.session.SkipPrevious(ctx)
}

// Run advances Position on a fixed cadence while playing, until ctx is
// cancelled.
func (vm *NowPlaying) Run(ctx context.Context) {
	ticker := time.NewTicker(vm.interval)
	defer ticker.Stop()

	vm.logger.Debug().Dur("interval", vm.interval).Msg("Position ticker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vm.tick()
		}
	}
}

func (vm *NowPlaying) tick() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.state.IsPlaying() {
		return
	}
	vm.publishPositionLocked()
}

func (vm *NowPlaying) publishLocked() {
	setIfChanged(vm.metadata, newNowPlayingMetadata(vm.md))
	setIfChanged(vm.duration, vm.md.Duration.Milliseconds())

	icon := IconPlay
	if vm.state.IsPlaying() {
		icon = IconPause
	}
	setIfChanged(vm.buttonIcon, icon)

	vm.publishPositionLocked()
}

func (vm *NowPlaying) publishPositionLocked() {
	pos := vm.state.CurrentPosition(vm.now(), vm.md.Duration)
	setIfChanged(vm.position, pos.Milliseconds())
}

// Close releases every subscription
func (vm *NowPlaying) Close() {
	vm.scope.Close()
}
