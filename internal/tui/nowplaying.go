package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jiemo/player/internal/artwork"
	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/observable"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
)

// Controller is the part of the main view model the now-playing screen drives
type Controller interface {
	PlayMediaID(ctx context.Context, id string) error
	SetRepeatMode(ctx context.Context, mode media.RepeatMode) error
	SeekToProgress(ctx context.Context, percent int, durationMs int64) (bool, error)
}

// artPanel is the album art surface. Images are not decoded; the panel
// shows where the art lives or a placeholder.
type artPanel struct {
	view *tview.TextView
}

func newArtPanel() *artPanel {
	p := &artPanel{
		view: tview.NewTextView().
			SetDynamicColors(true).
			SetTextAlign(tview.AlignCenter),
	}
	p.ShowPlaceholder()
	return p
}

// ShowImage implements artwork.Surface.
func (p *artPanel) ShowImage(uri string) {
	p.view.SetText("\n[white]♫[-]\n[gray]" + tview.Escape(uri) + "[-]")
}

// ShowPlaceholder implements artwork.Surface.
func (p *artPanel) ShowPlaceholder() {
	p.view.SetText("\n[gray]♪\nno artwork[-]")
}

// NowPlayingScreen shows the prepared item and handles transport keys
type NowPlayingScreen struct {
	ctx      context.Context
	vm       *viewmodel.NowPlaying
	control  Controller
	loader   artwork.Loader
	dispatch observable.Dispatcher
	logger   zerolog.Logger
	scope    *observable.Scope

	root     *tview.Flex
	info     *tview.TextView
	art      *artPanel
	progress *tview.TextView

	// Guarded by the event goroutine
	metadata   viewmodel.NowPlayingMetadata
	button     viewmodel.Icon
	repeat     viewmodel.Icon
	repeatMode media.RepeatMode
	positionMs int64
	durationMs int64
	seek       seekGesture

	// Last-rendered content for change detection
	lastInfo     string
	lastProgress string
	lastArtURI   string
	artLoaded    bool

	// Cached progress bar width, updated only when GetInnerRect returns a
	// positive value
	lastBarWidth int
}

// NewNowPlayingScreen creates the screen and binds it to vm
func NewNowPlayingScreen(ctx context.Context, vm *viewmodel.NowPlaying, control Controller, loader artwork.Loader, dispatch observable.Dispatcher, logger zerolog.Logger) *NowPlayingScreen {
	s := &NowPlayingScreen{
		ctx:      ctx,
		vm:       vm,
		control:  control,
		loader:   loader,
		dispatch: dispatch,
		logger:   logger.With().Str("component", "tui.nowplaying").Logger(),
		scope:    observable.NewScope(),
		art:      newArtPanel(),
	}

	s.info = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	s.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.progress.SetBorder(true)

	s.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(s.art.view, 0, 2, false).
		AddItem(s.info, 0, 2, false).
		AddItem(s.progress, 3, 0, false)
	s.root.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	s.bind()
	return s
}

func (s *NowPlayingScreen) bind() {
	s.scope.Add(
		s.vm.Metadata().SubscribeOn(s.dispatch, func(md viewmodel.NowPlayingMetadata) {
			s.metadata = md
			s.updateArt()
			s.renderInfo()
		}),
		s.vm.ButtonIcon().SubscribeOn(s.dispatch, func(icon viewmodel.Icon) {
			s.button = icon
			s.renderInfo()
		}),
		s.vm.RepeatIcon().SubscribeOn(s.dispatch, func(icon viewmodel.Icon) {
			s.repeat = icon
			s.renderInfo()
		}),
		s.vm.RepeatMode().SubscribeOn(s.dispatch, func(m media.RepeatMode) {
			s.repeatMode = m
		}),
		s.vm.Duration().SubscribeOn(s.dispatch, func(ms int64) {
			s.durationMs = ms
			s.renderProgress()
		}),
		s.vm.Position().SubscribeOn(s.dispatch, func(ms int64) {
			s.positionMs = ms
			s.renderProgress()
		}),
	)
}

// Root returns the primitive to place in the layout
func (s *NowPlayingScreen) Root() tview.Primitive { return s.root }

func (s *NowPlayingScreen) updateArt() {
	uri := s.metadata.AlbumArtURI
	if s.artLoaded && uri == s.lastArtURI {
		return
	}
	s.artLoaded = true
	s.lastArtURI = uri
	s.loader.Load(uri, s.art)
}

func (s *NowPlayingScreen) renderInfo() {
	text := nowPlayingText(s.metadata, s.button, s.repeat)
	if text != s.lastInfo {
		s.lastInfo = text
		s.info.SetText(text)
	}
}

func (s *NowPlayingScreen) renderProgress() {
	_, _, width, _ := s.progress.GetInnerRect()
	barWidth := width - 14 // Account for time display
	if barWidth > 0 {
		s.lastBarWidth = barWidth
	}
	if s.lastBarWidth < 10 {
		s.lastBarWidth = 10
	}

	percent, ok := viewmodel.ProgressPercent(s.positionMs, s.durationMs)
	if !ok {
		percent = -1
	}
	shownMs := s.positionMs
	if s.seek.Active() {
		// The handle follows the drag, not playback
		percent = s.seek.percent
		shownMs, _ = viewmodel.SeekTarget(percent, s.durationMs)
	}

	text := progressText(shownMs, s.durationMs, percent, s.lastBarWidth)
	if text != s.lastProgress {
		s.lastProgress = text
		s.progress.SetText(text)
	}
}

// HandleKey processes a transport or seek key, reporting whether it was used
func (s *NowPlayingScreen) HandleKey(event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyLeft, tcell.KeyRight:
		if s.durationMs <= 0 {
			return true
		}
		from, _ := viewmodel.ProgressPercent(s.positionMs, s.durationMs)
		delta := seekStep
		if event.Key() == tcell.KeyLeft {
			delta = -seekStep
		}
		s.seek.Drag(from, delta)
		s.renderProgress()
		return true
	case tcell.KeyEnter:
		percent, ok := s.seek.Release()
		if !ok {
			return false
		}
		s.command("seek", func(ctx context.Context) error {
			_, err := s.control.SeekToProgress(ctx, percent, s.durationMs)
			return err
		})
		s.renderProgress()
		return true
	case tcell.KeyEscape:
		if !s.seek.Active() {
			return false
		}
		s.seek.Cancel()
		s.renderProgress()
		return true
	case tcell.KeyRune:
	default:
		return false
	}

	switch event.Rune() {
	case ' ':
		id := s.metadata.ID
		s.command("playpause", func(ctx context.Context) error {
			return s.control.PlayMediaID(ctx, id)
		})
	case 'r', 'R':
		next := viewmodel.NextRepeatMode(s.repeatMode)
		s.command("repeat", func(ctx context.Context) error {
			return s.control.SetRepeatMode(ctx, next)
		})
	case 'n', 'N':
		s.command("next", s.vm.SkipNext)
	case 'p', 'P':
		s.command("previous", s.vm.SkipToPrevious)
	default:
		return false
	}
	return true
}

func (s *NowPlayingScreen) command(action string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.logger.Warn().Err(err).Str("command", action).Msg("Command failed")
	}
}

// Close releases every subscription
func (s *NowPlayingScreen) Close() {
	s.scope.Close()
	if f, ok := s.loader.(interface{ Forget(artwork.Surface) }); ok {
		f.Forget(s.art)
	}
}
