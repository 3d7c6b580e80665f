package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/jiemo/player/internal/artwork"
	"github.com/jiemo/player/internal/observable"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
)

// Provider supplies the view models the screens bind to
type Provider interface {
	MediaItemsFactory
	Main() *viewmodel.Main
	NowPlaying() *viewmodel.NowPlaying
	Start(ctx context.Context)
}

// App is the terminal shell: a stack of list screens beside the
// now-playing panel
type App struct {
	app      *tview.Application
	provider Provider
	dispatch *uiDispatcher
	loader   artwork.Loader
	logger   zerolog.Logger
	scope    *observable.Scope

	ctx    context.Context
	cancel context.CancelFunc

	pages      *tview.Pages
	status     *tview.TextView
	nowPlaying *NowPlayingScreen

	// Guarded by the event goroutine
	screens         []*ItemsScreen
	focusNowPlaying bool
}

// New creates the shell. Nothing runs until Run.
func New(provider Provider, logger zerolog.Logger) *App {
	a := &App{
		app:      tview.NewApplication(),
		provider: provider,
		logger:   logger.With().Str("component", "tui").Logger(),
		scope:    observable.NewScope(),
	}
	a.dispatch = newUIDispatcher(func(fn func()) { a.app.QueueUpdateDraw(fn) })
	a.loader = artwork.NewHTTPLoader(a.dispatch, logger)
	return a
}

// setupUI creates the layout and binds the shared view models
func (a *App) setupUI() {
	a.pages = tview.NewPages()

	a.nowPlaying = NewNowPlayingScreen(a.ctx, a.provider.NowPlaying(), a.provider.Main(), a.loader, a.dispatch, a.logger)

	// Status bar
	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  tab:focus  enter:open  esc:back  space:play/pause  r:repeat  n:next  p:prev  ←/→:seek[-]")

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.nowPlaying.Root(), 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.status, 1, 1, false)

	// Handle keyboard input
	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)

	mainVM := a.provider.Main()
	a.scope.Add(
		mainVM.RootMediaID().SubscribeOn(a.dispatch, func(root string) {
			if len(a.screens) == 0 {
				a.push(root)
			}
		}),
		mainVM.NavigateToMediaItem().SubscribeOn(a.dispatch, func(e *observable.Event[string]) {
			if id, ok := e.ContentIfNotHandled(); ok {
				a.push(id)
			}
		}),
	)
}

// push opens a list screen for mediaID on top of the stack
func (a *App) push(mediaID string) {
	screen := NewItemsScreen(a.ctx, a.provider, a.provider.Main(), a.dispatch, a.logger)
	if !screen.Bind(mediaID) {
		screen.Close()
		return
	}

	a.screens = append(a.screens, screen)
	a.pages.AddPage(pageName(len(a.screens)), screen.Root(), true, true)
	a.focusNowPlaying = false
	a.app.SetFocus(screen.List())

	a.logger.Debug().Str("media_id", mediaID).Int("depth", len(a.screens)).Msg("Opened list")
}

// pop closes the top list screen, keeping the root one
func (a *App) pop() {
	if len(a.screens) <= 1 {
		return
	}

	top := a.screens[len(a.screens)-1]
	a.pages.RemovePage(pageName(len(a.screens)))
	a.screens = a.screens[:len(a.screens)-1]
	top.Close()

	a.app.SetFocus(a.screens[len(a.screens)-1].List())
}

func pageName(depth int) string {
	return "items-" + strconv.Itoa(depth)
}

func isTransportKey(event *tcell.EventKey) bool {
	if event.Key() != tcell.KeyRune {
		return false
	}
	switch event.Rune() {
	case ' ', 'r', 'R', 'n', 'N', 'p', 'P':
		return true
	}
	return false
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyRune && (event.Rune() == 'q' || event.Rune() == 'Q') {
		a.Stop()
		return nil
	}

	if event.Key() == tcell.KeyTab {
		a.toggleFocus()
		return nil
	}

	if a.focusNowPlaying || isTransportKey(event) {
		if a.nowPlaying.HandleKey(event) {
			return nil
		}
	}

	if !a.focusNowPlaying {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyBackspace, tcell.KeyBackspace2:
			a.pop()
			return nil
		}
	}

	return event
}

func (a *App) toggleFocus() {
	a.focusNowPlaying = !a.focusNowPlaying
	if a.focusNowPlaying {
		a.app.SetFocus(a.nowPlaying.Root())
		return
	}
	if n := len(a.screens); n > 0 {
		a.app.SetFocus(a.screens[n-1].List())
	}
}

// Run starts the session and blocks until the user quits or ctx ends
func (a *App) Run(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	a.setupUI()
	defer a.teardown()

	go a.dispatch.run(a.ctx)
	a.provider.Start(a.ctx)

	go func() {
		<-a.ctx.Done()
		a.app.Stop()
	}()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

func (a *App) teardown() {
	a.scope.Close()
	a.nowPlaying.Close()
	for i := len(a.screens) - 1; i >= 0; i-- {
		a.screens[i].Close()
	}
	a.screens = nil
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.app.Stop()
}
