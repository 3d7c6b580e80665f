package tui

import (
	"context"
	"time"

	"github.com/jiemo/player/internal/observable"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
)

// MediaItemsFactory builds the view model behind one list screen
type MediaItemsFactory interface {
	MediaItems(ctx context.Context, mediaID string) (*viewmodel.MediaItems, error)
}

// ItemClicker receives list selections
type ItemClicker interface {
	MediaItemClicked(ctx context.Context, item viewmodel.ItemData) error
}

// ItemsScreen lists the children of one browse node
type ItemsScreen struct {
	ctx      context.Context
	factory  MediaItemsFactory
	clicker  ItemClicker
	dispatch observable.Dispatcher
	logger   zerolog.Logger

	root   *tview.Flex
	list   *tview.List
	status *tview.TextView

	vm    *viewmodel.MediaItems
	scope *observable.Scope

	// Guarded by the event goroutine
	items        []viewmodel.ItemData
	networkError bool
	lastStatus   string
}

// NewItemsScreen creates an unbound list screen
func NewItemsScreen(ctx context.Context, factory MediaItemsFactory, clicker ItemClicker, dispatch observable.Dispatcher, logger zerolog.Logger) *ItemsScreen {
	s := &ItemsScreen{
		ctx:      ctx,
		factory:  factory,
		clicker:  clicker,
		dispatch: dispatch,
		logger:   logger.With().Str("component", "tui.items").Logger(),
		scope:    observable.NewScope(),
	}

	s.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	s.list = tview.NewList().
		SetHighlightFullLine(true)
	s.list.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		s.click(index)
	})

	s.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(s.status, 1, 0, false).
		AddItem(s.list, 0, 1, true)
	s.root.SetBorder(true).
		SetTitleAlign(tview.AlignLeft)

	return s
}

// Bind attaches the screen to mediaID. It reports false, leaving the screen
// unbound, when there is no media id or the view model cannot be built.
func (s *ItemsScreen) Bind(mediaID string) bool {
	if mediaID == "" || s.vm != nil {
		return false
	}

	s.renderStatus()

	vm, err := s.factory.MediaItems(s.ctx, mediaID)
	if err != nil {
		s.logger.Debug().Err(err).Str("media_id", mediaID).Msg("List screen not bound")
		return false
	}
	s.vm = vm
	s.root.SetTitle(" " + tview.Escape(mediaID) + " ")

	s.scope.Add(
		vm.Items().SubscribeOn(s.dispatch, s.render),
		vm.NetworkError().SubscribeOn(s.dispatch, func(failed bool) {
			s.networkError = failed
			s.renderStatus()
		}),
	)
	s.scope.Defer(vm.Close)

	return true
}

// Root returns the primitive to place in the layout
func (s *ItemsScreen) Root() tview.Primitive { return s.root }

// List returns the focusable list
func (s *ItemsScreen) List() *tview.List { return s.list }

// MediaID returns the bound browse node, or "" when unbound
func (s *ItemsScreen) MediaID() string {
	if s.vm == nil {
		return ""
	}
	return s.vm.MediaID()
}

func (s *ItemsScreen) render(items []viewmodel.ItemData) {
	s.items = items

	current := s.list.GetCurrentItem()
	_, _, width, _ := s.list.GetInnerRect()

	s.list.Clear()
	for _, item := range items {
		main, secondary := itemText(item, width)
		s.list.AddItem(main, secondary, 0, nil)
	}
	if current < len(items) {
		s.list.SetCurrentItem(current)
	}

	s.renderStatus()
}

func (s *ItemsScreen) renderStatus() {
	text := statusText(len(s.items) == 0, s.networkError)
	if text != s.lastStatus {
		s.lastStatus = text
		s.status.SetText(text)
	}
}

func (s *ItemsScreen) click(index int) {
	if index < 0 || index >= len(s.items) {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := s.clicker.MediaItemClicked(ctx, s.items[index]); err != nil {
		s.logger.Warn().Err(err).Str("id", s.items[index].ID).Msg("Item click failed")
	}
}

// Close releases the view model and every subscription
func (s *ItemsScreen) Close() {
	s.scope.Close()
}
