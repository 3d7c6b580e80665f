package viewmodel

import (
	"context"
	"errors"
	"sync"

	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/observable"
	"github.com/rs/zerolog"
)

// ErrNoMediaID is returned when a list screen is opened without a media id
var ErrNoMediaID = errors.New("media id is required")

// Indicator marks the list entry for the prepared item
type Indicator int

const (
	IndicatorNone    Indicator = iota // Not the prepared item
	IndicatorPlaying                  // Prepared and playing
	IndicatorPaused                   // Prepared but not playing
)

// ItemData is one row of a media item list
type ItemData struct {
	ID          string
	Title       string
	Subtitle    string
	AlbumArtURI string
	Browsable   bool
	Indicator   Indicator
}

func indicatorFor(id string, nowPlaying media.Metadata, state media.PlaybackState) Indicator {
	if id == "" || id != nowPlaying.ID {
		return IndicatorNone
	}
	if state.IsPlaying() {
		return IndicatorPlaying
	}
	return IndicatorPaused
}

// MediaItems projects the children of one browse node
type MediaItems struct {
	mediaID string
	logger  zerolog.Logger
	scope   *observable.Scope

	items        *observable.Field[[]ItemData]
	networkError *observable.Field[bool]

	// mu serializes rebuilds so list versions are published in order
	mu         sync.Mutex
	loaded     bool
	children   []media.Item
	nowPlaying media.Metadata
	state      media.PlaybackState
}

// NewMediaItems starts browsing mediaID. Items stays empty until the first
// result arrives.
func NewMediaItems(ctx context.Context, mediaID string, s Session, logger zerolog.Logger) (*MediaItems, error) {
	if mediaID == "" {
		return nil, ErrNoMediaID
	}

	ctx, cancel := context.WithCancel(ctx)
	vm := &MediaItems{
		mediaID:      mediaID,
		logger:       logger.With().Str("component", "viewmodel.items").Str("media_id", mediaID).Logger(),
		scope:        observable.NewScope(),
		items:        observable.NewField[[]ItemData](),
		networkError: observable.NewFieldWith(false),
	}
	vm.scope.Defer(cancel)

	vm.scope.Add(
		s.NetworkFailure().Subscribe(func(failed bool) {
			setIfChanged(vm.networkError, failed)
		}),
		s.NowPlaying().Subscribe(func(md media.Metadata) {
			vm.update(func() bool {
				changed := vm.nowPlaying.ID != md.ID
				vm.nowPlaying = md
				return changed
			})
		}),
		s.PlaybackState().Subscribe(func(st media.PlaybackState) {
			vm.update(func() bool {
				// Position ticks leave every indicator as it was
				changed := vm.state.IsPlaying() != st.IsPlaying()
				vm.state = st
				return changed
			})
		}),
		s.Browse(ctx, mediaID).Subscribe(func(children []media.Item) {
			vm.update(func() bool {
				vm.children = children
				vm.loaded = true
				return true
			})
		}),
	)

	return vm, nil
}

// MediaID returns the browse node this list shows
func (vm *MediaItems) MediaID() string { return vm.mediaID }

// Items is the current list
func (vm *MediaItems) Items() observable.Observable[[]ItemData] { return vm.items }

// NetworkError is true while the last browse attempt failed
func (vm *MediaItems) NetworkError() observable.Observable[bool] { return vm.networkError }

// update applies a change and rebuilds the list if it reports one
func (vm *MediaItems) update(apply func() bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !apply() || !vm.loaded {
		return
	}

	list := make([]ItemData, 0, len(vm.children))
	for _, child := range vm.children {
		list = append(list, ItemData{
			ID:          child.ID,
			Title:       child.Title,
			Subtitle:    child.Subtitle,
			AlbumArtURI: child.AlbumArtURI,
			Browsable:   child.Browsable,
			Indicator:   indicatorFor(child.ID, vm.nowPlaying, vm.state),
		})
	}
	vm.items.Set(list)

	vm.logger.Debug().Int("count", len(list)).Msg("Items updated")
}

// Close stops browsing and releases every subscription
func (vm *MediaItems) Close() {
	vm.scope.Close()
}
