// Package viewmodel projects session state into display-ready observable
// fields for the screens and forwards their gestures back to the session.
package viewmodel

import (
	"context"

	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/observable"
)

// Session is the part of session.Connection the view models depend on
type Session interface {
	IsConnected() observable.Observable[bool]
	NetworkFailure() observable.Observable[bool]
	PlaybackState() observable.Observable[media.PlaybackState]
	NowPlaying() observable.Observable[media.Metadata]
	RepeatMode() observable.Observable[media.RepeatMode]
	RootMediaID() string

	Browse(ctx context.Context, parentID string) observable.Observable[[]media.Item]

	Play(ctx context.Context, id string) error
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, positionMs int64) error
	SetRepeatMode(ctx context.Context, mode media.RepeatMode) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
}

// setIfChanged sets v unless f already holds it
func setIfChanged[T comparable](f *observable.Field[T], v T) {
	if cur, ok := f.Value(); ok && cur == v {
		return
	}
	f.Set(v)
}
