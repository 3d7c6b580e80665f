// Package discord mirrors the now-playing track into Discord Rich Presence.
package discord

import (
	"context"
	"strings"
	"time"

	"github.com/jiemo/player/internal/observable"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/rs/zerolog"
)

// Source is the now-playing projection the presence follows
type Source interface {
	Metadata() observable.Observable[viewmodel.NowPlayingMetadata]
	ButtonIcon() observable.Observable[viewmodel.Icon]
	Position() observable.Observable[int64]
	Duration() observable.Observable[int64]
}

type rpcClient interface {
	SetActivity(Activity) error
	Close()
}

// Presence publishes the playing track as a "Listening to" activity
type Presence struct {
	appID   string
	logger  zerolog.Logger
	client  rpcClient
	connect func(string) (rpcClient, error)
	now     func() time.Time
	wake    chan struct{}
	last    shown
	start   int64 // Unix start time of the current activity
}

// startDrift is how far, in seconds, the derived start time may move before
// the activity is resent. A seek moves it; clock-paced ticks do not.
const startDrift = 2

// shown is what the current activity displays
type shown struct {
	id, title, subtitle, art string
	playing                  bool
}

// New creates a presence for the Discord application appID
func New(appID string, logger zerolog.Logger) *Presence {
	return &Presence{
		appID:  appID,
		logger: logger.With().Str("component", "discord").Logger(),
		connect: func(appID string) (rpcClient, error) {
			return ipcConnect(appID)
		},
		now:  time.Now,
		wake: make(chan struct{}, 1),
	}
}

// Run follows src until ctx is cancelled. It connects lazily on the first
// playing track; when Discord isn't running it logs and retries on the
// next change. Position ticks that keep pace with the clock do not touch
// Discord.
func (p *Presence) Run(ctx context.Context, src Source) {
	scope := observable.NewScope()
	defer scope.Close()
	defer p.close()

	scope.Add(
		src.Metadata().Subscribe(func(viewmodel.NowPlayingMetadata) { p.notify() }),
		src.ButtonIcon().Subscribe(func(viewmodel.Icon) { p.notify() }),
		src.Position().Subscribe(func(int64) { p.notify() }),
	)

	for {
		select {
		case <-ctx.Done():
			p.clearActivity()
			return
		case <-p.wake:
			p.update(src)
		}
	}
}

// notify coalesces changes; update reads the latest values anyway
func (p *Presence) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Presence) update(src Source) {
	md, _ := src.Metadata().Value()
	icon, _ := src.ButtonIcon().Value()
	pos, _ := src.Position().Value()
	dur, _ := src.Duration().Value()

	cur := shown{
		id:       md.ID,
		title:    md.Title,
		subtitle: md.Subtitle,
		art:      md.AlbumArtURI,
		playing:  md.ID != "" && icon == viewmodel.IconPause,
	}
	p.handle(cur, pos, dur)
}

func (p *Presence) handle(cur shown, posMs, durMs int64) {
	if !cur.playing {
		if p.last.playing {
			p.clearActivity()
			p.last = shown{}
		}
		return
	}
	now := p.now()
	start := startUnix(now, posMs)
	if cur == p.last && abs(start-p.start) <= startDrift {
		return
	}

	if err := p.ensureConnected(); err != nil {
		p.logger.Warn().Err(err).Msg("Discord not available")
		return
	}

	if err := p.client.SetActivity(activityFor(cur, posMs, durMs, now)); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to set activity")
		p.close()
		return
	}
	p.last = cur
	p.start = start
}

func startUnix(now time.Time, posMs int64) int64 {
	return now.Add(-time.Duration(posMs) * time.Millisecond).Unix()
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func activityFor(cur shown, posMs, durMs int64, now time.Time) Activity {
	start := startUnix(now, posMs)
	ts := &Timestamps{Start: &start}
	if durMs > 0 {
		end := start + durMs/1000
		ts.End = &end
	}

	// Discord only fetches remote art; anything else falls back to the app asset
	large := "jiemo"
	if strings.HasPrefix(cur.art, "https://") || strings.HasPrefix(cur.art, "http://") {
		large = cur.art
	}

	state := ""
	if cur.subtitle != "" {
		state = "by " + cur.subtitle
	}

	return Activity{
		Type:       activityListening,
		Name:       "Apple Music",
		Details:    cur.title,
		State:      state,
		Timestamps: ts,
		Assets: &Assets{
			LargeImage: large,
			LargeText:  cur.title,
			SmallImage: "jiemo",
			SmallText:  "jiemo",
		},
	}
}

func (p *Presence) ensureConnected() error {
	if p.client != nil {
		return nil
	}
	client, err := p.connect(p.appID)
	if err != nil {
		return err
	}
	p.logger.Info().Msg("Connected to Discord")
	p.client = client
	return nil
}

func (p *Presence) clearActivity() {
	if p.client == nil {
		return
	}
	if err := p.client.SetActivity(Activity{}); err != nil {
		p.logger.Debug().Err(err).Msg("Failed to clear activity")
		p.close()
	}
}

func (p *Presence) close() {
	if p.client == nil {
		return
	}
	p.client.Close()
	p.client = nil
}
