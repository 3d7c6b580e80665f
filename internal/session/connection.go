// Package session exposes the playback backend and the browse catalog as a
// single shared connection with observable state.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jiemo/player/internal/media"
	"github.com/jiemo/player/internal/music"
	"github.com/jiemo/player/internal/observable"
	"github.com/jiemo/player/internal/store"
	"github.com/rs/zerolog"
)

// Browser lists the children of a browse node
type Browser interface {
	Children(ctx context.Context, parentID string) ([]media.Item, error)
}

// ArtworkResolver finds album art for tracks the backend reports without it
type ArtworkResolver interface {
	Lookup(ctx context.Context, artist, album string) string
}

// SnapshotStore persists the last known session state and play history
type SnapshotStore interface {
	LoadSnapshot() (store.Snapshot, bool, error)
	SaveSnapshot(snap store.Snapshot) error
	AddToHistory(md media.Metadata, playedAt time.Time) error
}

// Config holds connection configuration
type Config struct {
	PollInterval    time.Duration // How often to poll the backend
	MaxPollInterval time.Duration // Backoff ceiling while the backend is failing
	RootMediaID     string        // Browse root handed to the first items screen
}

// DefaultConfig returns the default connection configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:    1 * time.Second,
		MaxPollInterval: 16 * time.Second,
		RootMediaID:     "__ROOT__",
	}
}

// Connection is the process-wide session connection. Construct one per
// process and pass it to every view model.
type Connection struct {
	config  Config
	client  music.Client
	browser Browser
	artwork ArtworkResolver
	store   SnapshotStore
	logger  zerolog.Logger
	now     func() time.Time

	isConnected    *observable.Field[bool]
	networkFailure *observable.Field[bool]
	playbackState  *observable.Field[media.PlaybackState]
	nowPlaying     *observable.Field[media.Metadata]
	repeatMode     *observable.Field[media.RepeatMode]

	// metaMu serializes read-modify-write of nowPlaying between the poller
	// and artwork resolution.
	metaMu sync.Mutex

	// stateMu orders transport commands against poll readings. cmdGen
	// counts successful commands; a reading taken under an older
	// generation is dropped.
	stateMu sync.Mutex
	cmdGen  uint64

	browseMu sync.Mutex
	browses  map[string]*browse

	refresh chan struct{}
}

// browse is the shared list for one parent. seq identifies the newest load;
// older loads finishing late are discarded.
type browse struct {
	items *observable.Field[[]media.Item]
	seq   uint64
}

// New creates a connection. Run must be called to start polling.
func New(cfg Config, client music.Client, browser Browser, logger zerolog.Logger) *Connection {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxPollInterval < cfg.PollInterval {
		cfg.MaxPollInterval = cfg.PollInterval
	}
	if cfg.RootMediaID == "" {
		cfg.RootMediaID = def.RootMediaID
	}

	return &Connection{
		config:         cfg,
		client:         client,
		browser:        browser,
		logger:         logger.With().Str("component", "session").Logger(),
		now:            time.Now,
		isConnected:    observable.NewFieldWith(false),
		networkFailure: observable.NewFieldWith(false),
		playbackState:  observable.NewFieldWith(media.PlaybackState{State: media.StateNone}),
		nowPlaying:     observable.NewFieldWith(media.Metadata{}),
		repeatMode:     observable.NewFieldWith(media.RepeatNone),
		browses:        make(map[string]*browse),
		refresh:        make(chan struct{}, 1),
	}
}

// SetArtwork sets the resolver used to fill in missing album art
func (c *Connection) SetArtwork(a ArtworkResolver) {
	c.artwork = a
}

// SetStore sets the snapshot store
func (c *Connection) SetStore(s SnapshotStore) {
	c.store = s
}

// RootMediaID returns the browse root
func (c *Connection) RootMediaID() string {
	return c.config.RootMediaID
}

// IsConnected reports whether the backend is reachable
func (c *Connection) IsConnected() observable.Observable[bool] { return c.isConnected }

// NetworkFailure is true after a browse request failed, until one succeeds
func (c *Connection) NetworkFailure() observable.Observable[bool] { return c.networkFailure }

// PlaybackState is the latest transport reading
func (c *Connection) PlaybackState() observable.Observable[media.PlaybackState] {
	return c.playbackState
}

// NowPlaying is the prepared item; the zero Metadata means nothing is prepared
func (c *Connection) NowPlaying() observable.Observable[media.Metadata] { return c.nowPlaying }

// RepeatMode is the backend's repeat setting
func (c *Connection) RepeatMode() observable.Observable[media.RepeatMode] { return c.repeatMode }

// Restore seeds state from the snapshot store so screens have something to
// show before the first poll completes.
func (c *Connection) Restore() error {
	if c.store == nil {
		return nil
	}

	snap, ok, err := c.store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if !ok {
		return nil
	}

	c.metaMu.Lock()
	c.nowPlaying.Set(snap.NowPlaying)
	c.metaMu.Unlock()
	c.repeatMode.Set(snap.Repeat)

	c.logger.Debug().
		Str("id", snap.NowPlaying.ID).
		Str("repeat", snap.Repeat.String()).
		Msg("Restored session snapshot")
	return nil
}

// Run polls the backend until ctx is cancelled. Failed polls back off
// exponentially up to MaxPollInterval; the first success resets it.
func (c *Connection) Run(ctx context.Context) error {
	c.logger.Info().
		Dur("interval", c.config.PollInterval).
		Msg("Starting session connection")

	interval := c.config.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	adjust := func(err error) {
		next := c.config.PollInterval
		if err != nil {
			next = interval * 2
			if next > c.config.MaxPollInterval {
				next = c.config.MaxPollInterval
			}
		}
		if next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}

	// Poll immediately on start
	adjust(c.poll(ctx))

	for {
		select {
		case <-ctx.Done():
			c.isConnected.Set(false)
			c.logger.Info().Msg("Session connection stopped")
			return ctx.Err()
		case <-ticker.C:
			adjust(c.poll(ctx))
		case <-c.refresh:
			adjust(c.poll(ctx))
		}
	}
}

// Refresh polls the backend once. Used by one-shot commands that do not Run.
func (c *Connection) Refresh(ctx context.Context) error {
	return c.poll(ctx)
}

func (c *Connection) poll(ctx context.Context) error {
	gen := c.generation()
	track, err := c.client.GetCurrentTrack(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug().Err(err).Msg("Error getting current track")
		setIfChanged(c.isConnected, false)
		return err
	}

	connected := true
	if track == nil {
		// nil means stopped or not running; only the latter is a disconnect
		running, err := c.client.IsRunning(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("Error checking backend")
		}
		connected = err == nil && running
	}
	setIfChanged(c.isConnected, connected)

	c.apply(ctx, gen, track)
	return nil
}

func (c *Connection) generation() uint64 {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.cmdGen
}

// setIfChanged sets v unless f already holds it, reporting whether it did
func setIfChanged[T comparable](f *observable.Field[T], v T) bool {
	if cur, ok := f.Value(); ok && cur == v {
		return false
	}
	f.Set(v)
	return true
}

// apply publishes a backend reading taken under command generation gen.
// A command sent since then makes the reading stale, so it is dropped and
// the next poll reports the result instead.
func (c *Connection) apply(ctx context.Context, gen uint64, track *music.Track) {
	now := c.now()

	c.stateMu.Lock()
	if gen != c.cmdGen {
		c.stateMu.Unlock()
		c.logger.Debug().Msg("Dropped reading taken before a command")
		return
	}
	if track == nil {
		c.stateMu.Unlock()
		c.metaMu.Lock()
		if cur, _ := c.nowPlaying.Value(); !cur.IsZero() {
			c.nowPlaying.Set(media.Metadata{})
		}
		c.metaMu.Unlock()
		c.publishState(gen, media.PlaybackState{State: media.StateNone}, true)
		return
	}
	repeatChanged := setIfChanged(c.repeatMode, track.Repeat)
	c.stateMu.Unlock()

	md := media.Metadata{
		ID:       track.ID,
		Title:    track.Name,
		Subtitle: track.Artist,
		Album:    track.Album,
		Duration: track.Duration,
	}

	c.metaMu.Lock()
	cur, _ := c.nowPlaying.Value()
	changed := cur.ID != md.ID || cur.Title != md.Title || cur.Duration != md.Duration
	if changed {
		// Keep restored art for the same item; otherwise resolve it fresh
		if cur.ID == md.ID {
			md.AlbumArtURI = cur.AlbumArtURI
		}
		c.nowPlaying.Set(md)
	}
	c.metaMu.Unlock()

	if changed {
		c.logger.Info().
			Str("track", md.Title).
			Str("artist", md.Subtitle).
			Msg("Track changed")
		c.recordPlay(md, now)
		if md.AlbumArtURI == "" {
			c.resolveArtwork(ctx, md)
		}
	} else if repeatChanged {
		c.saveSnapshot()
	}

	var state media.State
	switch track.State {
	case music.StatePlaying:
		state = media.StatePlaying
	case music.StatePaused:
		state = media.StatePaused
	default:
		state = media.StateStopped
	}
	c.publishState(gen, media.PlaybackState{
		State:     state,
		Position:  track.Position,
		UpdatedAt: now,
	}, false)
}

// publishState sets the playback state unless a command has been sent since
// generation gen was read.
func (c *Connection) publishState(gen uint64, st media.PlaybackState, onlyIfChanged bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if gen != c.cmdGen {
		return
	}
	if onlyIfChanged {
		setIfChanged(c.playbackState, st)
		return
	}
	c.playbackState.Set(st)
}

// resolveArtwork looks up art off the poll goroutine and applies it only if
// the same item is still prepared.
func (c *Connection) resolveArtwork(ctx context.Context, md media.Metadata) {
	if c.artwork == nil {
		return
	}

	go func() {
		uri := c.artwork.Lookup(ctx, md.Subtitle, md.Album)
		if uri == "" {
			return
		}

		c.metaMu.Lock()
		cur, _ := c.nowPlaying.Value()
		if cur.ID != md.ID || cur.AlbumArtURI != "" {
			c.metaMu.Unlock()
			return
		}
		cur.AlbumArtURI = uri
		c.nowPlaying.Set(cur)
		c.metaMu.Unlock()

		c.saveSnapshot()
	}()
}

func (c *Connection) recordPlay(md media.Metadata, at time.Time) {
	if c.store == nil {
		return
	}
	if err := c.store.AddToHistory(md, at); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to record play history")
	}
	c.saveSnapshot()
}

func (c *Connection) saveSnapshot() {
	if c.store == nil {
		return
	}
	md, _ := c.nowPlaying.Value()
	repeat, _ := c.repeatMode.Value()
	snap := store.Snapshot{NowPlaying: md, Repeat: repeat, SavedAt: c.now()}
	if err := c.store.SaveSnapshot(snap); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to save session snapshot")
	}
}

// poke asks Run to poll early so command results show up promptly
func (c *Connection) poke() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

func (c *Connection) command(action string, err error) error {
	return c.commandThen(action, err, nil)
}

// commandThen records a sent command and runs publish, if any, before any
// later poll reading can be applied.
func (c *Connection) commandThen(action string, err error, publish func()) error {
	if err != nil {
		c.logger.Warn().Err(err).Str("command", action).Msg("Transport command failed")
		return err
	}

	c.stateMu.Lock()
	c.cmdGen++
	if publish != nil {
		publish()
	}
	c.stateMu.Unlock()

	c.logger.Debug().Str("command", action).Msg("Transport command sent")
	c.poke()
	return nil
}

// Play starts playing the item with the given id
func (c *Connection) Play(ctx context.Context, id string) error {
	return c.command("play "+id, c.client.PlayTrack(ctx, id))
}

// Resume resumes the prepared item
func (c *Connection) Resume(ctx context.Context) error {
	return c.command("resume", c.client.Play(ctx))
}

// Pause pauses playback
func (c *Connection) Pause(ctx context.Context) error {
	return c.command("pause", c.client.Pause(ctx))
}

// SeekTo moves the playhead to positionMs milliseconds. The new position is
// published right away rather than waiting for the next poll.
func (c *Connection) SeekTo(ctx context.Context, positionMs int64) error {
	pos := time.Duration(positionMs) * time.Millisecond
	return c.commandThen("seek", c.client.Seek(ctx, pos), func() {
		st, _ := c.playbackState.Value()
		st.Position = pos
		st.UpdatedAt = c.now()
		c.playbackState.Set(st)
	})
}

// SetRepeatMode changes the backend's repeat setting
func (c *Connection) SetRepeatMode(ctx context.Context, mode media.RepeatMode) error {
	var changed bool
	err := c.commandThen("repeat "+mode.String(), c.client.SetRepeat(ctx, mode), func() {
		changed = setIfChanged(c.repeatMode, mode)
	})
	if err != nil {
		return err
	}
	if changed {
		c.saveSnapshot()
	}
	return nil
}

// SkipNext skips to the next item
func (c *Connection) SkipNext(ctx context.Context) error {
	return c.command("next", c.client.NextTrack(ctx))
}

// SkipPrevious goes back to the previous item
func (c *Connection) SkipPrevious(ctx context.Context) error {
	return c.command("previous", c.client.PreviousTrack(ctx))
}

// Browse returns the children of parentID as an observable list and starts
// loading them. The last loaded list for the same parent is replayed
// immediately while the reload runs.
func (c *Connection) Browse(ctx context.Context, parentID string) observable.Observable[[]media.Item] {
	c.browseMu.Lock()
	b, ok := c.browses[parentID]
	if !ok {
		b = &browse{items: observable.NewField[[]media.Item]()}
		c.browses[parentID] = b
	}
	b.seq++
	seq := b.seq
	c.browseMu.Unlock()

	go c.load(ctx, parentID, b, seq)

	return b.items
}

// load fetches the children of parentID and publishes them if no newer load
// for the same parent has started meanwhile.
func (c *Connection) load(ctx context.Context, parentID string, b *browse, seq uint64) {
	items, err := c.browser.Children(ctx, parentID)
	if ctx.Err() != nil {
		return
	}

	c.browseMu.Lock()
	defer c.browseMu.Unlock()
	if b.seq != seq {
		c.logger.Debug().Str("parent", parentID).Msg("Discarded superseded browse")
		return
	}

	if err != nil {
		c.logger.Warn().Err(err).Str("parent", parentID).Msg("Browse failed")
		setIfChanged(c.networkFailure, true)
		return
	}

	setIfChanged(c.networkFailure, false)
	b.items.Set(items)

	c.logger.Debug().
		Str("parent", parentID).
		Int("count", len(items)).
		Msg("Browse loaded")
}
