// Package app is the composition root: it builds the one session connection
// for the process and hands it to every view model.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/20after4/configdir"
	"github.com/jiemo/player/internal/artwork"
	"github.com/jiemo/player/internal/config"
	"github.com/jiemo/player/internal/discord"
	"github.com/jiemo/player/internal/library"
	"github.com/jiemo/player/internal/music"
	"github.com/jiemo/player/internal/session"
	"github.com/jiemo/player/internal/store"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/rs/zerolog"
)

// Provider owns the long-lived collaborators and vends view models
type Provider struct {
	cfg     *config.Config
	logger  zerolog.Logger
	catalog *library.Catalog
	store   *store.Store
	conn    *session.Connection

	mainOnce       sync.Once
	main           *viewmodel.Main
	nowPlayingOnce sync.Once
	nowPlaying     *viewmodel.NowPlaying

	closeOnce sync.Once
	closeErr  error
}

// New opens the catalog and session store named by cfg and connects to the
// Apple Music backend.
func New(cfg *config.Config, logger zerolog.Logger) (*Provider, error) {
	if err := configdir.MakePath(filepath.Dir(cfg.LibraryDB), filepath.Dir(cfg.StateDB)); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	catalog, err := library.Open(cfg.LibraryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	st, err := store.Open(cfg.StateDB)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	return build(cfg, music.NewAppleScriptClient(), catalog, st, logger), nil
}

// NewWithoutStore is New for one-shot commands that may run beside the TUI,
// which holds the session store's lock. Nothing is restored or persisted.
func NewWithoutStore(cfg *config.Config, logger zerolog.Logger) (*Provider, error) {
	if err := configdir.MakePath(filepath.Dir(cfg.LibraryDB)); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	catalog, err := library.Open(cfg.LibraryDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	return build(cfg, music.NewAppleScriptClient(), catalog, nil, logger), nil
}

// build wires a provider around already opened resources, taking ownership
// of catalog and st. st may be nil.
func build(cfg *config.Config, client music.Client, catalog *library.Catalog, st *store.Store, logger zerolog.Logger) *Provider {
	conn := session.New(session.Config{
		PollInterval: cfg.Poll(),
		RootMediaID:  cfg.RootMediaID,
	}, client, catalog, logger)
	if cfg.ArtworkLookup {
		conn.SetArtwork(artwork.NewLookup())
	}

	if st != nil {
		conn.SetStore(st)
		if err := conn.Restore(); err != nil {
			logger.Warn().Err(err).Msg("Failed to restore session")
		}
	}

	return &Provider{
		cfg:     cfg,
		logger:  logger.With().Str("component", "app").Logger(),
		catalog: catalog,
		store:   st,
		conn:    conn,
	}
}

// Connection returns the process-wide session connection
func (p *Provider) Connection() *session.Connection { return p.conn }

// Catalog returns the browse catalog
func (p *Provider) Catalog() *library.Catalog { return p.catalog }

// Store returns the session store, or nil when opened without one
func (p *Provider) Store() *store.Store { return p.store }

// Config returns the configuration the provider was built from
func (p *Provider) Config() *config.Config { return p.cfg }

// Main returns the shared main view model
func (p *Provider) Main() *viewmodel.Main {
	p.mainOnce.Do(func() {
		p.main = viewmodel.NewMain(p.conn, p.logger)
	})
	return p.main
}

// NowPlaying returns the shared now-playing view model
func (p *Provider) NowPlaying() *viewmodel.NowPlaying {
	p.nowPlayingOnce.Do(func() {
		p.nowPlaying = viewmodel.NewNowPlaying(p.conn, p.cfg.PositionInterval(), p.logger)
	})
	return p.nowPlaying
}

// MediaItems returns a new list view model for mediaID. The caller closes it.
func (p *Provider) MediaItems(ctx context.Context, mediaID string) (*viewmodel.MediaItems, error) {
	return viewmodel.NewMediaItems(ctx, mediaID, p.conn, p.logger)
}

// Start polls the backend and ticks the playing position until ctx is
// cancelled. With a Discord app id configured, the now-playing track is
// mirrored to Rich Presence too.
func (p *Provider) Start(ctx context.Context) {
	np := p.NowPlaying()
	go func() {
		if err := p.conn.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error().Err(err).Msg("Session connection stopped")
		}
	}()
	go np.Run(ctx)

	if p.cfg.DiscordAppID != "" {
		go discord.New(p.cfg.DiscordAppID, p.logger).Run(ctx, np)
	}
}

// Close releases the view models and closes the stores in reverse order of
// opening.
func (p *Provider) Close() error {
	p.closeOnce.Do(func() {
		if p.nowPlaying != nil {
			p.nowPlaying.Close()
		}
		if p.main != nil {
			p.main.Close()
		}

		var errs []error
		if p.store != nil {
			if err := p.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close session store: %w", err))
			}
		}
		if err := p.catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close library: %w", err))
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}
