package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jiemo/player/internal/app"
	"github.com/jiemo/player/internal/config"
	"github.com/spf13/cobra"
)

// commandTimeout bounds a one-shot command's backend round trips
const commandTimeout = 5 * time.Second

// withSession runs fn against a provider whose connection has been
// refreshed once, so the view models start from the backend's current
// state. The session store is not opened; a running TUI keeps its lock.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, p *app.Provider) error) error {
	return runSession(cmd, true, fn)
}

// withCatalog is withSession for commands that mostly read the catalog. An
// unreachable backend only leaves the playing indicators off.
func withCatalog(cmd *cobra.Command, fn func(ctx context.Context, p *app.Provider) error) error {
	return runSession(cmd, false, fn)
}

func runSession(cmd *cobra.Command, requireBackend bool, fn func(ctx context.Context, p *app.Provider) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(logFile, logLevel)

	p, err := app.NewWithoutStore(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	if err := p.Connection().Refresh(ctx); err != nil {
		if requireBackend {
			return fmt.Errorf("failed to query Apple Music: %w", err)
		}
		logger.Debug().Err(err).Msg("Apple Music unavailable")
	}

	return fn(ctx, p)
}

// withProvider runs fn against a provider that owns the session store, for
// commands that read or write persisted state without touching the backend.
func withProvider(cmd *cobra.Command, fn func(ctx context.Context, p *app.Provider) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(logFile, logLevel)

	p, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	return fn(cmd.Context(), p)
}
