package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jiemo/player/internal/app"
	"github.com/jiemo/player/internal/config"
	"github.com/jiemo/player/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the catalog and control playback in a terminal UI",
	Long: `Open the interactive player.

The left side is a stack of browse lists starting at the catalog root;
the right side shows the now-playing track with its artwork, a progress
bar and the play/pause and repeat controls.

Keys:
  enter        open a folder or play a track
  esc          back to the previous list
  tab          move focus between the lists and the now-playing panel
  space        play/pause
  r            cycle repeat mode
  n / p        next / previous track
  left/right   drag the seek handle (now-playing panel), enter to seek
  q            quit

Logs go to --log-file when set and are discarded otherwise.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the tui needs a terminal; use 'jiemo now' or 'jiemo browse' in scripts")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupTUILogger(logFile, logLevel)
	logger.Info().
		Str("version", version).
		Msg("Starting jiemo")

	p, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.New(p, logger).Run(ctx); err != nil {
		return err
	}

	logger.Info().Msg("jiemo stopped")
	return nil
}
