package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/20after4/configdir"
	"github.com/jiemo/player/internal/config"
	"github.com/jiemo/player/internal/library"
	"github.com/spf13/cobra"
)

var importParent string

// libraryCmd represents the library command
var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the browse catalog",
	Long: `Manage the local catalog the browse lists are built from.

The catalog is a tree of folders and tracks kept in SQLite. Track ids are
Apple Music persistent ids, so playing an item plays that track.`,
}

// libraryImportCmd represents the library import command
var libraryImportCmd = &cobra.Command{
	Use:   "import <file.json|->",
	Short: "Import a catalog tree from JSON",
	Long: `Import a JSON array of nodes into the catalog, replacing items with the
same id. Use '-' to read from stdin.

Each node has an "id" and a "title", and optionally "subtitle", "album",
"album_art_uri", "duration_ms", "browsable" and "children". Nodes with
children are folders. Top-level nodes go under the root, or under --parent.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryImport,
}

// libraryRemoveCmd represents the library remove command
var libraryRemoveCmd = &cobra.Command{
	Use:   "remove <media-id>",
	Short: "Remove an item and everything under it",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryRemove,
}

// libraryCountCmd represents the library count command
var libraryCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of catalog items",
	Args:  cobra.NoArgs,
	RunE:  runLibraryCount,
}

func init() {
	rootCmd.AddCommand(libraryCmd)
	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryRemoveCmd)
	libraryCmd.AddCommand(libraryCountCmd)

	libraryImportCmd.Flags().StringVar(&importParent, "parent", "", "Parent media id for top-level nodes (default: the root)")
}

// withLibrary opens the catalog alone. It does not touch the backend.
func withLibrary(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, c *library.Catalog) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := configdir.MakePath(filepath.Dir(cfg.LibraryDB)); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	catalog, err := library.Open(cfg.LibraryDB)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer catalog.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*commandTimeout)
	defer cancel()

	return fn(ctx, cfg, catalog)
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open import file: %w", err)
		}
		defer f.Close()
		in = f
	}

	return withLibrary(cmd, func(ctx context.Context, cfg *config.Config, c *library.Catalog) error {
		parent := importParent
		if parent == "" {
			parent = cfg.RootMediaID
		}

		items, err := library.ParseImport(in, parent)
		if err != nil {
			return err
		}
		if err := c.Upsert(ctx, items); err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items under %s\n", len(items), parent)
		return nil
	})
}

func runLibraryRemove(cmd *cobra.Command, args []string) error {
	return withLibrary(cmd, func(ctx context.Context, cfg *config.Config, c *library.Catalog) error {
		n, err := c.Remove(ctx, args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", library.ErrNotFound, args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d items\n", n)
		return nil
	})
}

func runLibraryCount(cmd *cobra.Command, args []string) error {
	return withLibrary(cmd, func(ctx context.Context, cfg *config.Config, c *library.Catalog) error {
		n, err := c.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
}
