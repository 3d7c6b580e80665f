package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jiemo/player/internal/app"
	"github.com/jiemo/player/internal/viewmodel"
	"github.com/spf13/cobra"
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse [media-id]",
	Short: "List the children of a catalog node",
	Long: `List the items under a catalog node, the root when no id is given.

Folders end in '/'. The playing track is marked with '>' and a paused one
with '='. Pass a folder's id to browse into it, or a track's id to
'jiemo play'.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	return withCatalog(cmd, func(ctx context.Context, p *app.Provider) error {
		mediaID := p.Connection().RootMediaID()
		if len(args) == 1 {
			mediaID = args[0]
		}

		items, err := loadItems(ctx, p, mediaID)
		if err != nil {
			return err
		}

		return printItems(cmd.OutOrStdout(), items)
	})
}

// loadItems waits for the first list a media items view model publishes
func loadItems(ctx context.Context, p *app.Provider, mediaID string) ([]viewmodel.ItemData, error) {
	vm, err := p.MediaItems(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	defer vm.Close()

	loaded := make(chan []viewmodel.ItemData, 1)
	failed := make(chan struct{}, 1)

	sub := vm.Items().Subscribe(func(items []viewmodel.ItemData) {
		select {
		case loaded <- items:
		default:
		}
	})
	defer sub.Release()

	errSub := vm.NetworkError().Subscribe(func(bad bool) {
		if bad {
			select {
			case failed <- struct{}{}:
			default:
			}
		}
	})
	defer errSub.Release()

	select {
	case items := <-loaded:
		return items, nil
	case <-failed:
		return nil, fmt.Errorf("failed to load %q from the library", mediaID)
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out loading %q: %w", mediaID, ctx.Err())
	}
}

func printItems(out io.Writer, items []viewmodel.ItemData) error {
	if len(items) == 0 {
		fmt.Fprintln(out, "No items")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, item := range items {
		marker := " "
		switch item.Indicator {
		case viewmodel.IndicatorPlaying:
			marker = ">"
		case viewmodel.IndicatorPaused:
			marker = "="
		}

		title := item.Title
		if item.Browsable {
			title += "/"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, item.ID, title, item.Subtitle)
	}
	return w.Flush()
}
