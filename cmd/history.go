package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/jiemo/player/internal/app"
	"github.com/spf13/cobra"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	Long: `Show the tracks the TUI saw playing, most recent first.

The history lives in the session store, which the TUI holds open while it
runs; quit the TUI before running this command.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 0, "Number of entries to show (default: history_limit from config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withProvider(cmd, func(ctx context.Context, p *app.Provider) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = p.Config().HistoryLimit
		}

		entries, err := p.Store().History(limit)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No tracks played yet")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				humanize.Time(e.PlayedAt), e.Metadata.Title, e.Metadata.Subtitle, e.Metadata.ID)
		}
		return w.Flush()
	})
}
