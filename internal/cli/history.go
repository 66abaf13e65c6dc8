package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mvgnu/smplat-sub001/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Route   string
	Variant string
	Limit   int
	Offset  int
}

// NewHistoryCommand creates the history command: the dashboard-facing
// filtered, paginated history query.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the snapshot history",
		Long: `Query the snapshot history: manifests joined with their route rows,
aggregate counts, governance summaries, and event ledgers.

Examples:
  previewtrail history --db ./previewtrail.db
  previewtrail history --db ./previewtrail.db --route /pricing
  previewtrail history --db ./previewtrail.db --variant draft --limit 25 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Route, "route", "", "restrict to manifests containing this route")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "restrict to manifests with draft|published routes")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (1-50, default 10)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "page offset")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	st, closeStore, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	page, err := st.QuerySnapshotHistory(context.Background(), history.HistoryQuery{
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		Route:   opts.Route,
		Variant: opts.Variant,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query history", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), page)
	}

	return printHistoryText(cmd, page)
}

func printHistoryText(cmd *cobra.Command, page history.HistoryPage) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d of %d manifests (offset %d)\n", len(page.Entries), page.Total, page.Offset)

	for _, entry := range page.Entries {
		fmt.Fprintf(out, "\n%s  %s", entry.Manifest.ID, entry.Manifest.GeneratedAt)
		if entry.Manifest.Label != "" {
			fmt.Fprintf(out, "  (%s)", entry.Manifest.Label)
		}
		fmt.Fprintln(out)

		agg := entry.Aggregates
		fmt.Fprintf(out, "  routes: %d total, %d drifted, %d draft, %d published\n",
			agg.TotalRoutes, agg.DiffDetectedRoutes, agg.DraftRoutes, agg.PublishedRoutes)

		if entry.Governance.TotalActions > 0 {
			fmt.Fprintf(out, "  governance: %d actions, latest %s\n",
				entry.Governance.TotalActions, entry.Governance.LatestAt)
		}
		if len(entry.Deltas) > 0 || len(entry.Remediation) > 0 || len(entry.Notes) > 0 {
			fmt.Fprintf(out, "  ledgers: %d deltas, %d remediations, %d notes\n",
				len(entry.Deltas), len(entry.Remediation), len(entry.Notes))
		}
	}

	return nil
}
