package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mvgnu/smplat-sub001/internal/analytics"
	"github.com/Mvgnu/smplat-sub001/internal/history"
)

// AnalyticsOptions holds flags for the analytics command.
type AnalyticsOptions struct {
	*RootOptions
	Route   string
	Variant string
	Window  int
}

// NewAnalyticsCommand creates the analytics command: query a history window
// and compute the trend report over it.
func NewAnalyticsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyticsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Compute trend analytics over the history",
		Long: `Compute regression velocity, severity momentum, a time-to-green
forecast, and recurring-failure recommendations over a window of history.

Examples:
  previewtrail analytics --db ./previewtrail.db
  previewtrail analytics --db ./previewtrail.db --route /pricing --window 48
  previewtrail analytics --db ./previewtrail.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalytics(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Route, "route", "", "restrict to manifests containing this route")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "restrict to manifests with draft|published routes")
	cmd.Flags().IntVar(&opts.Window, "window", history.MaxQueryLimit, "number of recent manifests to analyze (1-50)")

	return cmd
}

func runAnalytics(opts *AnalyticsOptions, cmd *cobra.Command) error {
	st, closeStore, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore()

	page, err := st.QuerySnapshotHistory(context.Background(), history.HistoryQuery{
		Limit:   opts.Window,
		Route:   opts.Route,
		Variant: opts.Variant,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query history", err)
	}

	report := analytics.Build(page.Entries)

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	return printReportText(cmd, report, len(page.Entries))
}

func printReportText(cmd *cobra.Command, report analytics.Report, entries int) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Analytics over %d history entries\n\n", entries)

	rv := report.RegressionVelocity
	fmt.Fprintf(out, "Regression velocity: %.3f routes/h avg, %.3f routes/h current (confidence %.2f, n=%d)\n",
		rv.AveragePerHour, rv.CurrentPerHour, rv.Confidence, rv.SampleSize)

	sm := report.SeverityMomentum
	fmt.Fprintf(out, "Severity momentum:   info %.3f/h, warning %.3f/h, blocker %.3f/h (overall %.3f)\n",
		sm.Info, sm.Warning, sm.Blocker, sm.Overall)

	ttg := report.TimeToGreen
	if ttg.ForecastAt != nil {
		fmt.Fprintf(out, "Time to green:       %s (in %.1fh, slope %.3f/h, confidence %.2f)\n",
			*ttg.ForecastAt, ttg.ForecastHours, ttg.SlopePerHour, ttg.Confidence)
	} else {
		fmt.Fprintf(out, "Time to green:       unavailable (slope %.3f/h)\n", ttg.SlopePerHour)
	}

	if len(report.Recommendations) == 0 {
		fmt.Fprintln(out, "Recommendations:     none")
		return nil
	}

	fmt.Fprintln(out, "Recommendations:")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(out, "  %dx %s (last %s, confidence %.2f)\n",
			rec.Occurrences, rec.Fingerprint, rec.LastSeenAt, rec.Confidence)
		fmt.Fprintf(out, "     routes: %v\n", rec.AffectedRoutes)
		fmt.Fprintf(out, "     %s\n", rec.Suggestion)
	}

	return nil
}
