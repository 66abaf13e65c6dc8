package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/store"
)

// PersistOptions holds flags for the persist command.
type PersistOptions struct {
	*RootOptions
	ManifestPath string
	Label        string
	HistoryLimit int
}

// NewPersistCommand creates the persist command: ingest a rendered manifest
// produced by the page renderer and record it as a history snapshot.
func NewPersistCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PersistOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Persist a snapshot manifest",
		Long: `Persist a snapshot manifest into the preview history.

The manifest file is the JSON output of the page renderer: a list of
per-route render results with draft and published previews. Route summaries
are derived locally, and history beyond the retention limit is trimmed in
the same transaction.

Re-running persist with the same manifest id overwrites the earlier
snapshot in place - persist is idempotent by id.

Examples:
  previewtrail persist --db ./previewtrail.db --manifest render-output.json
  previewtrail persist --db ./previewtrail.db --manifest out.json --label release-42 --limit 48`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPersist(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ManifestPath, "manifest", "", "path to manifest JSON file (required)")
	_ = cmd.MarkFlagRequired("manifest")
	cmd.Flags().StringVar(&opts.Label, "label", "", "human label for the snapshot (also drives the id)")
	cmd.Flags().IntVar(&opts.HistoryLimit, "limit", 0, "retention limit (default from config)")

	return cmd
}

func runPersist(opts *PersistOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg, err := resolveConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	manifest, err := loadManifest(opts.ManifestPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}

	if opts.Label != "" {
		manifest.Label = opts.Label
	}
	if manifest.GeneratedAt == "" {
		manifest.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if manifest.ID == "" {
		manifest.ID = history.ManifestID(manifest.Label, manifest.GeneratedAt)
	}

	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = cfg.HistoryLimit
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	summaries := history.SummarizeRoutes(manifest)
	if err := st.PersistManifest(ctx, manifest, summaries, limit); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist manifest", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"id":          manifest.ID,
			"generatedAt": manifest.GeneratedAt,
			"routes":      len(summaries),
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Persisted manifest %s (%d routes)\n", manifest.ID, len(summaries))
	return nil
}

func loadManifest(path string) (history.SnapshotManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return history.SnapshotManifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var manifest history.SnapshotManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return history.SnapshotManifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	return manifest, nil
}
