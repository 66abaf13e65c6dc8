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
	"github.com/Mvgnu/smplat-sub001/internal/identity"
	"github.com/Mvgnu/smplat-sub001/internal/store"
)

// RecordOptions holds flags shared by the record subcommands.
type RecordOptions struct {
	*RootOptions
	ID         string
	ManifestID string
	Actor      string
	At         string
}

// NewRecordCommand creates the record command group: the four ledger writes
// invoked by admin actions and automation.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a governance, delta, remediation, or note event",
	}

	cmd.AddCommand(newRecordGovernanceCommand(rootOpts))
	cmd.AddCommand(newRecordDeltaCommand(rootOpts))
	cmd.AddCommand(newRecordRemediationCommand(rootOpts))
	cmd.AddCommand(newRecordNoteCommand(rootOpts))

	return cmd
}

func addCommonRecordFlags(cmd *cobra.Command, opts *RecordOptions) {
	cmd.Flags().StringVar(&opts.ID, "id", "", "idempotence id (generated when omitted)")
	cmd.Flags().StringVar(&opts.ManifestID, "manifest", "", "manifest id this event refers to")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor identity (stored hashed, never plaintext)")
	cmd.Flags().StringVar(&opts.At, "at", "", "event timestamp, RFC 3339 (default now)")
}

func (o *RecordOptions) timestamp() string {
	if o.At != "" {
		return o.At
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func (o *RecordOptions) actorHash() string {
	if o.Actor == "" {
		return ""
	}
	return identity.Hash(o.Actor)
}

func openStore(rootOpts *RootOptions) (*store.Store, func(), error) {
	cfg, err := resolveConfig(rootOpts)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	closer := func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}
	return st, closer, nil
}

func reportRecorded(cmd *cobra.Command, format, kind, id string, inserted bool) error {
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"kind":     kind,
			"id":       id,
			"inserted": inserted,
		})
	}
	if inserted {
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s\n", kind, id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Duplicate %s %s (no-op)\n", kind, id)
	}
	return nil
}

func newRecordGovernanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}
	var kind string
	var metaJSON string

	cmd := &cobra.Command{
		Use:   "governance",
		Short: "Record an operator governance decision",
		Long: `Record an operator governance decision (approve, reject, publish, ...).

Resubmitting with the same --id replaces the earlier row instead of
duplicating it.

Example:
  previewtrail record governance --db ./previewtrail.db --kind approve-draft \
      --manifest release-42 --actor alice@example.com`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeStore()

			var metadata map[string]any
			if metaJSON != "" {
				if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
					return WrapExitError(ExitCommandError, "invalid --meta JSON", err)
				}
			}

			id, err := st.RecordGovernanceAction(context.Background(), history.GovernanceAction{
				ID:         opts.ID,
				ManifestID: opts.ManifestID,
				ActorHash:  opts.actorHash(),
				ActionKind: kind,
				Metadata:   metadata,
				CreatedAt:  opts.timestamp(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record governance action", err)
			}

			return reportRecorded(cmd, opts.Format, "governance action", id, true)
		},
	}

	addCommonRecordFlags(cmd, opts)
	cmd.Flags().StringVar(&kind, "kind", "", "action kind, e.g. approve-draft (required)")
	_ = cmd.MarkFlagRequired("kind")
	cmd.Flags().StringVar(&metaJSON, "meta", "", "metadata as inline JSON object")

	return cmd
}

func newRecordDeltaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}
	var payloadPath string

	cmd := &cobra.Command{
		Use:   "delta",
		Short: "Record a live preview delta",
		Long: `Record a live preview render observed outside the manifest cycle.

The payload file is the delta JSON emitted by the live preview endpoint.
The record's identity is derived from the payload content: submitting an
identical payload twice leaves exactly one row.

Example:
  previewtrail record delta --db ./previewtrail.db --payload delta.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(payloadPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read payload", err)
			}

			var delta history.LiveDeltaRecord
			if err := json.Unmarshal(data, &delta); err != nil {
				return WrapExitError(ExitCommandError, "failed to parse payload", err)
			}
			if delta.RecordedAt == "" {
				delta.RecordedAt = opts.timestamp()
			}
			if opts.ManifestID != "" {
				delta.ManifestID = opts.ManifestID
			}

			st, closeStore, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeStore()

			fingerprint, inserted, err := st.RecordLivePreviewDelta(context.Background(), delta)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record delta", err)
			}

			return reportRecorded(cmd, opts.Format, "delta", fingerprint, inserted)
		},
	}

	addCommonRecordFlags(cmd, opts)
	cmd.Flags().StringVar(&payloadPath, "payload", "", "path to delta payload JSON (required)")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func newRecordRemediationCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}
	var route, action, fingerprint string

	cmd := &cobra.Command{
		Use:   "remediation",
		Short: "Record a remediation action",
		Long: `Record a remediation (reset or prioritize) applied to a route.

The optional --fingerprint classifies the cause (e.g. schema:missing-field)
and feeds the recurring-failure recommendations.

Example:
  previewtrail record remediation --db ./previewtrail.db --route /pricing \
      --action reset --fingerprint schema:missing-field`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if action != history.RemediationReset && action != history.RemediationPrioritize {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid action %q: must be %s or %s", action, history.RemediationReset, history.RemediationPrioritize), nil)
			}

			st, closeStore, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeStore()

			id, inserted, err := st.RecordRemediationAction(context.Background(), history.RemediationActionRecord{
				ID:          opts.ID,
				ManifestID:  opts.ManifestID,
				Route:       route,
				Action:      action,
				Fingerprint: fingerprint,
				ActorHash:   opts.actorHash(),
				RecordedAt:  opts.timestamp(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record remediation", err)
			}

			return reportRecorded(cmd, opts.Format, "remediation", id, inserted)
		},
	}

	addCommonRecordFlags(cmd, opts)
	cmd.Flags().StringVar(&route, "route", "", "route path (required)")
	_ = cmd.MarkFlagRequired("route")
	cmd.Flags().StringVar(&action, "action", "", "reset | prioritize (required)")
	_ = cmd.MarkFlagRequired("action")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "cause fingerprint, e.g. schema:missing-field")

	return cmd
}

func newRecordNoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}
	var route, severity, body string

	cmd := &cobra.Command{
		Use:   "note",
		Short: "Record a triage note revision",
		Long: `Record a triage note against a route.

Example:
  previewtrail record note --db ./previewtrail.db --route /pricing \
      --severity blocker --body "Hero image missing after CMS migration"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch severity {
			case history.SeverityInfo, history.SeverityWarning, history.SeverityBlocker:
			default:
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid severity %q: must be info, warning, or blocker", severity), nil)
			}

			st, closeStore, err := openStore(opts.RootOptions)
			if err != nil {
				return err
			}
			defer closeStore()

			id, inserted, err := st.RecordNoteRevision(context.Background(), history.NoteRevisionRecord{
				ID:         opts.ID,
				ManifestID: opts.ManifestID,
				Route:      route,
				Severity:   severity,
				Body:       body,
				AuthorHash: opts.actorHash(),
				RecordedAt: opts.timestamp(),
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to record note", err)
			}

			return reportRecorded(cmd, opts.Format, "note", id, inserted)
		},
	}

	addCommonRecordFlags(cmd, opts)
	cmd.Flags().StringVar(&route, "route", "", "route path (required)")
	_ = cmd.MarkFlagRequired("route")
	cmd.Flags().StringVar(&severity, "severity", history.SeverityInfo, "info | warning | blocker")
	cmd.Flags().StringVar(&body, "body", "", "note body (required)")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}
