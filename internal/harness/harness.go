// Package harness executes conformance scenarios against the full history
// pipeline: manifest persistence, ledger writes, the history query, and the
// analytics transform. Scenarios are YAML files; expected analytics output
// is pinned with golden files.
//
// Each scenario runs in a fresh in-memory database for isolation, with
// scenario-supplied timestamps, so repeated runs produce identical results.
package harness

import (
	"context"
	"fmt"

	"github.com/Mvgnu/smplat-sub001/internal/analytics"
	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/identity"
	"github.com/Mvgnu/smplat-sub001/internal/store"
	"github.com/Mvgnu/smplat-sub001/internal/testutil"
)

// Result carries everything a scenario produced, for assertions and golden
// comparison.
type Result struct {
	Page   history.HistoryPage
	Report analytics.Report
	Errors []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open a fresh in-memory store
//  2. Persist every manifest step in order (retention applies as it would
//     in production: on each persist)
//  3. Apply every ledger event in order
//  4. Run the history query
//  5. Build analytics over the query result
//  6. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	for _, step := range scenario.Manifests {
		manifest := testutil.Manifest(step.ID, step.GeneratedAt, step.Routes, step.Drifted)
		manifest.Label = step.Label
		summaries := history.SummarizeRoutes(manifest)
		if err := st.PersistManifest(ctx, manifest, summaries, scenario.HistoryLimit); err != nil {
			return nil, fmt.Errorf("persist %s: %w", step.ID, err)
		}
	}

	for i, event := range scenario.Events {
		if err := applyEvent(ctx, st, event); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, event.Type, err)
		}
	}

	page, err := st.QuerySnapshotHistory(ctx, history.HistoryQuery{
		Limit:   scenario.Query.Limit,
		Offset:  scenario.Query.Offset,
		Route:   scenario.Query.Route,
		Variant: scenario.Query.Variant,
	})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	result := &Result{
		Page:   page,
		Report: analytics.Build(page.Entries),
	}
	result.Errors = EvaluateAssertions(result, scenario.Assertions)

	return result, nil
}

func applyEvent(ctx context.Context, st *store.Store, event EventStep) error {
	actorHash := ""
	if event.Actor != "" {
		actorHash = identity.Hash(event.Actor)
	}

	switch event.Type {
	case "governance":
		_, err := st.RecordGovernanceAction(ctx, history.GovernanceAction{
			ID:         event.ID,
			ManifestID: event.Manifest,
			ActorHash:  actorHash,
			ActionKind: event.Kind,
			CreatedAt:  event.At,
		})
		return err

	case "delta":
		_, _, err := st.RecordLivePreviewDelta(ctx, history.LiveDeltaRecord{
			ManifestID: event.Manifest,
			Route:      event.Route,
			Variant:    event.Variant,
			RecordedAt: event.At,
		})
		return err

	case "remediation":
		action := event.Action
		if action == "" {
			action = history.RemediationReset
		}
		_, _, err := st.RecordRemediationAction(ctx, history.RemediationActionRecord{
			ID:          event.ID,
			ManifestID:  event.Manifest,
			Route:       event.Route,
			Action:      action,
			Fingerprint: event.Fingerprint,
			ActorHash:   actorHash,
			RecordedAt:  event.At,
		})
		return err

	case "note":
		_, _, err := st.RecordNoteRevision(ctx, history.NoteRevisionRecord{
			ID:         event.ID,
			ManifestID: event.Manifest,
			Route:      event.Route,
			Severity:   event.Severity,
			Body:       event.Body,
			AuthorHash: actorHash,
			RecordedAt: event.At,
		})
		return err

	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}
