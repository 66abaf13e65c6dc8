package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Mvgnu/smplat-sub001/internal/history"
)

// FetchSnapshotHistory returns the limit most recent manifests in descending
// generated_at order, reconstructed from their stored payload blobs.
//
// A stored payload that no longer parses is treated as data corruption: the
// call fails with the parse error attached, it never silently skips rows.
func (s *Store) FetchSnapshotHistory(ctx context.Context, limit int) ([]history.SnapshotManifest, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM manifests
		ORDER BY generated_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot history: %w", err)
	}
	defer rows.Close()

	var manifests []history.SnapshotManifest
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("fetch snapshot history: scan: %w", err)
		}
		manifest, err := unmarshalManifest(payload)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot history: %w", err)
		}
		manifests = append(manifests, manifest)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch snapshot history: iterate: %w", err)
	}

	// Return empty slice instead of nil
	if manifests == nil {
		manifests = []history.SnapshotManifest{}
	}

	return manifests, nil
}

// readRouteSummaries returns the full route list for one manifest.
func (s *Store) readRouteSummaries(ctx context.Context, manifestID string) ([]history.RouteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT route, route_hash, diff_detected, has_draft, has_published, section_count, block_kinds
		FROM route_summaries
		WHERE manifest_id = ?
		ORDER BY route COLLATE BINARY ASC
	`, manifestID)
	if err != nil {
		return nil, fmt.Errorf("query route summaries: %w", err)
	}
	defer rows.Close()

	var summaries []history.RouteSummary
	for rows.Next() {
		var summary history.RouteSummary
		var kinds string
		if err := rows.Scan(
			&summary.Route, &summary.RouteHash, &summary.DiffDetected,
			&summary.HasDraft, &summary.HasPublished, &summary.SectionCount, &kinds,
		); err != nil {
			return nil, fmt.Errorf("scan route summary: %w", err)
		}
		summary.BlockKinds, err = unmarshalBlockKinds(kinds)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", summary.Route, err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate route summaries: %w", err)
	}

	if summaries == nil {
		summaries = []history.RouteSummary{}
	}

	return summaries, nil
}

// readRouteAggregates computes the aggregate counts for one manifest with
// conditional aggregation over the normalized route columns - the payload
// blob is never deserialized on this path.
func (s *Store) readRouteAggregates(ctx context.Context, manifestID string) (history.RouteAggregates, error) {
	var agg history.RouteAggregates
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN diff_detected = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN has_draft = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN has_published = 1 THEN 1 ELSE 0 END), 0)
		FROM route_summaries
		WHERE manifest_id = ?
	`, manifestID).Scan(
		&agg.TotalRoutes, &agg.DiffDetectedRoutes, &agg.DraftRoutes, &agg.PublishedRoutes,
	)
	if err != nil {
		return history.RouteAggregates{}, fmt.Errorf("route aggregates: %w", err)
	}
	return agg, nil
}

// readGovernanceSummary aggregates the governance ledger for one manifest:
// action count per kind plus the most recent action timestamp.
func (s *Store) readGovernanceSummary(ctx context.Context, manifestID string) (history.GovernanceSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_kind, COUNT(*), MAX(created_at)
		FROM governance_actions
		WHERE manifest_id = ?
		GROUP BY action_kind
		ORDER BY action_kind COLLATE BINARY ASC
	`, manifestID)
	if err != nil {
		return history.GovernanceSummary{}, fmt.Errorf("query governance summary: %w", err)
	}
	defer rows.Close()

	summary := history.GovernanceSummary{}
	for rows.Next() {
		var kind, latest string
		var count int
		if err := rows.Scan(&kind, &count, &latest); err != nil {
			return history.GovernanceSummary{}, fmt.Errorf("scan governance summary: %w", err)
		}
		if summary.ByKind == nil {
			summary.ByKind = make(map[string]int)
		}
		summary.ByKind[kind] = count
		summary.TotalActions += count
		if latest > summary.LatestAt {
			summary.LatestAt = latest
		}
	}

	if err := rows.Err(); err != nil {
		return history.GovernanceSummary{}, fmt.Errorf("iterate governance summary: %w", err)
	}

	return summary, nil
}

// readDeltas returns the live-delta ledger scoped to one manifest,
// reconstructed from the stored payload blobs.
func (s *Store) readDeltas(ctx context.Context, manifestID string) ([]history.LiveDeltaRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM live_deltas
		WHERE manifest_id = ?
		ORDER BY recorded_at ASC, id COLLATE BINARY ASC
	`, manifestID)
	if err != nil {
		return nil, fmt.Errorf("query live deltas: %w", err)
	}
	defer rows.Close()

	var deltas []history.LiveDeltaRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan live delta: %w", err)
		}
		delta, err := unmarshalDelta(payload)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, delta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live deltas: %w", err)
	}

	if deltas == nil {
		deltas = []history.LiveDeltaRecord{}
	}

	return deltas, nil
}

// readRemediations returns the remediation ledger scoped to one manifest.
func (s *Store) readRemediations(ctx context.Context, manifestID string) ([]history.RemediationActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manifest_id, route, action, fingerprint, actor_hash, recorded_at
		FROM remediation_actions
		WHERE manifest_id = ?
		ORDER BY recorded_at ASC, id COLLATE BINARY ASC
	`, manifestID)
	if err != nil {
		return nil, fmt.Errorf("query remediation actions: %w", err)
	}
	defer rows.Close()

	var actions []history.RemediationActionRecord
	for rows.Next() {
		action, err := scanRemediation(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate remediation actions: %w", err)
	}

	if actions == nil {
		actions = []history.RemediationActionRecord{}
	}

	return actions, nil
}

func scanRemediation(rows *sql.Rows) (history.RemediationActionRecord, error) {
	var action history.RemediationActionRecord
	var manifestID, fingerprint, actorHash sql.NullString

	if err := rows.Scan(
		&action.ID, &manifestID, &action.Route, &action.Action,
		&fingerprint, &actorHash, &action.RecordedAt,
	); err != nil {
		return history.RemediationActionRecord{}, fmt.Errorf("scan remediation action: %w", err)
	}

	action.ManifestID = manifestID.String
	action.Fingerprint = fingerprint.String
	action.ActorHash = actorHash.String

	return action, nil
}

// readNotes returns the note-revision ledger scoped to one manifest.
func (s *Store) readNotes(ctx context.Context, manifestID string) ([]history.NoteRevisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, manifest_id, route, severity, body, author_hash, recorded_at
		FROM note_revisions
		WHERE manifest_id = ?
		ORDER BY recorded_at ASC, id COLLATE BINARY ASC
	`, manifestID)
	if err != nil {
		return nil, fmt.Errorf("query note revisions: %w", err)
	}
	defer rows.Close()

	var notes []history.NoteRevisionRecord
	for rows.Next() {
		var note history.NoteRevisionRecord
		var mid, authorHash sql.NullString
		if err := rows.Scan(
			&note.ID, &mid, &note.Route, &note.Severity,
			&note.Body, &authorHash, &note.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan note revision: %w", err)
		}
		note.ManifestID = mid.String
		note.AuthorHash = authorHash.String
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate note revisions: %w", err)
	}

	if notes == nil {
		notes = []history.NoteRevisionRecord{}
	}

	return notes, nil
}
