package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/identity"
)

// DefaultHistoryLimit is the number of manifests retained when the caller
// does not supply a limit. Roughly one day of hourly captures.
const DefaultHistoryLimit = 24

// PersistManifest upserts a manifest, replaces its route rows, and trims
// history beyond historyLimit - all in one transaction. Either the full
// upsert+replace+trim is visible to subsequent reads or none of it is; no
// partial route list is ever observable.
//
// Re-persisting the same manifest ID overwrites in place and the route set
// becomes exactly the summaries of the latest call (delete-then-insert, not
// merge). A non-positive historyLimit falls back to DefaultHistoryLimit.
//
// The manifest is serialized before any write: an unserializable payload
// fails fast with nothing written. Storage failures propagate as-is; the
// caller decides whether to re-invoke (safe, the write is idempotent by ID).
func (s *Store) PersistManifest(ctx context.Context, manifest history.SnapshotManifest, summaries []history.RouteSummary, historyLimit int) error {
	if manifest.ID == "" {
		return fmt.Errorf("persist manifest: empty id")
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	payload, err := marshalManifest(manifest)
	if err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}
	payloadHash := identity.Hash(payload)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist manifest: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifests (id, generated_at, label, payload, payload_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			generated_at = excluded.generated_at,
			label        = excluded.label,
			payload      = excluded.payload,
			payload_hash = excluded.payload_hash
	`,
		manifest.ID,
		manifest.GeneratedAt,
		manifest.Label,
		payload,
		payloadHash,
	)
	if err != nil {
		return fmt.Errorf("persist manifest: upsert: %w", err)
	}

	// Full replace: a manifest's routes are always a complete snapshot of
	// its own generation.
	if _, err := tx.ExecContext(ctx, `DELETE FROM route_summaries WHERE manifest_id = ?`, manifest.ID); err != nil {
		return fmt.Errorf("persist manifest: clear routes: %w", err)
	}

	for _, summary := range summaries {
		kinds, err := marshalBlockKinds(summary.BlockKinds)
		if err != nil {
			return fmt.Errorf("persist manifest: route %q: %w", summary.Route, err)
		}

		routeHash := summary.RouteHash
		if routeHash == "" {
			routeHash = identity.Hash(summary.Route)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO route_summaries
			(manifest_id, route_hash, route, diff_detected, has_draft, has_published, section_count, block_kinds)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(manifest_id, route_hash) DO UPDATE SET
				route         = excluded.route,
				diff_detected = excluded.diff_detected,
				has_draft     = excluded.has_draft,
				has_published = excluded.has_published,
				section_count = excluded.section_count,
				block_kinds   = excluded.block_kinds
		`,
			manifest.ID,
			routeHash,
			summary.Route,
			summary.DiffDetected,
			summary.HasDraft,
			summary.HasPublished,
			summary.SectionCount,
			kinds,
		)
		if err != nil {
			return fmt.Errorf("persist manifest: insert route %q: %w", summary.Route, err)
		}
	}

	trimmed, err := trimHistory(ctx, tx, historyLimit)
	if err != nil {
		return fmt.Errorf("persist manifest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist manifest: commit: %w", err)
	}

	slog.Debug("manifest persisted",
		"manifest", manifest.ID,
		"routes", len(summaries),
		"trimmed", trimmed,
	)

	return nil
}

// trimHistory deletes every manifest beyond limit (ordered by generated_at
// descending) together with its route rows and all ledger rows referencing
// it. Route rows cascade via foreign key; ledger tables have no foreign key
// (orphan writes are legal) so their rows are deleted explicitly here.
// Nothing to trim is a no-op, not an error.
func trimHistory(ctx context.Context, tx execQuerier, limit int) (int, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM manifests
		ORDER BY generated_at DESC, id COLLATE BINARY ASC
		LIMIT -1 OFFSET ?
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("trim: select victims: %w", err)
	}
	defer rows.Close()

	var victims []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("trim: scan victim: %w", err)
		}
		victims = append(victims, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("trim: iterate victims: %w", err)
	}

	if len(victims) == 0 {
		return 0, nil
	}

	placeholders, args := inClause(victims)
	tables := []string{
		"governance_actions",
		"live_deltas",
		"remediation_actions",
		"note_revisions",
	}
	for _, table := range tables {
		query := "DELETE FROM " + table + " WHERE manifest_id IN (" + placeholders + ")"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("trim %s: %w", table, err)
		}
	}

	// Cascades to route_summaries.
	query := "DELETE FROM manifests WHERE id IN (" + placeholders + ")"
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("trim manifests: %w", err)
	}

	return len(victims), nil
}

// RecordGovernanceAction appends an operator decision to the governance
// ledger. INSERT OR REPLACE on the caller-supplied ID makes resubmission
// idempotent: the same action submitted twice leaves exactly one row.
// A missing ID gets a generated UUIDv7 (no idempotence in that case).
//
// A ManifestID referencing a manifest that does not exist yet is accepted;
// the action stays orphaned from manifest-scoped queries until the manifest
// lands. Ledger writes never depend on write ordering with the manifest.
func (s *Store) RecordGovernanceAction(ctx context.Context, action history.GovernanceAction) (string, error) {
	if action.ID == "" {
		action.ID = uuid.Must(uuid.NewV7()).String()
	}

	metadata, err := marshalMetadata(action.Metadata)
	if err != nil {
		return "", fmt.Errorf("record governance action: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO governance_actions
		(id, manifest_id, actor_hash, action_kind, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		action.ID,
		nullable(action.ManifestID),
		nullable(action.ActorHash),
		action.ActionKind,
		nullable(metadata),
		action.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("record governance action: %w", err)
	}

	return action.ID, nil
}

// RecordLivePreviewDelta appends a live preview render to the delta ledger.
// The record's identity is the fingerprint of its normalized payload, so a
// duplicate submission with an identical payload is a no-op regardless of
// when it was resubmitted. Returns the fingerprint and whether a new row
// was written.
//
// When the record carries no ManifestID it links to the nearest manifest at
// or before RecordedAt; with no such manifest it stays unlinked.
func (s *Store) RecordLivePreviewDelta(ctx context.Context, delta history.LiveDeltaRecord) (string, bool, error) {
	fingerprint, err := identity.PayloadFingerprint(delta.NormalizedPayload())
	if err != nil {
		return "", false, fmt.Errorf("record live delta: %w", err)
	}
	delta.ID = fingerprint
	delta.PayloadHash = fingerprint

	if delta.ManifestID == "" {
		manifestID, err := s.nearestManifest(ctx, delta.RecordedAt)
		if err != nil {
			return "", false, fmt.Errorf("record live delta: %w", err)
		}
		delta.ManifestID = manifestID
	}

	payload, err := marshalDelta(delta)
	if err != nil {
		return "", false, fmt.Errorf("record live delta: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO live_deltas
		(id, manifest_id, route, variant, payload, payload_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		delta.ID,
		nullable(delta.ManifestID),
		delta.Route,
		delta.Variant,
		payload,
		delta.PayloadHash,
		delta.RecordedAt,
	)
	if err != nil {
		return "", false, fmt.Errorf("record live delta: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("record live delta: rows affected: %w", err)
	}

	return fingerprint, affected > 0, nil
}

// nearestManifest returns the most recent manifest generated at or before
// recordedAt, or "" when no manifest qualifies yet.
func (s *Store) nearestManifest(ctx context.Context, recordedAt string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM manifests
		WHERE generated_at <= ?
		ORDER BY generated_at DESC, id COLLATE BINARY ASC
		LIMIT 1
	`, recordedAt).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("nearest manifest: %w", err)
	}
	return id, nil
}

// RecordRemediationAction appends a remediation (reset or prioritize) to the
// remediation ledger. Idempotent on the caller-supplied ID via ON CONFLICT
// DO NOTHING; a missing ID gets a generated UUIDv7. Returns the ID and
// whether a new row was written.
func (s *Store) RecordRemediationAction(ctx context.Context, action history.RemediationActionRecord) (string, bool, error) {
	if action.ID == "" {
		action.ID = uuid.Must(uuid.NewV7()).String()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO remediation_actions
		(id, manifest_id, route, route_hash, action, fingerprint, actor_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		action.ID,
		nullable(action.ManifestID),
		action.Route,
		identity.Hash(action.Route),
		action.Action,
		nullable(action.Fingerprint),
		nullable(action.ActorHash),
		action.RecordedAt,
	)
	if err != nil {
		return "", false, fmt.Errorf("record remediation action: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("record remediation action: rows affected: %w", err)
	}

	return action.ID, affected > 0, nil
}

// RecordNoteRevision appends a triage note revision to the note ledger.
// Idempotent on the caller-supplied ID; a missing ID gets a generated
// UUIDv7. Returns the ID and whether a new row was written.
func (s *Store) RecordNoteRevision(ctx context.Context, note history.NoteRevisionRecord) (string, bool, error) {
	if note.ID == "" {
		note.ID = uuid.Must(uuid.NewV7()).String()
	}
	if note.Severity == "" {
		note.Severity = history.SeverityInfo
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO note_revisions
		(id, manifest_id, route, severity, body, author_hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		note.ID,
		nullable(note.ManifestID),
		note.Route,
		note.Severity,
		note.Body,
		nullable(note.AuthorHash),
		note.RecordedAt,
	)
	if err != nil {
		return "", false, fmt.Errorf("record note revision: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("record note revision: rows affected: %w", err)
	}

	return note.ID, affected > 0, nil
}
