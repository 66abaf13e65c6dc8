package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/identity"
	"github.com/Mvgnu/smplat-sub001/internal/testutil"
)

func TestPersistManifest_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	persisted := persistTestManifest(t, s, "m1", "2026-08-01T00:00:00Z", 3, 1)

	manifests, err := s.FetchSnapshotHistory(ctx, 10)
	if err != nil {
		t.Fatalf("FetchSnapshotHistory() failed: %v", err)
	}
	if len(manifests) != 1 {
		t.Fatalf("got %d manifests, want 1", len(manifests))
	}
	got := manifests[0]
	if got.ID != persisted.ID || got.GeneratedAt != persisted.GeneratedAt {
		t.Errorf("round-trip mismatch: got %s/%s, want %s/%s",
			got.ID, got.GeneratedAt, persisted.ID, persisted.GeneratedAt)
	}
	if len(got.Snapshots) != len(persisted.Snapshots) {
		t.Errorf("got %d snapshots, want %d", len(got.Snapshots), len(persisted.Snapshots))
	}

	if routes := countRows(t, s, "route_summaries", "manifest_id = ?", "m1"); routes != 3 {
		t.Errorf("got %d route rows, want 3", routes)
	}
}

func TestPersistManifest_EmptyID(t *testing.T) {
	s := createTestStore(t)

	err := s.PersistManifest(context.Background(), history.SnapshotManifest{}, nil, 0)
	if err == nil {
		t.Fatal("expected error for empty manifest id, got nil")
	}
	if !strings.Contains(err.Error(), "empty id") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPersistManifest_UpsertReplacesRoutes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	persistTestManifest(t, s, "m1", "2026-08-01T00:00:00Z", 3, 1)

	// Re-persist the same id with a smaller route set: the old rows must
	// be gone, not merged.
	manifest := testutil.Manifest("m1", "2026-08-01T00:30:00Z", 2, 0)
	if err := s.PersistManifest(ctx, manifest, history.SummarizeRoutes(manifest), 0); err != nil {
		t.Fatalf("second PersistManifest() failed: %v", err)
	}

	if got := countRows(t, s, "manifests", ""); got != 1 {
		t.Errorf("got %d manifests, want 1", got)
	}
	if got := countRows(t, s, "route_summaries", "manifest_id = ?", "m1"); got != 2 {
		t.Errorf("got %d route rows after replace, want 2", got)
	}

	var generatedAt string
	if err := s.db.QueryRow("SELECT generated_at FROM manifests WHERE id = ?", "m1").Scan(&generatedAt); err != nil {
		t.Fatalf("read generated_at failed: %v", err)
	}
	if generatedAt != "2026-08-01T00:30:00Z" {
		t.Errorf("generated_at = %s, not updated by upsert", generatedAt)
	}
}

func TestPersistManifest_TrimsBeyondLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Ledger rows scoped to the manifest that will be trimmed.
	persistWithLimit := func(id, at string) {
		t.Helper()
		manifest := testutil.Manifest(id, at, 2, 1)
		if err := s.PersistManifest(ctx, manifest, history.SummarizeRoutes(manifest), 2); err != nil {
			t.Fatalf("PersistManifest(%s) failed: %v", id, err)
		}
	}

	persistWithLimit("m-old", "2026-08-01T00:00:00Z")
	if _, err := s.RecordGovernanceAction(ctx, testGovernanceAction("g-old", "m-old", "2026-08-01T00:05:00Z")); err != nil {
		t.Fatalf("RecordGovernanceAction() failed: %v", err)
	}
	if _, _, err := s.RecordNoteRevision(ctx, history.NoteRevisionRecord{
		ID: "n-old", ManifestID: "m-old", Route: "/", Body: "stale", RecordedAt: "2026-08-01T00:06:00Z",
	}); err != nil {
		t.Fatalf("RecordNoteRevision() failed: %v", err)
	}

	persistWithLimit("m-mid", "2026-08-01T01:00:00Z")
	persistWithLimit("m-new", "2026-08-01T02:00:00Z")

	if got := countRows(t, s, "manifests", ""); got != 2 {
		t.Errorf("got %d manifests after trim, want 2", got)
	}
	if got := countRows(t, s, "manifests", "id = ?", "m-old"); got != 0 {
		t.Error("oldest manifest survived trim")
	}
	if got := countRows(t, s, "route_summaries", "manifest_id = ?", "m-old"); got != 0 {
		t.Error("trimmed manifest left route rows behind")
	}
	if got := countRows(t, s, "governance_actions", "manifest_id = ?", "m-old"); got != 0 {
		t.Error("trimmed manifest left governance rows behind")
	}
	if got := countRows(t, s, "note_revisions", "manifest_id = ?", "m-old"); got != 0 {
		t.Error("trimmed manifest left note rows behind")
	}
}

func TestRecordGovernanceAction_IdempotentOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	action := testGovernanceAction("g1", "", "2026-08-01T00:00:00Z")
	for i := 0; i < 2; i++ {
		id, err := s.RecordGovernanceAction(ctx, action)
		if err != nil {
			t.Fatalf("RecordGovernanceAction() attempt %d failed: %v", i, err)
		}
		if id != "g1" {
			t.Errorf("returned id = %s, want g1", id)
		}
	}

	if got := countRows(t, s, "governance_actions", ""); got != 1 {
		t.Errorf("got %d governance rows after resubmission, want 1", got)
	}
}

func TestRecordGovernanceAction_GeneratesID(t *testing.T) {
	s := createTestStore(t)

	id, err := s.RecordGovernanceAction(context.Background(), history.GovernanceAction{
		ActionKind: history.GovernancePublish,
		CreatedAt:  "2026-08-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("RecordGovernanceAction() failed: %v", err)
	}
	if id == "" {
		t.Error("expected generated id, got empty string")
	}
	if got := countRows(t, s, "governance_actions", "id = ?", id); got != 1 {
		t.Errorf("row with generated id not found")
	}
}

func TestRecordGovernanceAction_OrphanManifestAccepted(t *testing.T) {
	s := createTestStore(t)

	// References a manifest that has not been persisted.
	_, err := s.RecordGovernanceAction(context.Background(),
		testGovernanceAction("g1", "not-yet-persisted", "2026-08-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("orphan governance write rejected: %v", err)
	}
}

func TestRecordLivePreviewDelta_DedupByFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	delta := testDelta("m1", "/", "2026-08-01T00:00:00Z")

	first, inserted, err := s.RecordLivePreviewDelta(ctx, delta)
	if err != nil {
		t.Fatalf("first RecordLivePreviewDelta() failed: %v", err)
	}
	if !inserted {
		t.Error("first submission reported as duplicate")
	}

	// Different RecordedAt, identical payload: still a duplicate.
	delta.RecordedAt = "2026-08-01T05:00:00Z"
	second, inserted, err := s.RecordLivePreviewDelta(ctx, delta)
	if err != nil {
		t.Fatalf("second RecordLivePreviewDelta() failed: %v", err)
	}
	if inserted {
		t.Error("identical payload reported as new row")
	}
	if first != second {
		t.Errorf("fingerprints differ: %s vs %s", first, second)
	}
	if got := countRows(t, s, "live_deltas", ""); got != 1 {
		t.Errorf("got %d delta rows, want 1", got)
	}

	// A different route is a different payload.
	_, inserted, err = s.RecordLivePreviewDelta(ctx, testDelta("m1", "/pricing", "2026-08-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("third RecordLivePreviewDelta() failed: %v", err)
	}
	if !inserted {
		t.Error("distinct payload reported as duplicate")
	}
}

func TestRecordLivePreviewDelta_NearestManifestLink(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	persistTestManifest(t, s, "m-early", "2026-08-01T00:00:00Z", 1, 0)
	persistTestManifest(t, s, "m-late", "2026-08-01T02:00:00Z", 1, 0)

	// Recorded between the two manifests: links to the earlier one.
	id, _, err := s.RecordLivePreviewDelta(ctx, testDelta("", "/", "2026-08-01T01:00:00Z"))
	if err != nil {
		t.Fatalf("RecordLivePreviewDelta() failed: %v", err)
	}

	var manifestID sql.NullString
	if err := s.db.QueryRow("SELECT manifest_id FROM live_deltas WHERE id = ?", id).Scan(&manifestID); err != nil {
		t.Fatalf("read manifest_id failed: %v", err)
	}
	if !manifestID.Valid || manifestID.String != "m-early" {
		t.Errorf("linked manifest = %v, want m-early", manifestID)
	}
}

func TestRecordLivePreviewDelta_NoManifestStaysUnlinked(t *testing.T) {
	s := createTestStore(t)

	id, _, err := s.RecordLivePreviewDelta(context.Background(), testDelta("", "/", "2026-08-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("RecordLivePreviewDelta() failed: %v", err)
	}

	var manifestID sql.NullString
	if err := s.db.QueryRow("SELECT manifest_id FROM live_deltas WHERE id = ?", id).Scan(&manifestID); err != nil {
		t.Fatalf("read manifest_id failed: %v", err)
	}
	if manifestID.Valid {
		t.Errorf("expected unlinked delta, got manifest_id = %s", manifestID.String)
	}
}

func TestRecordRemediationAction_HashesRoute(t *testing.T) {
	s := createTestStore(t)

	id, inserted, err := s.RecordRemediationAction(context.Background(), history.RemediationActionRecord{
		ID:         "r1",
		Route:      "/pricing",
		Action:     history.RemediationReset,
		RecordedAt: "2026-08-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("RecordRemediationAction() failed: %v", err)
	}
	if !inserted || id != "r1" {
		t.Errorf("got (%s, %v), want (r1, true)", id, inserted)
	}

	var routeHash string
	if err := s.db.QueryRow("SELECT route_hash FROM remediation_actions WHERE id = ?", "r1").Scan(&routeHash); err != nil {
		t.Fatalf("read route_hash failed: %v", err)
	}
	if routeHash != identity.Hash("/pricing") {
		t.Error("route_hash does not match the canonical route digest")
	}
	if routeHash == "/pricing" {
		t.Error("route_hash stored in plaintext")
	}
}

func TestRecordRemediationAction_DuplicateIDNoOp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	record := history.RemediationActionRecord{
		ID: "r1", Route: "/", Action: history.RemediationPrioritize, RecordedAt: "2026-08-01T00:00:00Z",
	}
	if _, _, err := s.RecordRemediationAction(ctx, record); err != nil {
		t.Fatalf("first RecordRemediationAction() failed: %v", err)
	}

	record.Action = history.RemediationReset
	_, inserted, err := s.RecordRemediationAction(ctx, record)
	if err != nil {
		t.Fatalf("second RecordRemediationAction() failed: %v", err)
	}
	if inserted {
		t.Error("duplicate id reported as new row")
	}

	// First write wins: the conflicting resubmission did not overwrite.
	var action string
	if err := s.db.QueryRow("SELECT action FROM remediation_actions WHERE id = ?", "r1").Scan(&action); err != nil {
		t.Fatalf("read action failed: %v", err)
	}
	if action != history.RemediationPrioritize {
		t.Errorf("action = %s, duplicate overwrote original", action)
	}
}

func TestRecordNoteRevision_DefaultsSeverity(t *testing.T) {
	s := createTestStore(t)

	id, inserted, err := s.RecordNoteRevision(context.Background(), history.NoteRevisionRecord{
		ID: "n1", Route: "/", Body: "check hero", RecordedAt: "2026-08-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("RecordNoteRevision() failed: %v", err)
	}
	if !inserted || id != "n1" {
		t.Errorf("got (%s, %v), want (n1, true)", id, inserted)
	}

	var severity string
	if err := s.db.QueryRow("SELECT severity FROM note_revisions WHERE id = ?", "n1").Scan(&severity); err != nil {
		t.Fatalf("read severity failed: %v", err)
	}
	if severity != history.SeverityInfo {
		t.Errorf("severity = %s, want %s", severity, history.SeverityInfo)
	}
}

func TestRecordNoteRevision_DuplicateIDNoOp(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	note := history.NoteRevisionRecord{
		ID: "n1", Route: "/", Severity: history.SeverityBlocker, Body: "first", RecordedAt: "2026-08-01T00:00:00Z",
	}
	if _, _, err := s.RecordNoteRevision(ctx, note); err != nil {
		t.Fatalf("first RecordNoteRevision() failed: %v", err)
	}

	note.Body = "second"
	_, inserted, err := s.RecordNoteRevision(ctx, note)
	if err != nil {
		t.Fatalf("second RecordNoteRevision() failed: %v", err)
	}
	if inserted {
		t.Error("duplicate id reported as new row")
	}
	if got := countRows(t, s, "note_revisions", ""); got != 1 {
		t.Errorf("got %d note rows, want 1", got)
	}
}
