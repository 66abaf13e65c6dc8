package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/testutil"
)

// createTestStore creates a new on-disk store in a per-test temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// persistTestManifest builds and persists a fixture manifest with n routes,
// the first drifted of them showing a draft/published diff.
func persistTestManifest(t *testing.T, s *Store, id, generatedAt string, n, drifted int) history.SnapshotManifest {
	t.Helper()
	manifest := testutil.Manifest(id, generatedAt, n, drifted)
	summaries := history.SummarizeRoutes(manifest)
	if err := s.PersistManifest(context.Background(), manifest, summaries, 0); err != nil {
		t.Fatalf("PersistManifest(%s) failed: %v", id, err)
	}
	return manifest
}

// testGovernanceAction builds a governance action with minimal required fields.
func testGovernanceAction(id, manifestID, createdAt string) history.GovernanceAction {
	return history.GovernanceAction{
		ID:         id,
		ManifestID: manifestID,
		ActionKind: history.GovernanceApproveDraft,
		CreatedAt:  createdAt,
	}
}

// testDelta builds a live delta record with minimal required fields.
func testDelta(manifestID, route, recordedAt string) history.LiveDeltaRecord {
	return history.LiveDeltaRecord{
		ManifestID: manifestID,
		Route:      route,
		Variant:    history.VariantDraft,
		RecordedAt: recordedAt,
	}
}

// countRows returns the row count of a table, optionally filtered.
func countRows(t *testing.T, s *Store, table, where string, args ...any) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return count
}
