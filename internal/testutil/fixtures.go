// Package testutil provides deterministic fixtures for store, analytics,
// and harness tests: stepped timestamps and manifest/entry builders so the
// same scenario produces byte-identical results on every run.
package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/identity"
)

// TimeSequence yields strictly increasing RFC 3339 timestamps spaced by a
// fixed step. Tests use it instead of time.Now so timestamps (and anything
// derived from them, like fallback manifest ids) are reproducible.
//
// Thread-safety: safe for concurrent use via internal mutex.
type TimeSequence struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

// NewTimeSequence creates a sequence starting at start, advancing by step
// on every call to Next.
func NewTimeSequence(start time.Time, step time.Duration) *TimeSequence {
	return &TimeSequence{next: start.UTC(), step: step}
}

// Next returns the next timestamp in the sequence.
func (s *TimeSequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.next
	s.next = s.next.Add(s.step)
	return at.Format(time.RFC3339)
}

// FixedIDGenerator returns predetermined record ids in order.
// Panics when all ids are consumed - fail fast on test misconfiguration.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Next returns the next predetermined id.
func (g *FixedIDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Manifest builds a manifest with n routes ("/", "/page-1", ...) where the
// first drifted of them report a draft/published diff. Every route has both
// variants rendered.
func Manifest(id, generatedAt string, n, drifted int) history.SnapshotManifest {
	snapshots := make([]history.RouteSnapshot, 0, n)
	for i := 0; i < n; i++ {
		route := "/"
		if i > 0 {
			route = fmt.Sprintf("/page-%d", i)
		}

		draft := &history.RenderedPreview{Markup: "<main>draft</main>", BlockKinds: []string{"hero", "grid"}}
		published := draft
		if i < drifted {
			published = &history.RenderedPreview{Markup: "<main>published</main>", BlockKinds: []string{"hero", "grid"}}
		}

		snapshots = append(snapshots, history.RouteSnapshot{
			Route:        route,
			Preview:      history.PreviewPair{Draft: draft, Published: published},
			SectionCount: 3,
			BlockKinds:   []string{"hero"},
		})
	}

	return history.SnapshotManifest{
		ID:          id,
		GeneratedAt: generatedAt,
		Snapshots:   snapshots,
	}
}

// Entry builds a history entry directly, bypassing the store - the
// analytics tests need precise control over aggregates and ledgers.
func Entry(generatedAt string, diffs int) history.HistoryEntry {
	return history.HistoryEntry{
		Manifest: history.SnapshotManifest{
			ID:          generatedAt,
			GeneratedAt: generatedAt,
		},
		Aggregates: history.RouteAggregates{
			TotalRoutes:        diffs + 2,
			DiffDetectedRoutes: diffs,
			DraftRoutes:        diffs + 2,
			PublishedRoutes:    diffs + 2,
		},
		Routes:      []history.RouteSummary{},
		Deltas:      []history.LiveDeltaRecord{},
		Remediation: []history.RemediationActionRecord{},
		Notes:       []history.NoteRevisionRecord{},
	}
}

// EntryWithNotes attaches a note summary to a bare entry.
func EntryWithNotes(generatedAt string, diffs, info, warning, blocker int) history.HistoryEntry {
	entry := Entry(generatedAt, diffs)
	entry.NoteSummary = &history.NoteSummary{Info: info, Warning: warning, Blocker: blocker}
	return entry
}

// Remediation builds a remediation record for analytics fixtures.
func Remediation(route, fingerprint, recordedAt string) history.RemediationActionRecord {
	return history.RemediationActionRecord{
		ID:          identity.Hash(route + fingerprint + recordedAt)[:16],
		Route:       route,
		Action:      history.RemediationReset,
		Fingerprint: fingerprint,
		RecordedAt:  recordedAt,
	}
}
