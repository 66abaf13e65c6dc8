// Package history defines the data shapes shared by the manifest store, the
// event ledgers, the history query engine, and the analytics transform.
//
// Timestamps are RFC 3339 strings end to end: that is the wire format of the
// renderer producing the snapshots, it compares correctly as text (all
// producers emit UTC with the same layout), and it round-trips through the
// stored JSON payloads without precision games.
package history

import (
	"slices"
	"strings"

	"github.com/Mvgnu/smplat-sub001/internal/identity"
)

// SnapshotManifest is one full capture of all tracked marketing routes at a
// point in time. Re-persisting the same ID overwrites in place.
type SnapshotManifest struct {
	ID          string          `json:"id"`
	GeneratedAt string          `json:"generatedAt"`
	Label       string          `json:"label,omitempty"`
	Snapshots   []RouteSnapshot `json:"snapshots"`
}

// RouteSnapshot is the per-route render output produced by the external
// renderer. The subsystem treats everything beyond the summary fields as an
// opaque payload to be stored and returned byte-faithfully.
type RouteSnapshot struct {
	Route        string         `json:"route"`
	Preview      PreviewPair    `json:"preview"`
	Hero         map[string]any `json:"hero,omitempty"`
	SectionCount int            `json:"sectionCount"`
	BlockKinds   []string       `json:"blockKinds,omitempty"`
	Metrics      map[string]any `json:"metrics,omitempty"`
	Markup       string         `json:"markup,omitempty"`
}

// PreviewPair carries the draft and published renders of a route. A nil
// variant means the route has no content in that state.
type PreviewPair struct {
	Draft     *RenderedPreview `json:"draft,omitempty"`
	Published *RenderedPreview `json:"published,omitempty"`
}

// RenderedPreview is a single rendered variant of a route.
type RenderedPreview struct {
	Markup     string   `json:"markup,omitempty"`
	BlockKinds []string `json:"blockKinds,omitempty"`
}

// RouteSummary is the queryable per-route row attached to a manifest.
// RouteHash (not the plaintext route) is the join and filter key so analytic
// queries never need raw paths; Route is kept for operator display only.
type RouteSummary struct {
	Route        string   `json:"route"`
	RouteHash    string   `json:"routeHash"`
	DiffDetected bool     `json:"diffDetected"`
	HasDraft     bool     `json:"hasDraft"`
	HasPublished bool     `json:"hasPublished"`
	SectionCount int      `json:"sectionCount"`
	BlockKinds   []string `json:"blockKinds,omitempty"`
}

// ManifestID derives the stable manifest identifier from an operator label,
// falling back to the generation timestamp when no label was supplied.
func ManifestID(label, generatedAt string) string {
	if slug := slugify(label); slug != "" {
		return slug
	}
	return generatedAt
}

// slugify lowercases and collapses runs of non-alphanumerics to single
// hyphens, trimming leading/trailing hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// SummarizeRoutes derives the queryable route rows for a manifest. The
// renderer normally supplies summaries alongside the manifest; this local
// derivation backs the CLI ingest path where only the raw manifest exists.
//
// One row per distinct route: a duplicate route in the snapshot list merges
// into the earlier row (diff/draft/published flags OR-ed, block kinds
// unioned) so the (manifestID, routeHash) key invariant holds.
func SummarizeRoutes(manifest SnapshotManifest) []RouteSummary {
	byRoute := make(map[string]int)
	summaries := make([]RouteSummary, 0, len(manifest.Snapshots))

	for _, snap := range manifest.Snapshots {
		summary := summarizeSnapshot(snap)
		if i, seen := byRoute[snap.Route]; seen {
			summaries[i] = mergeSummaries(summaries[i], summary)
			continue
		}
		byRoute[snap.Route] = len(summaries)
		summaries = append(summaries, summary)
	}

	return summaries
}

func summarizeSnapshot(snap RouteSnapshot) RouteSummary {
	hasDraft := snap.Preview.Draft != nil
	hasPublished := snap.Preview.Published != nil

	diff := false
	if hasDraft && hasPublished {
		diff = snap.Preview.Draft.Markup != snap.Preview.Published.Markup
	}

	kinds := snap.BlockKinds
	if hasDraft {
		kinds = append(kinds, snap.Preview.Draft.BlockKinds...)
	}
	if hasPublished {
		kinds = append(kinds, snap.Preview.Published.BlockKinds...)
	}

	return RouteSummary{
		Route:        snap.Route,
		RouteHash:    identity.Hash(snap.Route),
		DiffDetected: diff,
		HasDraft:     hasDraft,
		HasPublished: hasPublished,
		SectionCount: snap.SectionCount,
		BlockKinds:   uniqueSorted(kinds),
	}
}

func mergeSummaries(a, b RouteSummary) RouteSummary {
	a.DiffDetected = a.DiffDetected || b.DiffDetected
	a.HasDraft = a.HasDraft || b.HasDraft
	a.HasPublished = a.HasPublished || b.HasPublished
	if b.SectionCount > a.SectionCount {
		a.SectionCount = b.SectionCount
	}
	a.BlockKinds = uniqueSorted(append(a.BlockKinds, b.BlockKinds...))
	return a
}

func uniqueSorted(kinds []string) []string {
	if len(kinds) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(kinds))
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return out
}
