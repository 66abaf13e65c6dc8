package analytics

import (
	"math"
	"slices"
	"strings"

	"github.com/Mvgnu/smplat-sub001/internal/history"
)

// suggestions maps known cause fingerprints to operator guidance. The table
// grows as new fingerprint classes ship in the remediation tooling.
var suggestions = map[string]string{
	"schema:missing-field":   "Add the missing field to the content schema or backfill the affected documents.",
	"schema:type-mismatch":   "Align the document field type with the schema definition before the next publish.",
	"schema:orphaned-block":  "Remove or re-register the orphaned content block in the page builder.",
	"render:timeout":         "Investigate slow CMS queries for the affected routes; consider narrowing the projection.",
	"render:hero-overflow":   "Trim hero copy or relax the hero layout constraints for the affected routes.",
	"validation:broken-link": "Re-run link validation and update or remove the broken references.",
	"validation:missing-alt": "Add alt text to the flagged media assets.",
}

const fallbackSuggestion = "Review the remediation history for this fingerprint and document a recurring fix."

// recommend clusters remediation records by cause fingerprint across every
// entry and ranks the clusters: most occurrences first, ties broken by most
// recent sighting. Records without a fingerprint are unclassified and
// cannot cluster, so they are skipped.
func recommend(entries []history.HistoryEntry) []Recommendation {
	type cluster struct {
		occurrences int
		routes      map[string]bool
		lastSeenAt  string
	}

	clusters := make(map[string]*cluster)
	for _, entry := range entries {
		for _, action := range entry.Remediation {
			if action.Fingerprint == "" {
				continue
			}
			c := clusters[action.Fingerprint]
			if c == nil {
				c = &cluster{routes: make(map[string]bool)}
				clusters[action.Fingerprint] = c
			}
			c.occurrences++
			if action.Route != "" {
				c.routes[action.Route] = true
			}
			// RFC 3339 timestamps share a format, so text comparison
			// orders them chronologically.
			if action.RecordedAt > c.lastSeenAt {
				c.lastSeenAt = action.RecordedAt
			}
		}
	}

	recommendations := make([]Recommendation, 0, len(clusters))
	for fingerprint, c := range clusters {
		routes := make([]string, 0, len(c.routes))
		for route := range c.routes {
			routes = append(routes, route)
		}
		slices.Sort(routes)

		suggestion, ok := suggestions[fingerprint]
		if !ok {
			suggestion = fallbackSuggestion
		}

		recommendations = append(recommendations, Recommendation{
			Fingerprint:    fingerprint,
			Occurrences:    c.occurrences,
			AffectedRoutes: routes,
			LastSeenAt:     c.lastSeenAt,
			Suggestion:     suggestion,
			// Repetition raises confidence but never reaches certainty.
			Confidence: math.Min(0.95, 0.35+math.Log10(float64(c.occurrences)+1)),
		})
	}

	slices.SortFunc(recommendations, func(a, b Recommendation) int {
		if a.Occurrences != b.Occurrences {
			return b.Occurrences - a.Occurrences
		}
		if a.LastSeenAt != b.LastSeenAt {
			return strings.Compare(b.LastSeenAt, a.LastSeenAt)
		}
		return strings.Compare(a.Fingerprint, b.Fingerprint)
	})

	return recommendations
}
