package store

import (
	"context"
	"fmt"

	"github.com/Mvgnu/smplat-sub001/internal/history"
	"github.com/Mvgnu/smplat-sub001/internal/identity"
)

// QuerySnapshotHistory returns a filtered, paginated page of history
// entries: each matching manifest joined with its route rows, aggregate
// counts, governance summary, and the three event ledgers scoped to it.
//
// Limit is clamped to [1, 50] (default 10), offset to >= 0. The route
// filter matches manifests with at least one route row for the given path,
// by plaintext or equivalently by its hash. The variant filter ("draft" or
// "published") restricts to manifests with at least one route row in that
// state, respecting the route filter when both are given.
//
// Total counts every manifest matching the filter ignoring pagination, and
// is computed with the same predicate as the page query.
func (s *Store) QuerySnapshotHistory(ctx context.Context, query history.HistoryQuery) (history.HistoryPage, error) {
	query = query.Clamped()

	where, args, err := historyPredicate(query)
	if err != nil {
		return history.HistoryPage{}, fmt.Errorf("query snapshot history: %w", err)
	}

	page := history.HistoryPage{
		Limit:   query.Limit,
		Offset:  query.Offset,
		Entries: []history.HistoryEntry{},
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM manifests m"+where, args...,
	).Scan(&page.Total)
	if err != nil {
		return history.HistoryPage{}, fmt.Errorf("query snapshot history: count: %w", err)
	}

	pageArgs := append(append([]any{}, args...), query.Limit, query.Offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.payload FROM manifests m`+where+`
		ORDER BY m.generated_at DESC, m.id COLLATE BINARY ASC
		LIMIT ? OFFSET ?
	`, pageArgs...)
	if err != nil {
		return history.HistoryPage{}, fmt.Errorf("query snapshot history: page: %w", err)
	}
	defer rows.Close()

	type manifestRow struct {
		id      string
		payload string
	}
	var matched []manifestRow
	for rows.Next() {
		var row manifestRow
		if err := rows.Scan(&row.id, &row.payload); err != nil {
			return history.HistoryPage{}, fmt.Errorf("query snapshot history: scan: %w", err)
		}
		matched = append(matched, row)
	}
	if err := rows.Err(); err != nil {
		return history.HistoryPage{}, fmt.Errorf("query snapshot history: iterate: %w", err)
	}
	rows.Close()

	for _, row := range matched {
		entry, err := s.assembleEntry(ctx, row.id, row.payload)
		if err != nil {
			return history.HistoryPage{}, fmt.Errorf("query snapshot history: %w", err)
		}
		page.Entries = append(page.Entries, entry)
	}

	return page, nil
}

// historyPredicate builds the WHERE clause shared by the count and page
// queries. Returning the same predicate for both is what keeps Total
// consistent with the page contents.
func historyPredicate(query history.HistoryQuery) (string, []any, error) {
	variantColumn := ""
	switch query.Variant {
	case "":
	case history.VariantDraft:
		variantColumn = "has_draft"
	case history.VariantPublished:
		variantColumn = "has_published"
	default:
		return "", nil, fmt.Errorf("unknown variant %q", query.Variant)
	}

	if query.Route == "" && variantColumn == "" {
		return "", nil, nil
	}

	clause := " WHERE EXISTS (SELECT 1 FROM route_summaries rs WHERE rs.manifest_id = m.id"
	var args []any

	if query.Route != "" {
		clause += " AND (rs.route = ? OR rs.route_hash = ?)"
		args = append(args, query.Route, identity.Hash(query.Route))
	}
	if variantColumn != "" {
		clause += " AND rs." + variantColumn + " = 1"
	}
	clause += ")"

	return clause, args, nil
}

// assembleEntry joins one manifest with its route rows, aggregates,
// governance summary, and ledgers.
func (s *Store) assembleEntry(ctx context.Context, manifestID, payload string) (history.HistoryEntry, error) {
	manifest, err := unmarshalManifest(payload)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	routes, err := s.readRouteSummaries(ctx, manifestID)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	aggregates, err := s.readRouteAggregates(ctx, manifestID)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	governance, err := s.readGovernanceSummary(ctx, manifestID)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	deltas, err := s.readDeltas(ctx, manifestID)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	remediation, err := s.readRemediations(ctx, manifestID)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	notes, err := s.readNotes(ctx, manifestID)
	if err != nil {
		return history.HistoryEntry{}, fmt.Errorf("manifest %s: %w", manifestID, err)
	}

	return history.HistoryEntry{
		Manifest:    manifest,
		Routes:      routes,
		Aggregates:  aggregates,
		Governance:  governance,
		Deltas:      deltas,
		Remediation: remediation,
		Notes:       notes,
		NoteSummary: summarizeNotes(notes),
	}, nil
}

// summarizeNotes tallies note revisions per severity tier. Returns nil when
// the manifest has no notes so analytics can distinguish "no triage yet"
// from "all tiers at zero".
func summarizeNotes(notes []history.NoteRevisionRecord) *history.NoteSummary {
	if len(notes) == 0 {
		return nil
	}
	summary := &history.NoteSummary{}
	for _, note := range notes {
		switch note.Severity {
		case history.SeverityWarning:
			summary.Warning++
		case history.SeverityBlocker:
			summary.Blocker++
		default:
			summary.Info++
		}
	}
	return summary
}
