package history

// Query pagination bounds. Dashboards page through history ten manifests at
// a time by default; fifty is the hard page ceiling.
const (
	DefaultQueryLimit = 10
	MaxQueryLimit     = 50
)

// Variant filter values accepted by HistoryQuery.
const (
	VariantDraft     = "draft"
	VariantPublished = "published"
)

// HistoryQuery selects a page of manifests. Route matches manifests with at
// least one route row for the given path (plaintext or its hash); Variant
// restricts to manifests with at least one draft (or published) route row,
// respecting the route filter when both are set.
type HistoryQuery struct {
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	Route   string `json:"route,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// Clamped returns a copy with limit forced into [1, MaxQueryLimit]
// (DefaultQueryLimit when unset) and offset forced non-negative.
func (q HistoryQuery) Clamped() HistoryQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// RouteAggregates are conditional-aggregation counts over a manifest's route
// rows, computed in SQL without deserializing the manifest payload.
type RouteAggregates struct {
	TotalRoutes        int `json:"totalRoutes"`
	DiffDetectedRoutes int `json:"diffDetectedRoutes"`
	DraftRoutes        int `json:"draftRoutes"`
	PublishedRoutes    int `json:"publishedRoutes"`
}

// GovernanceSummary aggregates the governance ledger for one manifest.
type GovernanceSummary struct {
	TotalActions int            `json:"totalActions"`
	ByKind       map[string]int `json:"byKind,omitempty"`
	LatestAt     string         `json:"latestAt,omitempty"`
}

// NoteSummary tallies note revisions per severity tier for one manifest.
type NoteSummary struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Blocker int `json:"blocker"`
}

// HistoryEntry is one manifest joined with its route rows, aggregates, and
// the three event ledgers scoped to it.
type HistoryEntry struct {
	Manifest    SnapshotManifest          `json:"manifest"`
	Routes      []RouteSummary            `json:"routes"`
	Aggregates  RouteAggregates           `json:"aggregates"`
	Governance  GovernanceSummary         `json:"governance"`
	Deltas      []LiveDeltaRecord         `json:"deltas"`
	Remediation []RemediationActionRecord `json:"remediation"`
	Notes       []NoteRevisionRecord      `json:"notes"`
	NoteSummary *NoteSummary              `json:"noteSummary,omitempty"`
}

// HistoryPage is a filtered page of history entries. Total counts every
// manifest matching the filter (ignoring pagination) for UI page controls.
type HistoryPage struct {
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Entries []HistoryEntry `json:"entries"`
}
