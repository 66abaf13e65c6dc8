// Package analytics derives trend reports from preview history entries.
//
// Build is a pure function: no I/O, no persistence, identical output for
// identical input. Degenerate inputs (zero or one usable history points, a
// flat trend, an upward trend) produce explicit zero/nil values rather than
// errors so dashboards can render an "insufficient data" state.
package analytics

import "github.com/Mvgnu/smplat-sub001/internal/history"

// Report is the full analytics output for a history window.
type Report struct {
	RegressionVelocity RegressionVelocity `json:"regressionVelocity"`
	SeverityMomentum   SeverityMomentum   `json:"severityMomentum"`
	TimeToGreen        TimeToGreen        `json:"timeToGreen"`
	Recommendations    []Recommendation   `json:"recommendations"`
}

// RegressionVelocity measures how fast the count of drifted routes changes.
// Rates are routes per hour; positive means drift is accumulating.
type RegressionVelocity struct {
	AveragePerHour float64 `json:"averagePerHour"`
	CurrentPerHour float64 `json:"currentPerHour"`
	Confidence     float64 `json:"confidence"`
	SampleSize     int     `json:"sampleSize"`
}

// SeverityMomentum is the rate of change of triage-note counts per severity
// tier, in notes per hour. Overall blends the tiers with blockers weighted
// most heavily because they represent unresolved release risk.
type SeverityMomentum struct {
	Info    float64 `json:"info"`
	Warning float64 `json:"warning"`
	Blocker float64 `json:"blocker"`
	Overall float64 `json:"overall"`
}

// TimeToGreen forecasts when the drifted-route count reaches zero, from an
// ordinary least-squares fit of diff counts against elapsed hours.
// ForecastAt is nil when no forecast is available: fewer than two points,
// no time spread, or diffs not trending down.
type TimeToGreen struct {
	SlopePerHour  float64 `json:"slopePerHour"`
	Intercept     float64 `json:"intercept"`
	ForecastHours float64 `json:"forecastHours"`
	ForecastAt    *string `json:"forecastAt"`
	Confidence    float64 `json:"confidence"`
}

// Recommendation is a ranked recurring-failure cluster: remediation records
// sharing a cause fingerprint, with a suggested fix.
type Recommendation struct {
	Fingerprint    string   `json:"fingerprint"`
	Occurrences    int      `json:"occurrences"`
	AffectedRoutes []string `json:"affectedRoutes"`
	LastSeenAt     string   `json:"lastSeenAt"`
	Suggestion     string   `json:"suggestion"`
	Confidence     float64  `json:"confidence"`
}

// noteCounts extracts the severity tallies for an entry, falling back to
// all-zero when the entry carries no note summary.
func noteCounts(entry history.HistoryEntry) (info, warning, blocker float64) {
	if entry.NoteSummary == nil {
		return 0, 0, 0
	}
	return float64(entry.NoteSummary.Info), float64(entry.NoteSummary.Warning), float64(entry.NoteSummary.Blocker)
}
