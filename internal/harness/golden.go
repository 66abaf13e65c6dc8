package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/Mvgnu/smplat-sub001/internal/analytics"
)

// RunWithGolden executes a scenario and compares the rendered analytics
// report against the scenario's golden file (testdata/golden/<name>.golden).
// Assertion failures surface through t; a scenario execution error is
// returned so callers can distinguish "ran and mismatched" from "never ran".
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(RenderReport(result.Report)))

	return result, nil
}

// RenderReport formats an analytics report as stable plain text for golden
// comparison. Floats are rendered at four decimal places so that goldens
// pin the report's meaning without being sensitive to last-bit float noise.
func RenderReport(report analytics.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "regression velocity:\n")
	fmt.Fprintf(&b, "  average/hour: %.4f\n", report.RegressionVelocity.AveragePerHour)
	fmt.Fprintf(&b, "  current/hour: %.4f\n", report.RegressionVelocity.CurrentPerHour)
	fmt.Fprintf(&b, "  confidence:   %.4f\n", report.RegressionVelocity.Confidence)
	fmt.Fprintf(&b, "  samples:      %d\n", report.RegressionVelocity.SampleSize)

	fmt.Fprintf(&b, "severity momentum:\n")
	fmt.Fprintf(&b, "  info:    %.4f\n", report.SeverityMomentum.Info)
	fmt.Fprintf(&b, "  warning: %.4f\n", report.SeverityMomentum.Warning)
	fmt.Fprintf(&b, "  blocker: %.4f\n", report.SeverityMomentum.Blocker)
	fmt.Fprintf(&b, "  overall: %.4f\n", report.SeverityMomentum.Overall)

	fmt.Fprintf(&b, "time to green:\n")
	fmt.Fprintf(&b, "  slope/hour:     %.4f\n", report.TimeToGreen.SlopePerHour)
	fmt.Fprintf(&b, "  intercept:      %.4f\n", report.TimeToGreen.Intercept)
	fmt.Fprintf(&b, "  forecast hours: %.4f\n", report.TimeToGreen.ForecastHours)
	if report.TimeToGreen.ForecastAt != nil {
		fmt.Fprintf(&b, "  forecast at:    %s\n", *report.TimeToGreen.ForecastAt)
	} else {
		fmt.Fprintf(&b, "  forecast at:    unavailable\n")
	}
	fmt.Fprintf(&b, "  confidence:     %.4f\n", report.TimeToGreen.Confidence)

	fmt.Fprintf(&b, "recommendations: %d\n", len(report.Recommendations))
	for _, rec := range report.Recommendations {
		fmt.Fprintf(&b, "- fingerprint: %s\n", rec.Fingerprint)
		fmt.Fprintf(&b, "  occurrences: %d\n", rec.Occurrences)
		fmt.Fprintf(&b, "  routes:      %s\n", strings.Join(rec.AffectedRoutes, ", "))
		fmt.Fprintf(&b, "  last seen:   %s\n", rec.LastSeenAt)
		fmt.Fprintf(&b, "  suggestion:  %s\n", rec.Suggestion)
		fmt.Fprintf(&b, "  confidence:  %.4f\n", rec.Confidence)
	}

	return b.String()
}
