package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "One manifest, no events",
		Manifests: []ManifestStep{
			{ID: "only", GeneratedAt: "2026-08-01T00:00:00Z", Routes: 2, Drifted: 1},
		},
		Assertions: []Assertion{
			{Type: AssertTotal, Count: 1},
			{Type: AssertEntryOrder, Manifests: []string{"only"}},
			{Type: AssertEntryDiffs, Manifest: "only", Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Passed(), "assertion failures: %v", result.Errors)
	require.Len(t, result.Page.Entries, 1)
	assert.Equal(t, "only", result.Page.Entries[0].Manifest.ID)

	// Single sample: every trend metric degrades to its zero state.
	assert.Zero(t, result.Report.RegressionVelocity.AveragePerHour)
	assert.Equal(t, 1, result.Report.RegressionVelocity.SampleSize)
	assert.Nil(t, result.Report.TimeToGreen.ForecastAt)
	assert.Empty(t, result.Report.Recommendations)
}

func TestRun_FailedAssertionReportsMismatch(t *testing.T) {
	scenario := &Scenario{
		Name: "wrong-total",
		Manifests: []ManifestStep{
			{ID: "a", GeneratedAt: "2026-08-01T00:00:00Z", Routes: 1},
		},
		Assertions: []Assertion{
			{Type: AssertTotal, Count: 5},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Passed())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected total 5, got 1")
}

func TestRun_UnknownEventType(t *testing.T) {
	scenario := &Scenario{
		Name: "bad-event",
		Manifests: []ManifestStep{
			{ID: "a", GeneratedAt: "2026-08-01T00:00:00Z", Routes: 1},
		},
		Events: []EventStep{
			{Type: "telemetry", At: "2026-08-01T00:01:00Z"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestRun_QueryFilterAppliesToPage(t *testing.T) {
	scenario := &Scenario{
		Name: "filtered",
		Manifests: []ManifestStep{
			{ID: "wide", GeneratedAt: "2026-08-01T00:00:00Z", Routes: 3, Drifted: 1},
			{ID: "narrow", GeneratedAt: "2026-08-01T01:00:00Z", Routes: 1},
		},
		Query: QueryStep{Route: "/page-2"},
		Assertions: []Assertion{
			{Type: AssertTotal, Count: 1},
			{Type: AssertEntryOrder, Manifests: []string{"wide"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Passed(), "assertion failures: %v", result.Errors)
}

// TestScenarios runs every YAML scenario under testdata/scenarios and pins
// its analytics report against the matching golden file. Regenerate goldens
// with: go test ./internal/harness -update
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Passed(), "assertion failures: %v", result.Errors)
		})
	}
}
