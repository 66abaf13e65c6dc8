package harness

import (
	"fmt"
	"slices"
)

// EvaluateAssertions checks every assertion against the result and returns
// one message per failure. An empty slice means the scenario passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertTotal:
			err = assertTotal(result, assertion)
		case AssertEntryOrder:
			err = assertEntryOrder(result, assertion)
		case AssertEntryDiffs:
			err = assertEntryDiffs(result, assertion)
		case AssertRecommendation:
			err = assertRecommendation(result, assertion)
		case AssertForecast:
			err = assertForecast(result, assertion)
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d (%s): %v", i, assertion.Type, err))
		}
	}

	return errors
}

func assertTotal(result *Result, assertion Assertion) error {
	if result.Page.Total != assertion.Count {
		return fmt.Errorf("expected total %d, got %d", assertion.Count, result.Page.Total)
	}
	return nil
}

func assertEntryOrder(result *Result, assertion Assertion) error {
	var ids []string
	for _, entry := range result.Page.Entries {
		ids = append(ids, entry.Manifest.ID)
	}
	if !slices.Equal(ids, assertion.Manifests) {
		return fmt.Errorf("expected manifests %v, got %v", assertion.Manifests, ids)
	}
	return nil
}

func assertEntryDiffs(result *Result, assertion Assertion) error {
	for _, entry := range result.Page.Entries {
		if entry.Manifest.ID != assertion.Manifest {
			continue
		}
		if entry.Aggregates.DiffDetectedRoutes != assertion.Count {
			return fmt.Errorf("manifest %s: expected %d drifted routes, got %d",
				assertion.Manifest, assertion.Count, entry.Aggregates.DiffDetectedRoutes)
		}
		return nil
	}
	return fmt.Errorf("manifest %s not in page", assertion.Manifest)
}

func assertRecommendation(result *Result, assertion Assertion) error {
	for _, rec := range result.Report.Recommendations {
		if rec.Fingerprint != assertion.Fingerprint {
			continue
		}
		if assertion.Count > 0 && rec.Occurrences != assertion.Count {
			return fmt.Errorf("fingerprint %s: expected %d occurrences, got %d",
				assertion.Fingerprint, assertion.Count, rec.Occurrences)
		}
		for _, route := range assertion.Routes {
			if !slices.Contains(rec.AffectedRoutes, route) {
				return fmt.Errorf("fingerprint %s: route %s not in affected routes %v",
					assertion.Fingerprint, route, rec.AffectedRoutes)
			}
		}
		return nil
	}
	return fmt.Errorf("no recommendation for fingerprint %s", assertion.Fingerprint)
}

func assertForecast(result *Result, assertion Assertion) error {
	available := result.Report.TimeToGreen.ForecastAt != nil
	if available != assertion.Available {
		return fmt.Errorf("expected forecast available=%v, got %v", assertion.Available, available)
	}
	return nil
}
