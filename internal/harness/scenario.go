package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario for the history pipeline: a
// sequence of manifest persists and ledger events, a history query, and
// assertions on the query result and the derived analytics.
type Scenario struct {
	// Name uniquely identifies this scenario (and its golden file).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// HistoryLimit is the retention limit applied on every persist.
	// Zero means the store default.
	HistoryLimit int `yaml:"history_limit,omitempty"`

	// Manifests are persisted in order. Later manifests may trim earlier
	// ones once HistoryLimit is exceeded.
	Manifests []ManifestStep `yaml:"manifests"`

	// Events are ledger writes applied after all manifests, in order.
	Events []EventStep `yaml:"events,omitempty"`

	// Query drives the history read; zero value queries everything.
	Query QueryStep `yaml:"query,omitempty"`

	// Assertions validate the query page and analytics report.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ManifestStep persists one generated snapshot manifest.
type ManifestStep struct {
	ID          string `yaml:"id"`
	GeneratedAt string `yaml:"generated_at"`
	Label       string `yaml:"label,omitempty"`

	// Routes is the number of routes rendered into the manifest and
	// Drifted how many of them show a draft/published diff.
	Routes  int `yaml:"routes"`
	Drifted int `yaml:"drifted"`
}

// EventStep is one ledger write. Type selects the ledger; the remaining
// fields apply per type.
type EventStep struct {
	// Type: "governance" | "delta" | "remediation" | "note"
	Type string `yaml:"type"`

	ID       string `yaml:"id,omitempty"`
	Manifest string `yaml:"manifest,omitempty"`
	At       string `yaml:"at"`
	Actor    string `yaml:"actor,omitempty"`

	// Governance
	Kind string `yaml:"kind,omitempty"`

	// Delta, remediation, note
	Route   string `yaml:"route,omitempty"`
	Variant string `yaml:"variant,omitempty"`

	// Remediation
	Action      string `yaml:"action,omitempty"`
	Fingerprint string `yaml:"fingerprint,omitempty"`

	// Note
	Severity string `yaml:"severity,omitempty"`
	Body     string `yaml:"body,omitempty"`
}

// QueryStep mirrors history.HistoryQuery in scenario YAML.
type QueryStep struct {
	Limit   int    `yaml:"limit,omitempty"`
	Offset  int    `yaml:"offset,omitempty"`
	Route   string `yaml:"route,omitempty"`
	Variant string `yaml:"variant,omitempty"`
}

// Assertion validates one aspect of the result.
type Assertion struct {
	// Type specifies the assertion type:
	// - "total": page total equals Count
	// - "entry_order": manifest ids appear in exactly this order
	// - "entry_diffs": manifest Manifest has Count drifted routes
	// - "recommendation": fingerprint Fingerprint has Count occurrences
	//   covering Routes (subset match)
	// - "forecast": time-to-green availability equals Available
	Type string `yaml:"type"`

	Count       int      `yaml:"count,omitempty"`
	Manifests   []string `yaml:"manifests,omitempty"`
	Manifest    string   `yaml:"manifest,omitempty"`
	Fingerprint string   `yaml:"fingerprint,omitempty"`
	Routes      []string `yaml:"routes,omitempty"`
	Available   bool     `yaml:"available,omitempty"`
}

// Assertion type constants.
const (
	AssertTotal          = "total"
	AssertEntryOrder     = "entry_order"
	AssertEntryDiffs     = "entry_diffs"
	AssertRecommendation = "recommendation"
	AssertForecast       = "forecast"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected (catches typos like "assertion:" vs "assertions:").
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Name == "" {
		return nil, fmt.Errorf("scenario missing required field: name")
	}
	if len(scenario.Manifests) == 0 {
		return nil, fmt.Errorf("scenario %q has no manifests", scenario.Name)
	}

	return &scenario, nil
}
