package history

// Governance action kinds recorded by the admin surfaces. The ledger accepts
// any kind string; these are the ones the storefront currently emits.
const (
	GovernanceApproveDraft = "approve-draft"
	GovernanceRejectDraft  = "reject-draft"
	GovernancePublish      = "publish"
	GovernanceRollback     = "rollback"
)

// Remediation action kinds.
const (
	RemediationReset      = "reset"
	RemediationPrioritize = "prioritize"
)

// Note severities, ordered by escalating release risk.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityBlocker = "blocker"
)

// GovernanceAction is an operator decision optionally tied to a manifest.
// ActorHash is a one-way digest of the operator identity; the plaintext
// identity never reaches this subsystem.
type GovernanceAction struct {
	ID         string         `json:"id"`
	ManifestID string         `json:"manifestId,omitempty"`
	ActorHash  string         `json:"actorHash,omitempty"`
	ActionKind string         `json:"actionKind"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

// LiveDeltaRecord captures a live (non-batch) preview render observed
// outside the manifest cycle. PayloadHash is the content-addressed identity
// of the normalized payload; identical resubmissions are no-ops.
type LiveDeltaRecord struct {
	ID          string         `json:"id"`
	ManifestID  string         `json:"manifestId,omitempty"`
	Route       string         `json:"route"`
	Variant     string         `json:"variant"`
	BlockKinds  []string       `json:"blockKinds,omitempty"`
	Validation  map[string]any `json:"validation,omitempty"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`
	PayloadHash string         `json:"payloadHash,omitempty"`
	RecordedAt  string         `json:"recordedAt"`
}

// NormalizedPayload builds the canonical payload object that identifies a
// delta submission. Deliberately excludes RecordedAt and ManifestID: the
// same render observed twice must fingerprint identically regardless of
// when it was reported or which manifest it later attaches to.
func (d LiveDeltaRecord) NormalizedPayload() map[string]any {
	payload := map[string]any{
		"route":   d.Route,
		"variant": d.Variant,
	}
	if len(d.BlockKinds) > 0 {
		payload["blockKinds"] = d.BlockKinds
	}
	if len(d.Validation) > 0 {
		payload["validation"] = d.Validation
	}
	if len(d.Diagnostics) > 0 {
		payload["diagnostics"] = d.Diagnostics
	}
	return payload
}

// RemediationActionRecord is an operator or automated remediation applied to
// a route. Fingerprint is a coarse cause classification (for example
// "schema:missing-field") used for recurring-failure clustering; it may be
// empty when the cause was not classified.
type RemediationActionRecord struct {
	ID          string `json:"id"`
	ManifestID  string `json:"manifestId,omitempty"`
	Route       string `json:"route"`
	Action      string `json:"action"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ActorHash   string `json:"actorHash,omitempty"`
	RecordedAt  string `json:"recordedAt"`
}

// NoteRevisionRecord is a triage note attached to a route, with a hashed
// author identity.
type NoteRevisionRecord struct {
	ID         string `json:"id"`
	ManifestID string `json:"manifestId,omitempty"`
	Route      string `json:"route"`
	Severity   string `json:"severity"`
	Body       string `json:"body"`
	AuthorHash string `json:"authorHash,omitempty"`
	RecordedAt string `json:"recordedAt"`
}
