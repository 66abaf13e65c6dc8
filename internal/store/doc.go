// Package store provides SQLite-backed durable storage for the marketing
// preview history:
//
//   - Manifests: point-in-time captures of all tracked routes
//   - Route summaries: queryable per-route rows owned by a manifest
//   - Governance actions: operator decisions (approve, reject, publish)
//   - Live deltas: out-of-cycle preview renders, deduplicated by payload
//   - Remediation actions: reset/prioritize operations with cause fingerprints
//   - Note revisions: triage notes with severity tiers
//
// # Write model
//
// PersistManifest is the single renderer-facing write: upsert + full route
// replace + retention trim in one transaction, so a reader never observes a
// manifest whose route rows are mid-replacement. The four Record* ledger
// writes are independent idempotent inserts; a ledger row may reference a
// manifest that has not been persisted yet and simply stays orphaned from
// manifest-scoped queries until it appears.
//
// # Idempotence strategies
//
// Governance actions use INSERT OR REPLACE on the caller-supplied ID; the
// live-delta ledger derives its ID from the canonical payload fingerprint;
// remediation and note ledgers use ON CONFLICT(id) DO NOTHING. These differ
// on purpose - unifying them would change deduplication behavior for data
// already in the field.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: route rows cascade with their manifest
//
// Route and actor identifiers are stored alongside one-way digests computed
// by internal/identity; the digests are the only analytic join keys.
package store
