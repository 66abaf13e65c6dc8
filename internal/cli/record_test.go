package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mvgnu/smplat-sub001/internal/history"
)

func TestRecordGovernance(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "record", "governance", "--db", dbPath,
		"--kind", "approve-draft", "--id", "g1", "--actor", "alice@example.com",
		"--at", "2026-08-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded governance action g1")

	// Resubmission replaces in place, still reported as recorded.
	out, err = execute(t, "record", "governance", "--db", dbPath,
		"--kind", "approve-draft", "--id", "g1", "--at", "2026-08-01T00:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded governance action g1")
}

func TestRecordGovernance_InvalidMeta(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	_, err := execute(t, "record", "governance", "--db", dbPath,
		"--kind", "publish", "--meta", "{not json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRecordDelta_DuplicateReported(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	payload, err := json.Marshal(history.LiveDeltaRecord{
		Route:      "/pricing",
		Variant:    history.VariantDraft,
		RecordedAt: "2026-08-01T00:00:00Z",
	})
	require.NoError(t, err)
	payloadPath := filepath.Join(t.TempDir(), "delta.json")
	require.NoError(t, os.WriteFile(payloadPath, payload, 0o644))

	out, err := execute(t, "record", "delta", "--db", dbPath, "--payload", payloadPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded delta")

	out, err = execute(t, "record", "delta", "--db", dbPath, "--payload", payloadPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Duplicate delta")
	assert.Contains(t, out, "(no-op)")
}

func TestRecordRemediation_InvalidAction(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	_, err := execute(t, "record", "remediation", "--db", dbPath,
		"--route", "/", "--action", "escalate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid action")
}

func TestRecordRemediation_JSONOutput(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "record", "remediation", "--db", dbPath, "--format", "json",
		"--route", "/pricing", "--action", "reset", "--id", "r1",
		"--fingerprint", "schema:missing-field", "--at", "2026-08-01T00:00:00Z")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "r1", result["id"])
	assert.Equal(t, true, result["inserted"])
}

func TestRecordNote_InvalidSeverity(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	_, err := execute(t, "record", "note", "--db", dbPath,
		"--route", "/", "--body", "check this", "--severity", "critical")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid severity")
}

func TestRecordNote_DuplicateIDNoOp(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	out, err := execute(t, "record", "note", "--db", dbPath,
		"--route", "/", "--body", "first", "--id", "n1", "--severity", "warning")
	require.NoError(t, err)
	assert.Contains(t, out, "Recorded note n1")

	out, err = execute(t, "record", "note", "--db", dbPath,
		"--route", "/", "--body", "second", "--id", "n1", "--severity", "warning")
	require.NoError(t, err)
	assert.Contains(t, out, "Duplicate note n1 (no-op)")
}
