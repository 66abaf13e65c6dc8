package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Mvgnu/smplat-sub001/internal/history"
)

// marshalManifest serializes a manifest to JSON TEXT for the payload column.
// HTML escaping is disabled: route markup routinely contains < > & and the
// blob must reproduce the renderer's output byte-faithfully.
func marshalManifest(manifest history.SnapshotManifest) (string, error) {
	return marshalJSON(manifest, "manifest")
}

// unmarshalManifest parses a stored payload blob back into a manifest.
// A blob that no longer parses is data corruption, not a skippable row.
func unmarshalManifest(data string) (history.SnapshotManifest, error) {
	var manifest history.SnapshotManifest
	if err := json.Unmarshal([]byte(data), &manifest); err != nil {
		return history.SnapshotManifest{}, fmt.Errorf("corrupt manifest payload: %w", err)
	}
	return manifest, nil
}

// marshalBlockKinds serializes a block-kind list for the block_kinds column.
// Empty lists store as "[]" so the column stays NOT NULL.
func marshalBlockKinds(kinds []string) (string, error) {
	if len(kinds) == 0 {
		return "[]", nil
	}
	return marshalJSON(kinds, "block kinds")
}

func unmarshalBlockKinds(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var kinds []string
	if err := json.Unmarshal([]byte(data), &kinds); err != nil {
		return nil, fmt.Errorf("corrupt block kinds: %w", err)
	}
	return kinds, nil
}

// marshalMetadata serializes an optional metadata object; nil stores as "".
func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	return marshalJSON(metadata, "metadata")
}

// marshalDelta serializes the full delta record for the payload column so a
// query can return the record exactly as it was submitted.
func marshalDelta(delta history.LiveDeltaRecord) (string, error) {
	return marshalJSON(delta, "delta")
}

func unmarshalDelta(data string) (history.LiveDeltaRecord, error) {
	var delta history.LiveDeltaRecord
	if err := json.Unmarshal([]byte(data), &delta); err != nil {
		return history.LiveDeltaRecord{}, fmt.Errorf("corrupt delta payload: %w", err)
	}
	return delta, nil
}

func marshalJSON(v any, what string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}
