// Package identity provides the one-way hashing used for privacy-preserving
// correlation keys and content-addressed payload fingerprints.
//
// Route paths and actor identifiers are never stored as analytic join keys;
// only their digests are. The digests are deterministic (no salt) so the
// same route hashes identically across process restarts, which is what makes
// them usable as stable join and deduplication keys. None of this is an
// authentication mechanism.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digest separation. A route hash can never collide with
// a payload fingerprint even for identical input bytes. Version suffix
// enables future algorithm migration.
const (
	domainField   = "previewtrail/field/v1"
	domainPayload = "previewtrail/payload/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash digests a single sensitive field (route path, actor identifier).
// Same input always yields the same output within a process and across
// restarts; distinct inputs collide with negligible probability.
func Hash(value string) string {
	return hashWithDomain(domainField, []byte(value))
}

// PayloadFingerprint computes the content-addressed identity of a normalized
// payload object. Used to suppress duplicate live-delta submissions: two
// submissions fingerprint identically iff their canonical JSON is identical.
func PayloadFingerprint(payload map[string]any) (string, error) {
	canonical, err := MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("payload fingerprint: %w", err)
	}
	return hashWithDomain(domainPayload, canonical), nil
}

// MustFingerprint is like PayloadFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(payload map[string]any) string {
	fp, err := PayloadFingerprint(payload)
	if err != nil {
		panic(err)
	}
	return fp
}
