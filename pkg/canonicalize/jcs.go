// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme) serialization
// and identifier normalisation for deterministic hashing and signing of audit inputs.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/text/unicode/norm"
)

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// v is first marshalled with encoding/json so struct tags are respected, then the
// output is rewritten into canonical form: sorted keys, no insignificant whitespace,
// no HTML escaping and ES6 number formatting.
func JCS(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: pre-marshal failed: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("jcs: transform failed: %w", err)
	}
	return out, nil
}

// JCSString returns the JCS canonical form as a string.
func JCSString(v any) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CanonicalHash returns the SHA-256 hex digest of the canonical JSON representation of v.
func CanonicalHash(v any) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns it hex encoded.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Identifier normalises an identifier (product, brand, feature, party) to NFC with
// surrounding whitespace removed. Two identifiers are equal iff their normalised
// forms are byte-equal.
func Identifier(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IdentifierSet builds a lookup set of normalised identifiers. Empty entries are dropped.
func IdentifierSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		n := Identifier(id)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}
