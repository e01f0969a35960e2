package crypto

import (
	"crypto/subtle"
	"fmt"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

// EvidenceHasher is the commit_hash collaborator.
type EvidenceHasher interface {
	CommitHash(rc contracts.RecommendationContext, rec contracts.Recommendation) (string, error)
}

// CanonicalHasher commits to SHA-256 over the RFC 8785 form of
// {"context": rc, "recommendation": rec}.
type CanonicalHasher struct{}

func NewCanonicalHasher() *CanonicalHasher {
	return &CanonicalHasher{}
}

func (h *CanonicalHasher) CommitHash(rc contracts.RecommendationContext, rec contracts.Recommendation) (string, error) {
	evidence := struct {
		Context        contracts.RecommendationContext `json:"context"`
		Recommendation contracts.Recommendation        `json:"recommendation"`
	}{rc, rec}

	digest, err := canonicalize.CanonicalHash(evidence)
	if err != nil {
		return "", fmt.Errorf("evidence hash: %w", err)
	}
	return digest, nil
}

// HashesEqual compares two digests in constant time. Empty digests never match.
func HashesEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
