package fairness

import (
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

// DisclosureViolation classifies why a disclosure fails.
type DisclosureViolation string

const (
	DisclosureOK                     DisclosureViolation = ""
	DisclosureMissing                DisclosureViolation = "MISSING_DISCLOSURE"
	DisclosureIncorrectRelationship  DisclosureViolation = "INCORRECT_RELATIONSHIP"
	DisclosureInsufficientProminence DisclosureViolation = "INSUFFICIENT_PROMINENCE"
	DisclosureLate                   DisclosureViolation = "LATE_DISCLOSURE"
)

// MinimumProminence is the prominence a relationship class must be shown with.
func MinimumProminence(r contracts.RelationshipClass) int {
	switch r {
	case contracts.RelationshipNone:
		return 0
	case contracts.RelationshipAffiliate, contracts.RelationshipPartnership:
		return 2
	case contracts.RelationshipSponsored, contracts.RelationshipAdvertising,
		contracts.RelationshipInventory, contracts.RelationshipExclusive:
		return 3
	case contracts.RelationshipOwnBrand:
		return 4
	default:
		// Unknown classes are rejected by validation; demand maximum visibility anyway.
		return contracts.MaxProminence
	}
}

// ClassifyDisclosure returns the first violation in the fixed order: no relationship,
// missing, incorrect relationship, insufficient prominence, late. recommendedAt may be
// zero, in which case lateness is not assessed.
func ClassifyDisclosure(d contracts.Disclosure, recommendedAt time.Time) DisclosureViolation {
	if !d.Relationship.IsCommercial() {
		return DisclosureOK
	}
	if !d.Disclosed {
		return DisclosureMissing
	}
	if d.ClaimedRelationship != "" && d.ClaimedRelationship != d.Relationship {
		return DisclosureIncorrectRelationship
	}
	if d.Prominence < MinimumProminence(d.Relationship) {
		return DisclosureInsufficientProminence
	}
	if d.DisclosedAt != nil && !recommendedAt.IsZero() && d.DisclosedAt.After(recommendedAt) {
		return DisclosureLate
	}
	return DisclosureOK
}

// DisclosureCompliant reports whether a single disclosure meets policy.
func DisclosureCompliant(d contracts.Disclosure, recommendedAt time.Time) bool {
	return ClassifyDisclosure(d, recommendedAt) == DisclosureOK
}

// DisclosureFinding pairs a failing disclosure with its classification.
type DisclosureFinding struct {
	ProductID    string                      `json:"product_id"`
	Relationship contracts.RelationshipClass `json:"relationship"`
	Violation    DisclosureViolation         `json:"violation"`
	Prominence   int                         `json:"prominence"`
	Required     int                         `json:"required"`
}

// DisclosureFindings classifies every disclosure tied to productID and returns the
// failing ones in input order.
func DisclosureFindings(ds []contracts.Disclosure, productID string, recommendedAt time.Time) []DisclosureFinding {
	var out []DisclosureFinding
	for _, d := range contracts.DisclosuresFor(ds, productID) {
		if v := ClassifyDisclosure(d, recommendedAt); v != DisclosureOK {
			out = append(out, DisclosureFinding{
				ProductID:    d.ProductID,
				Relationship: d.Relationship,
				Violation:    v,
				Prominence:   d.Prominence,
				Required:     MinimumProminence(d.Relationship),
			})
		}
	}
	return out
}

// DisclosuresCompliant reports whether every disclosure tied to productID is compliant.
func DisclosuresCompliant(ds []contracts.Disclosure, productID string, recommendedAt time.Time) bool {
	for _, d := range ds {
		if d.AppliesTo(productID) && !DisclosureCompliant(d, recommendedAt) {
			return false
		}
	}
	return true
}

// HasCommercialRelationship reports whether any disclosure ties productID to a
// commercial relationship.
func HasCommercialRelationship(ds []contracts.Disclosure, productID string) bool {
	for _, d := range ds {
		if d.AppliesTo(productID) && d.Relationship.IsCommercial() {
			return true
		}
	}
	return false
}
