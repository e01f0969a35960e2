package fairness

import (
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

// ManipulationAssessment is the anti-manipulation guard's view of one recommendation.
type ManipulationAssessment struct {
	HasRelationship       bool   `json:"has_relationship"`
	StrictlyOptimal       bool   `json:"strictly_optimal"`
	Optimal               bool   `json:"optimal"`
	DisclosuresCompliant  bool   `json:"disclosures_compliant"`
	Flagged               bool   `json:"flagged"`
	Passes                bool   `json:"passes"`
	BetterAlternativeID   string `json:"better_alternative_id,omitempty"`
	BetterAlternativeUtil int    `json:"better_alternative_utility,omitempty"`
}

// AssessManipulation runs the guard.
//
// Flagged: the product has a commercial relationship and a product without one has
// strictly greater utility.
// Passes: no relationship, or strictly optimal despite it, or all its disclosures are
// compliant and it is optimal.
func AssessManipulation(sb *Scoreboard, ds []contracts.Disclosure, productID string, recommendedAt time.Time) ManipulationAssessment {
	a := ManipulationAssessment{
		HasRelationship:      HasCommercialRelationship(ds, productID),
		StrictlyOptimal:      sb.IsStrictlyOptimal(productID),
		Optimal:              sb.IsOptimal(productID),
		DisclosuresCompliant: DisclosuresCompliant(ds, productID, recommendedAt),
	}
	if a.HasRelationship {
		if alt, ok := sb.BetterNonCommercial(productID); ok {
			a.Flagged = true
			a.BetterAlternativeID = alt.Product.ID
			a.BetterAlternativeUtil = alt.Utility
		}
	}
	a.Passes = !a.HasRelationship || a.StrictlyOptimal || (a.DisclosuresCompliant && a.Optimal)
	return a
}

// ManipulationGuardPasses is the boolean form used on the fast path.
func ManipulationGuardPasses(sb *Scoreboard, ds []contracts.Disclosure, productID string, recommendedAt time.Time) bool {
	if !HasCommercialRelationship(ds, productID) {
		return true
	}
	if sb.IsStrictlyOptimal(productID) {
		return true
	}
	return DisclosuresCompliant(ds, productID, recommendedAt) && sb.IsOptimal(productID)
}
