package fairness

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
)

// ErrNoVerifier is returned when an Evaluator is built without a signature verifier.
var ErrNoVerifier = errors.New("fairness: signature verifier is required")

// Reason names one failed check of the compliance predicate.
type Reason string

const (
	ReasonPreferenceSignature Reason = "PREFERENCE_SIGNATURE_INVALID"
	ReasonCatalogNotValidAt   Reason = "CATALOG_NOT_VALID_AT_EVALUATION"
	ReasonCatalogSignature    Reason = "CATALOG_SIGNATURE_INVALID"
	ReasonProductNotInCatalog Reason = "PRODUCT_NOT_IN_CATALOG"
	ReasonHardConstraint      Reason = "HARD_CONSTRAINT_VIOLATED"
	ReasonSuboptimal          Reason = "SUBOPTIMAL"
	ReasonDisclosure          Reason = "DISCLOSURE_NON_COMPLIANT"
	ReasonManipulation        Reason = "MANIPULATION_SUSPECTED"

	ReasonRankingInconsistent Reason = "RANKING_INCONSISTENT"
	ReasonRankOneNotUnique    Reason = "RANK_ONE_NOT_UNIQUE"
	ReasonItemNonCompliant    Reason = "ITEM_NON_COMPLIANT"
)

// Category groups reasons for findings: integrity, constraint, optimality, disclosure,
// manipulation or ranking.
func (r Reason) Category() string {
	switch r {
	case ReasonPreferenceSignature, ReasonCatalogNotValidAt, ReasonCatalogSignature:
		return "integrity"
	case ReasonProductNotInCatalog, ReasonHardConstraint:
		return "constraint"
	case ReasonSuboptimal:
		return "optimality"
	case ReasonDisclosure:
		return "disclosure"
	case ReasonManipulation:
		return "manipulation"
	case ReasonRankingInconsistent, ReasonRankOneNotUnique, ReasonItemNonCompliant:
		return "ranking"
	default:
		return "unknown"
	}
}

// Verdict is the full compliance verdict for one recommendation. Reasons enumerates
// every failing check; Compliant is true iff Reasons is empty.
type Verdict struct {
	Compliant                bool                   `json:"compliant"`
	Reasons                  []Reason               `json:"reasons"`
	ProductID                string                 `json:"product_id"`
	Rank                     int                    `json:"rank"`
	Utility                  int                    `json:"utility"`
	BestUtility              int                    `json:"best_utility"`
	Components               *ComponentScores       `json:"components,omitempty"`
	ConstraintFailures       []string               `json:"constraint_failures,omitempty"`
	DisclosureFindings       []DisclosureFinding    `json:"disclosure_findings,omitempty"`
	Manipulation             ManipulationAssessment `json:"manipulation"`
	StatisticallySignificant bool                   `json:"statistically_significant"`
}

// Has reports whether the verdict lists reason r.
func (v *Verdict) Has(r Reason) bool {
	for _, x := range v.Reasons {
		if x == r {
			return true
		}
	}
	return false
}

// Evaluator composes the scorer, qualifier, optimality checker, disclosure validator
// and manipulation guard into one verdict. It is stateless apart from the injected
// verifier and safe for concurrent use.
type Evaluator struct {
	verifier crypto.SignatureVerifier
}

// NewEvaluator creates an evaluator using v for preference and catalog signatures.
func NewEvaluator(v crypto.SignatureVerifier) (*Evaluator, error) {
	if v == nil {
		return nil, ErrNoVerifier
	}
	return &Evaluator{verifier: v}, nil
}

// PreferenceSignatureValid verifies the preference against its owner's key.
func (e *Evaluator) PreferenceSignatureValid(p contracts.UserPreference) bool {
	payload, err := p.SignablePayload()
	if err != nil {
		return false
	}
	return e.verifier.VerifySignature(p.OwnerID, payload, p.Signature)
}

// CatalogSignatureValid verifies the catalog against its certifier's key.
func (e *Evaluator) CatalogSignatureValid(c contracts.Catalog) bool {
	payload, err := c.SignablePayload()
	if err != nil {
		return false
	}
	return e.verifier.VerifySignature(c.CertifierID, payload, c.Signature)
}

// Evaluate runs the full compliance predicate. Every applicable check runs so the
// verdict carries all failing reasons. Only malformed input returns an error.
func (e *Evaluator) Evaluate(rc contracts.RecommendationContext, rec contracts.Recommendation) (*Verdict, error) {
	if err := validateInputs(rc, rec); err != nil {
		return nil, err
	}
	sb := NewScoreboard(rc.Catalog, rc.Preference, rc.Disclosures)
	return e.evaluate(rc, rec, sb), nil
}

func (e *Evaluator) evaluate(rc contracts.RecommendationContext, rec contracts.Recommendation, sb *Scoreboard) *Verdict {
	v := &Verdict{
		ProductID: rec.ProductID,
		Rank:      rec.Rank,
		Reasons:   []Reason{},
	}
	if best, ok := sb.BestUtility(); ok {
		v.BestUtility = best
	}

	if !e.PreferenceSignatureValid(rc.Preference) {
		v.Reasons = append(v.Reasons, ReasonPreferenceSignature)
	}
	if !rc.Catalog.ValidAt(rc.Timestamp) {
		v.Reasons = append(v.Reasons, ReasonCatalogNotValidAt)
	}
	if !e.CatalogSignatureValid(rc.Catalog) {
		v.Reasons = append(v.Reasons, ReasonCatalogSignature)
	}

	cand, inCatalog := sb.Lookup(rec.ProductID)
	if !inCatalog {
		// Product-level checks are not applicable to an unknown product.
		v.Reasons = append(v.Reasons, ReasonProductNotInCatalog)
		v.Compliant = false
		return v
	}

	v.Utility = cand.Utility
	comps := Components(cand.Product, rc.Preference)
	v.Components = &comps
	v.StatisticallySignificant = StatisticallySignificant(cand.Product)

	if failed := ConstraintFailures(cand.Product, rc.Preference.Constraints); len(failed) > 0 {
		v.ConstraintFailures = failed
		v.Reasons = append(v.Reasons, ReasonHardConstraint)
	}
	if !sb.IsOptimal(rec.ProductID) {
		v.Reasons = append(v.Reasons, ReasonSuboptimal)
	}
	if findings := DisclosureFindings(rc.Disclosures, rec.ProductID, rec.Timestamp); len(findings) > 0 {
		v.DisclosureFindings = findings
		v.Reasons = append(v.Reasons, ReasonDisclosure)
	}
	v.Manipulation = AssessManipulation(sb, rc.Disclosures, rec.ProductID, rec.Timestamp)
	if !v.Manipulation.Passes {
		v.Reasons = append(v.Reasons, ReasonManipulation)
	}

	v.Compliant = len(v.Reasons) == 0
	return v
}

// Reverify returns a copy of v with the preference and catalog signature reasons
// recomputed against the current verifier. Every other check depends only on rc and
// the recommendation, so a verdict stored under their evidence hash stays valid once
// its signature checks are refreshed.
func (e *Evaluator) Reverify(rc contracts.RecommendationContext, v *Verdict) *Verdict {
	out := *v
	out.Reasons = make([]Reason, 0, len(v.Reasons)+2)
	if !e.PreferenceSignatureValid(rc.Preference) {
		out.Reasons = append(out.Reasons, ReasonPreferenceSignature)
	}
	if v.Has(ReasonCatalogNotValidAt) {
		out.Reasons = append(out.Reasons, ReasonCatalogNotValidAt)
	}
	if !e.CatalogSignatureValid(rc.Catalog) {
		out.Reasons = append(out.Reasons, ReasonCatalogSignature)
	}
	for _, r := range v.Reasons {
		switch r {
		case ReasonPreferenceSignature, ReasonCatalogNotValidAt, ReasonCatalogSignature:
		default:
			out.Reasons = append(out.Reasons, r)
		}
	}
	out.Compliant = len(out.Reasons) == 0
	return &out
}

// FastCheck is the decidable runtime gate: the same predicate as Evaluate, computed by
// boolean short-circuit. It assumes validated input and agrees with
// Evaluate(...).Compliant on every valid input.
func (e *Evaluator) FastCheck(rc contracts.RecommendationContext, rec contracts.Recommendation) bool {
	if !e.PreferenceSignatureValid(rc.Preference) ||
		!rc.Catalog.ValidAt(rc.Timestamp) ||
		!e.CatalogSignatureValid(rc.Catalog) {
		return false
	}
	p, ok := rc.Catalog.Find(rec.ProductID)
	if !ok || !Qualifies(p, rc.Preference.Constraints) {
		return false
	}
	sb := NewScoreboard(rc.Catalog, rc.Preference, rc.Disclosures)
	return sb.IsOptimal(rec.ProductID) &&
		DisclosuresCompliant(rc.Disclosures, rec.ProductID, rec.Timestamp) &&
		ManipulationGuardPasses(sb, rc.Disclosures, rec.ProductID, rec.Timestamp)
}

// ListVerdict is the verdict for a ranked list of recommendations.
type ListVerdict struct {
	Compliant bool       `json:"compliant"`
	Reasons   []Reason   `json:"reasons"`
	Items     []*Verdict `json:"items"` // sorted by rank, input order within a rank
}

// EvaluateList requires utility-consistent ranking (rank i < rank j implies
// utility(i) >= utility(j)), exactly one rank-1 item, and every item compliant.
func (e *Evaluator) EvaluateList(rc contracts.RecommendationContext, recs []contracts.Recommendation) (*ListVerdict, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	for i, r := range recs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("recommendations[%d]: %w", i, err)
		}
	}

	sorted := make([]contracts.Recommendation, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	sb := NewScoreboard(rc.Catalog, rc.Preference, rc.Disclosures)
	lv := &ListVerdict{Reasons: []Reason{}, Items: make([]*Verdict, 0, len(sorted))}
	for _, r := range sorted {
		lv.Items = append(lv.Items, e.evaluate(rc, r, sb))
	}

	if !RankingConsistent(sb, sorted) {
		lv.Reasons = append(lv.Reasons, ReasonRankingInconsistent)
	}
	if CountRank(sorted, 1) != 1 {
		lv.Reasons = append(lv.Reasons, ReasonRankOneNotUnique)
	}
	for _, it := range lv.Items {
		if !it.Compliant {
			lv.Reasons = append(lv.Reasons, ReasonItemNonCompliant)
			break
		}
	}
	lv.Compliant = len(lv.Reasons) == 0
	return lv, nil
}

// RankingConsistent checks that a strictly better rank never carries strictly lower
// utility. Products outside the catalog score 0.
func RankingConsistent(sb *Scoreboard, recs []contracts.Recommendation) bool {
	util := func(id string) int {
		if it, ok := sb.Lookup(id); ok {
			return it.Utility
		}
		return 0
	}
	for i := range recs {
		for j := range recs {
			if recs[i].Rank < recs[j].Rank && util(recs[i].ProductID) < util(recs[j].ProductID) {
				return false
			}
		}
	}
	return true
}

// CountRank counts recommendations holding the given rank.
func CountRank(recs []contracts.Recommendation, rank int) int {
	n := 0
	for _, r := range recs {
		if r.Rank == rank {
			n++
		}
	}
	return n
}

func validateInputs(rc contracts.RecommendationContext, rec contracts.Recommendation) error {
	return errors.Join(rc.Validate(), rec.Validate())
}
