package contracts

import (
	"fmt"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// Recommendation is the output of an untrusted recommender and the subject under test.
type Recommendation struct {
	ProductID      string    `json:"product_id"`
	Rank           int       `json:"rank"` // 1 = best
	ExplanationRef string    `json:"explanation_ref,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Validate rejects malformed recommendations.
func (r Recommendation) Validate() error {
	var errs fieldErrors
	if canonicalize.Identifier(r.ProductID) == "" {
		errs.add("product_id", "must not be empty")
	}
	if r.Rank < 1 {
		errs.add("rank", "must be >= 1, got %d", r.Rank)
	}
	return errs.err()
}

// RecommendationContext is the complete, immutable input to one evaluation.
type RecommendationContext struct {
	Preference  UserPreference `json:"preference"`
	Catalog     Catalog        `json:"catalog"`
	Disclosures []Disclosure   `json:"disclosures,omitempty"`
	Timestamp   time.Time      `json:"timestamp"` // evaluation time
}

// Validate validates every embedded record.
func (c RecommendationContext) Validate() error {
	var errs fieldErrors
	if err := c.Preference.Validate(); err != nil {
		errs.nest("preference", err)
	}
	if err := c.Catalog.Validate(); err != nil {
		errs.nest("catalog", err)
	}
	for i, d := range c.Disclosures {
		var derr fieldErrors
		d.collect(&derr)
		for _, e := range derr {
			errs.nest(fmt.Sprintf("disclosures[%d]", i), e)
		}
	}
	if c.Timestamp.IsZero() {
		errs.add("timestamp", "must be set")
	}
	return errs.err()
}

// AuditRecord is the append-only evidence snapshot logged for one recommendation.
// Created once and never mutated.
type AuditRecord struct {
	AuditID        string                `json:"audit_id"`
	PlatformID     string                `json:"platform_id"`
	Context        RecommendationContext `json:"context"`
	Recommendation Recommendation        `json:"recommendation"`
	EvidenceHash   string                `json:"evidence_hash"`
	AuditorID      string                `json:"auditor_id"`
	Timestamp      time.Time             `json:"timestamp"`
	Signature      string                `json:"signature,omitempty"`
}

// SignablePayload returns the canonical bytes the auditor signs.
func (a AuditRecord) SignablePayload() ([]byte, error) {
	a.Signature = ""
	return canonicalize.JCS(a)
}

// Validate checks identifiers and the embedded recommendation. The embedded context
// is not validated here: a tampered snapshot must still reach the audit cascade so
// it can be classified.
func (a AuditRecord) Validate() error {
	var errs fieldErrors
	if canonicalize.Identifier(a.AuditID) == "" {
		errs.add("audit_id", "must not be empty")
	}
	if canonicalize.Identifier(a.AuditorID) == "" {
		errs.add("auditor_id", "must not be empty")
	}
	if a.Timestamp.IsZero() {
		errs.add("timestamp", "must be set")
	}
	if err := a.Recommendation.Validate(); err != nil {
		errs.nest("recommendation", err)
	}
	return errs.err()
}
