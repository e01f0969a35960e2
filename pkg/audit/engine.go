package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
)

// MaxTimestampSkew is how far an audit timestamp may trail its context timestamp.
const MaxTimestampSkew = 1000 * time.Millisecond

// ErrNoHasher is returned when an Engine is built without an evidence hasher.
var ErrNoHasher = errors.New("audit: evidence hasher is required")

// Outcome is the classification of one audit record plus the evidence behind it.
type Outcome struct {
	Result         Result            `json:"result"`
	RecomputedHash string            `json:"recomputed_hash,omitempty"`
	Verdict        *fairness.Verdict `json:"verdict,omitempty"` // nil when an integrity check ended the cascade
	Findings       []Finding         `json:"findings"`
}

// Engine runs the audit cascade. First match wins:
//
//	proof-missing, proof-mismatch, timestamp-fraud, invalid-preferences,
//	catalog-tampering, compliant, suboptimal, undisclosed-bias, indeterminate.
type Engine struct {
	evaluator *fairness.Evaluator
	verifier  crypto.SignatureVerifier
	hasher    crypto.EvidenceHasher
}

// NewEngine wires the engine to its signature and hashing collaborators.
func NewEngine(verifier crypto.SignatureVerifier, hasher crypto.EvidenceHasher) (*Engine, error) {
	if hasher == nil {
		return nil, ErrNoHasher
	}
	ev, err := fairness.NewEvaluator(verifier)
	if err != nil {
		return nil, err
	}
	return &Engine{evaluator: ev, verifier: verifier, hasher: hasher}, nil
}

// Evaluator exposes the compliance evaluator the engine wraps.
func (e *Engine) Evaluator() *fairness.Evaluator {
	return e.evaluator
}

// Audit classifies a record against its own context snapshot.
func (e *Engine) Audit(rec contracts.AuditRecord) (*Outcome, error) {
	return e.AuditWithContext(rec, rec.Context)
}

// AuditWithContext classifies a record against a re-supplied context. The committed
// evidence hash is checked against commit_hash(rc, rec.Recommendation), so a context
// that differs from the logged snapshot is a proof mismatch.
func (e *Engine) AuditWithContext(rec contracts.AuditRecord, rc contracts.RecommendationContext) (*Outcome, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	out := &Outcome{Findings: []Finding{}}
	if rec.EvidenceHash == "" {
		out.Result = ResultProofMissing
		out.Findings = append(out.Findings, integrityFinding(ResultProofMissing, "audit record carries no committed evidence hash"))
		return out, nil
	}

	recomputed, err := e.hasher.CommitHash(rc, rec.Recommendation)
	if err != nil {
		return nil, fmt.Errorf("audit: recompute evidence hash: %w", err)
	}
	out.RecomputedHash = recomputed
	if !crypto.HashesEqual(rec.EvidenceHash, recomputed) {
		return out.integrity(ResultProofMismatch,
			fmt.Sprintf("committed hash %s does not match recomputed %s", rec.EvidenceHash, recomputed)), nil
	}
	if TimestampFraud(rec.Timestamp, rc.Timestamp) {
		return out.integrity(ResultTimestampFraud,
			fmt.Sprintf("audited %s after context time", rec.Timestamp.Sub(rc.Timestamp))), nil
	}
	if !e.evaluator.PreferenceSignatureValid(rc.Preference) {
		return out.integrity(ResultInvalidPreferences,
			fmt.Sprintf("preference signature of %s does not verify", rc.Preference.OwnerID)), nil
	}
	if !e.evaluator.CatalogSignatureValid(rc.Catalog) {
		return out.integrity(ResultCatalogTampering,
			fmt.Sprintf("catalog signature of %s does not verify", rc.Catalog.CertifierID)), nil
	}

	verdict, err := e.evaluator.Evaluate(rc, rec.Recommendation)
	if err != nil {
		return nil, err
	}
	out.Verdict = verdict
	out.Findings = append(out.Findings, verdictFindings(verdict)...)

	switch {
	case e.evaluator.FastCheck(rc, rec.Recommendation):
		out.Result = ResultCompliant
	case verdict.Has(fairness.ReasonSuboptimal) || verdict.Has(fairness.ReasonProductNotInCatalog):
		out.Result = ResultSuboptimal
	case verdict.Has(fairness.ReasonDisclosure):
		out.Result = ResultUndisclosedBias
	default:
		out.Result = ResultIndeterminate
	}
	return out, nil
}

func (o *Outcome) integrity(r Result, detail string) *Outcome {
	o.Result = r
	o.Findings = append(o.Findings, integrityFinding(r, detail))
	return o
}

// TimestampFraud reports whether the audit timestamp trails the context timestamp by
// more than MaxTimestampSkew.
func TimestampFraud(auditedAt, contextAt time.Time) bool {
	return auditedAt.After(contextAt.Add(MaxTimestampSkew))
}

// FindingRecordSignature is the finding code for an audit record whose auditor
// signature does not verify.
const FindingRecordSignature = "RECORD_SIGNATURE_INVALID"

// RecordSignatureFinding checks the auditor signature on rec. Unsigned records yield
// no finding. The finding never changes the cascade result.
func (e *Engine) RecordSignatureFinding(rec contracts.AuditRecord) (Finding, bool) {
	if rec.Signature == "" {
		return Finding{}, false
	}
	payload, err := rec.SignablePayload()
	if err == nil && e.verifier.VerifySignature(rec.AuditorID, payload, rec.Signature) {
		return Finding{}, false
	}
	return Finding{
		Code:     FindingRecordSignature,
		Category: "integrity",
		Detail:   fmt.Sprintf("record signature does not verify for auditor %s", rec.AuditorID),
	}, true
}
