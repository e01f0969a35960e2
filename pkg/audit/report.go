package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
)

// ErrReportSigned is returned when signing a report that already carries a signature.
var ErrReportSigned = errors.New("audit: report already signed")

// reportNamespace seeds deterministic report identifiers.
var reportNamespace = uuid.MustParse("6f1c3c0e-5b1a-4f53-9a3e-2d7b9f0c8e41")

// AuditReport is the immutable, signable outcome of one audit.
type AuditReport struct {
	ReportID      string    `json:"report_id"`
	AuditID       string    `json:"audit_id"`
	PlatformID    string    `json:"platform_id"`
	Result        Result    `json:"result"`
	Severity      int       `json:"severity"`
	Penalty       int64     `json:"penalty"`
	Action        Action    `json:"action"`
	PriorOffenses int       `json:"prior_offenses"`
	AffectedUsers int       `json:"affected_users"`
	Findings      []Finding `json:"findings"`
	Remediation   []string  `json:"remediation"`
	Timestamp     time.Time `json:"timestamp"`
	AuditorID     string    `json:"auditor_id,omitempty"`
	Signature     string    `json:"signature,omitempty"`
}

// SignablePayload returns the canonical bytes the auditor signs.
func (r AuditReport) SignablePayload() ([]byte, error) {
	r.Signature = ""
	return canonicalize.JCS(r)
}

// Sign fills the auditor signature slot. The signer's key id becomes the auditor id.
func (r *AuditReport) Sign(s crypto.Signer) error {
	if r.Signature != "" {
		return ErrReportSigned
	}
	r.AuditorID = s.KeyID()
	sig, err := crypto.SignRecord(s, *r)
	if err != nil {
		r.AuditorID = ""
		return err
	}
	r.Signature = sig
	return nil
}

// VerifyReport checks the auditor signature on r.
func VerifyReport(v crypto.SignatureVerifier, r AuditReport) bool {
	payload, err := r.SignablePayload()
	if err != nil {
		return false
	}
	return v.VerifySignature(r.AuditorID, payload, r.Signature)
}

// ReportInput is everything the builder assembles into a report.
type ReportInput struct {
	AuditID       string
	PlatformID    string
	Result        Result
	Penalty       int64
	Action        Action
	PriorOffenses int
	AffectedUsers int
	Findings      []Finding
	Remediation   []string
	Timestamp     time.Time
}

// BuildReport assembles a report. It is a pure function: the report id is derived
// from the audit id, result and timestamp, and the signature slot is left empty.
func BuildReport(in ReportInput) *AuditReport {
	findings := append([]Finding{}, in.Findings...)
	remediation := append([]string{}, in.Remediation...)
	ts := in.Timestamp.UTC()
	return &AuditReport{
		ReportID:      uuid.NewSHA1(reportNamespace, []byte(in.AuditID+"|"+in.Result.String()+"|"+ts.Format(time.RFC3339Nano))).String(),
		AuditID:       in.AuditID,
		PlatformID:    in.PlatformID,
		Result:        in.Result,
		Severity:      in.Result.Severity(),
		Penalty:       in.Penalty,
		Action:        in.Action,
		PriorOffenses: in.PriorOffenses,
		AffectedUsers: in.AffectedUsers,
		Findings:      findings,
		Remediation:   remediation,
		Timestamp:     ts,
	}
}
