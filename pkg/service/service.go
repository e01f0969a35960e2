// Package service wires the compliance evaluator, the audit engine, the penalty and
// enforcement policy, remediation rules, the verdict cache and the audit ledger into
// the operations an operator runs: evaluate, audit and batch audit.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
	"github.com/Mindburn-Labs/recaudit/pkg/audit/remediation"
	"github.com/Mindburn-Labs/recaudit/pkg/config"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
	"github.com/Mindburn-Labs/recaudit/pkg/observability"
	"github.com/Mindburn-Labs/recaudit/pkg/store/ledger"
	"github.com/Mindburn-Labs/recaudit/pkg/store/verdictcache"
)

// DefaultBatchConcurrency bounds parallel audits in AuditBatch.
const DefaultBatchConcurrency = 8

// ErrNoLedger is returned when a service is built without a ledger.
var ErrNoLedger = errors.New("service: ledger is required")

// Service runs evaluations and audits. Safe for concurrent use.
type Service struct {
	engine      *audit.Engine
	hasher      crypto.EvidenceHasher
	penalties   *audit.PenaltyCalculator
	decider     *audit.Decider
	remediation *remediation.Engine
	ledger      ledger.Ledger
	cache       verdictcache.Cache
	telemetry   *observability.Provider
	auditor     crypto.Signer
	logger      *slog.Logger
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithCache replaces the default in-memory verdict cache.
func WithCache(c verdictcache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithHasher replaces the canonical evidence hasher.
func WithHasher(h crypto.EvidenceHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithTelemetry records spans and metrics through p.
func WithTelemetry(p *observability.Provider) Option {
	return func(s *Service) {
		s.telemetry = p
	}
}

// WithAuditor signs every report with signer before it is logged.
func WithAuditor(signer crypto.Signer) Option {
	return func(s *Service) {
		s.auditor = signer
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithBatchConcurrency bounds parallel audits. Values below 1 are ignored.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New builds a service. A nil policy selects the built-in policy.
func New(verifier crypto.SignatureVerifier, policy *config.Policy, store ledger.Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNoLedger
	}
	if policy == nil {
		policy = config.DefaultPolicy()
	}

	s := &Service{
		hasher:      crypto.NewCanonicalHasher(),
		ledger:      store,
		cache:       verdictcache.NewMemory(1024),
		logger:      slog.Default(),
		concurrency: DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "service")

	if s.telemetry == nil {
		p, err := observability.New(context.Background(), &observability.Config{Enabled: false})
		if err != nil {
			return nil, err
		}
		s.telemetry = p
	}

	engine, err := audit.NewEngine(verifier, s.hasher)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	penalties, err := audit.NewPenaltyCalculator(policy.Penalties)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	rules, err := remediation.NewEngine(policy.Rules)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}

	s.engine = engine
	s.penalties = penalties
	s.decider = audit.NewDecider(policy.ReferralThreshold)
	s.remediation = rules
	return s, nil
}

// Ledger returns the audit ledger.
func (s *Service) Ledger() ledger.Ledger {
	return s.ledger
}

// Evaluate returns the compliance verdict for one recommendation. Verdicts are
// cached by evidence hash and their signature checks are re-run on every hit, so a
// revoked or newly trusted key takes effect immediately. Cache failures fall back to
// evaluation.
func (s *Service) Evaluate(ctx context.Context, rc contracts.RecommendationContext, rec contracts.Recommendation) (v *fairness.Verdict, err error) {
	ctx, done := s.telemetry.TrackOperation(ctx, "recaudit.evaluate",
		observability.RecommendationAttributes(rec.ProductID, rec.Rank)...)
	defer func() { done(err) }()
	start := time.Now()

	key, hashErr := s.hasher.CommitHash(rc, rec)
	if hashErr != nil {
		s.logger.WarnContext(ctx, "evidence hash failed, skipping cache", "error", hashErr)
		key = ""
	}

	if key != "" {
		cached, ok, cacheErr := s.cache.Get(ctx, key)
		switch {
		case cacheErr != nil:
			s.logger.WarnContext(ctx, "verdict cache read failed", "evidence_hash", key, "error", cacheErr)
		case ok:
			v = s.engine.Evaluator().Reverify(rc, cached)
			s.telemetry.RecordEvaluation(ctx, v.Compliant, true, time.Since(start))
			return v, nil
		}
	}

	v, err = s.engine.Evaluator().Evaluate(rc, rec)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if cacheErr := s.cache.Put(ctx, key, v); cacheErr != nil {
			s.logger.WarnContext(ctx, "verdict cache write failed", "evidence_hash", key, "error", cacheErr)
		}
	}

	s.telemetry.RecordEvaluation(ctx, v.Compliant, false, time.Since(start))
	s.logger.InfoContext(ctx, "recommendation evaluated",
		"product_id", rec.ProductID,
		"rank", rec.Rank,
		"compliant", v.Compliant,
		"reasons", v.Reasons,
	)
	return v, nil
}

// EvaluateList returns the verdict for a ranked list of recommendations.
func (s *Service) EvaluateList(ctx context.Context, rc contracts.RecommendationContext, recs []contracts.Recommendation) (lv *fairness.ListVerdict, err error) {
	ctx, done := s.telemetry.TrackOperation(ctx, "recaudit.evaluate_list")
	defer func() { done(err) }()

	lv, err = s.engine.Evaluator().EvaluateList(rc, recs)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "recommendation list evaluated",
		"items", len(recs),
		"compliant", lv.Compliant,
		"reasons", lv.Reasons,
	)
	return lv, nil
}

// AuditRequest is one record to audit plus the platform's offence history.
type AuditRequest struct {
	Record contracts.AuditRecord
	// Context, when set, is re-supplied evidence checked against the committed hash
	// instead of the record's own snapshot.
	Context           *contracts.RecommendationContext
	PriorOffenses     int
	AffectedUsers     int
	CumulativePenalty int64 // penalties already imposed on the platform
}

// AuditResponse is everything one audit produced.
type AuditResponse struct {
	Outcome     *audit.Outcome     `json:"outcome"`
	Report      *audit.AuditReport `json:"report"`
	RecordEntry *ledger.Entry      `json:"record_entry"`
	ReportEntry *ledger.Entry      `json:"report_entry"`
}

// NewAuditID returns a fresh audit identifier.
func NewAuditID() string {
	return uuid.NewString()
}

// Audit classifies the record, prices the violation, decides enforcement, derives
// remediation, builds the report and appends record and report to the ledger.
// Re-auditing identical input is idempotent.
func (s *Service) Audit(ctx context.Context, req AuditRequest) (resp *AuditResponse, err error) {
	rec := req.Record
	ctx, done := s.telemetry.TrackOperation(ctx, "recaudit.audit",
		observability.AuditAttributes(rec.AuditID, rec.PlatformID)...)
	defer func() { done(err) }()

	rc := rec.Context
	if req.Context != nil {
		rc = *req.Context
	}
	outcome, err := s.engine.AuditWithContext(rec, rc)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", rec.AuditID, err)
	}

	penalty := s.penalties.Calculate(outcome.Result, req.PriorOffenses, req.AffectedUsers)
	cumulative := audit.SaturatingAdd(max(req.CumulativePenalty, 0), penalty)
	action := s.decider.Decide(outcome.Result, req.PriorOffenses, cumulative)

	findings := outcome.Findings
	if f, bad := s.engine.RecordSignatureFinding(rec); bad {
		s.logger.WarnContext(ctx, "audit record signature invalid", "audit_id", rec.AuditID, "auditor_id", rec.AuditorID)
		findings = append(append([]audit.Finding{}, findings...), f)
	}
	reasons := make([]string, 0, len(findings))
	for _, f := range findings {
		reasons = append(reasons, f.Code)
	}
	steps, err := s.remediation.Remediate(remediation.Input{
		Result:        outcome.Result,
		Penalty:       penalty,
		Action:        action,
		Reasons:       reasons,
		PriorOffenses: req.PriorOffenses,
	})
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", rec.AuditID, err)
	}

	report := audit.BuildReport(audit.ReportInput{
		AuditID:       rec.AuditID,
		PlatformID:    rec.PlatformID,
		Result:        outcome.Result,
		Penalty:       penalty,
		Action:        action,
		PriorOffenses: req.PriorOffenses,
		AffectedUsers: req.AffectedUsers,
		Findings:      findings,
		Remediation:   steps,
		Timestamp:     rec.Timestamp,
	})
	if s.auditor != nil {
		if err := report.Sign(s.auditor); err != nil {
			return nil, fmt.Errorf("sign report %s: %w", rec.AuditID, err)
		}
	}

	// Both keys are checked before either is written.
	if err := ledger.CheckAppend(ctx, s.ledger, rec.AuditID, ledger.KindRecord, rec); err != nil {
		return nil, fmt.Errorf("ledger append record %s: %w", rec.AuditID, err)
	}
	if err := ledger.CheckAppend(ctx, s.ledger, rec.AuditID, ledger.KindReport, report); err != nil {
		return nil, fmt.Errorf("ledger append report %s: %w", rec.AuditID, err)
	}
	recordEntry, err := s.ledger.Append(ctx, rec.AuditID, ledger.KindRecord, rec)
	if err != nil {
		return nil, fmt.Errorf("ledger append record %s: %w", rec.AuditID, err)
	}
	reportEntry, err := s.ledger.Append(ctx, rec.AuditID, ledger.KindReport, report)
	if err != nil {
		return nil, fmt.Errorf("ledger append report %s: %w", rec.AuditID, err)
	}

	s.telemetry.RecordAudit(ctx, outcome.Result.String(), action.String())
	logFn := s.logger.InfoContext
	if outcome.Result.IsViolation() {
		logFn = s.logger.WarnContext
	}
	logFn(ctx, "audit completed",
		"audit_id", rec.AuditID,
		"platform_id", rec.PlatformID,
		"result", outcome.Result.String(),
		"penalty", penalty,
		"action", action.String(),
		"ledger_sequence", reportEntry.Sequence,
	)

	return &AuditResponse{
		Outcome:     outcome,
		Report:      report,
		RecordEntry: recordEntry,
		ReportEntry: reportEntry,
	}, nil
}

// AuditBatch audits independent records in parallel. Responses are in request
// order. The first failure cancels the remaining audits and is returned.
func (s *Service) AuditBatch(ctx context.Context, reqs []AuditRequest) ([]*AuditResponse, error) {
	out := make([]*AuditResponse, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			resp, err := s.Audit(ctx, reqs[i])
			if err != nil {
				return err
			}
			out[i] = resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// History is a platform's record of previous violations in the ledger.
type History struct {
	PriorOffenses     int
	CumulativePenalty int64
}

// PlatformHistory counts violating reports logged for platformID, skipping
// excludeAuditID so a re-audit does not count itself.
func (s *Service) PlatformHistory(ctx context.Context, platformID, excludeAuditID string) (History, error) {
	entries, err := s.ledger.All(ctx)
	if err != nil {
		return History{}, err
	}
	var h History
	for _, e := range entries {
		if e.Kind != ledger.KindReport || e.AuditID == excludeAuditID {
			continue
		}
		var r audit.AuditReport
		if err := e.Decode(&r); err != nil {
			return History{}, fmt.Errorf("decode report %s: %w", e.AuditID, err)
		}
		if r.PlatformID != platformID || !r.Result.IsViolation() {
			continue
		}
		h.PriorOffenses++
		h.CumulativePenalty = audit.SaturatingAdd(h.CumulativePenalty, r.Penalty)
	}
	return h, nil
}

// VerifyLedger walks the ledger hash chain.
func (s *Service) VerifyLedger(ctx context.Context) (err error) {
	ctx, done := s.telemetry.TrackOperation(ctx, "recaudit.ledger_verify")
	defer func() { done(err) }()
	return s.ledger.Verify(ctx)
}
