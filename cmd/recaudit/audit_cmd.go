package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/config"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
	"github.com/Mindburn-Labs/recaudit/pkg/schema"
	"github.com/Mindburn-Labs/recaudit/pkg/service"
)

// runRecordCmd implements `recaudit record`.
//
// Commits a context and recommendation into an audit record carrying the evidence
// hash. With --seed the record is signed by the auditor.
func runRecordCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("record", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		contextPath string
		recPath     string
		auditID     string
		platformID  string
		auditorID   string
		at          string
		seedHex     string
		out         string
	)
	cmd.StringVar(&contextPath, "context", "", "Path to the recommendation context (REQUIRED)")
	cmd.StringVar(&recPath, "recommendation", "", "Path to the recommendation (REQUIRED)")
	cmd.StringVar(&auditID, "audit-id", "", "Audit id (default: random UUID)")
	cmd.StringVar(&platformID, "platform", "", "Platform id (default $RECAUDIT_PLATFORM_ID)")
	cmd.StringVar(&auditorID, "auditor", "", "Auditor id (REQUIRED)")
	cmd.StringVar(&at, "at", "", "Audit timestamp, RFC 3339 (default: now)")
	cmd.StringVar(&seedHex, "seed", "", "Hex master seed; when set the record is signed by the auditor")
	cmd.StringVar(&out, "out", "", "Write the record here instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if contextPath == "" || recPath == "" || auditorID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --context, --recommendation and --auditor are required")
		return 2
	}

	var rc contracts.RecommendationContext
	if err := readDocument(contextPath, schema.Context, &rc); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	var rec contracts.Recommendation
	if err := readDocument(recPath, schema.Recommendation, &rec); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ts := time.Now().UTC()
	if at != "" {
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: --at: %v\n", err)
			return 2
		}
		ts = parsed
	}
	if auditID == "" {
		auditID = service.NewAuditID()
	}
	if platformID == "" {
		platformID = config.Load().PlatformID
	}

	hash, err := crypto.NewCanonicalHasher().CommitHash(rc, rec)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	record := contracts.AuditRecord{
		AuditID:        auditID,
		PlatformID:     platformID,
		Context:        rc,
		Recommendation: rec,
		EvidenceHash:   hash,
		AuditorID:      auditorID,
		Timestamp:      ts,
	}
	if err := record.Validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if seedHex != "" {
		seed, err := parseSeed(seedHex)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		signer, err := crypto.DeriveSigner(seed, auditorID)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if record.Signature, err = crypto.SignRecord(signer, record); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: sign record: %v\n", err)
			return 2
		}
	}

	if err := writeJSON(stdout, out, record); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// runAuditCmd implements `recaudit audit`.
//
// Exit codes:
//
//	0 = compliant or indeterminate
//	1 = violation
//	2 = runtime error or malformed input
func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	sess, err := newSession(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer sess.close(ctx)

	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		recordPath  string
		contextPath string
		trustPath   string
		seedHex     string
		priors      int
		cumulative  int64
		affected    int
		jsonOutput  bool
		sf          storeFlags
	)
	cmd.StringVar(&recordPath, "record", "", "Path to the audit record (REQUIRED)")
	cmd.StringVar(&contextPath, "context", "", "Re-supplied context to check against the committed hash")
	cmd.StringVar(&trustPath, "trust", "", "Trust file from keygen (REQUIRED)")
	cmd.StringVar(&seedHex, "seed", "", "Hex master seed; when set the report is signed by the record's auditor")
	cmd.IntVar(&priors, "priors", -1, "Prior offences (default: count from the ledger)")
	cmd.Int64Var(&cumulative, "cumulative", -1, "Cumulative prior penalty (default: sum from the ledger)")
	cmd.IntVar(&affected, "affected", 1, "Number of affected users")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the audit response as JSON")
	cmd.StringVar(&sf.driver, "ledger-driver", sess.cfg.LedgerDriver, "Ledger driver: memory, sqlite or postgres")
	cmd.StringVar(&sf.dsn, "ledger-dsn", sess.cfg.LedgerDSN, "Ledger DSN")
	cmd.StringVar(&sf.profile, "profile", sess.cfg.ProfilePath, "Policy profile (YAML)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if recordPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --record is required")
		return 2
	}

	keys, err := loadTrust(trustPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	var record contracts.AuditRecord
	if err := readDocument(recordPath, schema.AuditRecord, &record); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	req := service.AuditRequest{Record: record, AffectedUsers: affected}
	if contextPath != "" {
		var rc contracts.RecommendationContext
		if err := readDocument(contextPath, schema.Context, &rc); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		req.Context = &rc
	}

	var opts []service.Option
	if seedHex != "" {
		seed, err := parseSeed(seedHex)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		signer, err := crypto.DeriveSigner(seed, record.AuditorID)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		opts = append(opts, service.WithAuditor(signer))
	}

	svc, closeSvc, err := sess.openService(ctx, crypto.NewDispatchVerifier(keys), sf, opts...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer closeSvc()

	if priors < 0 || cumulative < 0 {
		h, err := svc.PlatformHistory(ctx, record.PlatformID, record.AuditID)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: ledger history: %v\n", err)
			return 2
		}
		if priors < 0 {
			priors = h.PriorOffenses
		}
		if cumulative < 0 {
			cumulative = h.CumulativePenalty
		}
	}
	req.PriorOffenses = priors
	req.CumulativePenalty = cumulative

	resp, err := svc.Audit(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		if err := writeJSON(stdout, "", resp); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		printReport(stdout, resp.Report, resp.ReportEntry.Sequence)
	}
	if resp.Report.Result.IsViolation() {
		return 1
	}
	return 0
}
