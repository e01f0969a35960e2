package main

import (
	"fmt"
	"io"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
)

func printVerdict(w io.Writer, v *fairness.Verdict) {
	if v.Compliant {
		_, _ = fmt.Fprintf(w, "✅ COMPLIANT: %s (rank %d, utility %d)\n", v.ProductID, v.Rank, v.Utility)
		return
	}
	_, _ = fmt.Fprintf(w, "❌ NON-COMPLIANT: %s (rank %d, utility %d, best %d)\n", v.ProductID, v.Rank, v.Utility, v.BestUtility)
	for _, r := range v.Reasons {
		_, _ = fmt.Fprintf(w, "  - %s [%s]\n", r, r.Category())
	}
}

func printListVerdict(w io.Writer, compliant bool, reasons []fairness.Reason, items []*fairness.Verdict) {
	if compliant {
		_, _ = fmt.Fprintf(w, "✅ COMPLIANT list (%d items)\n", len(items))
	} else {
		_, _ = fmt.Fprintf(w, "❌ NON-COMPLIANT list (%d items)\n", len(items))
		for _, r := range reasons {
			_, _ = fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	for _, it := range items {
		status := "ok"
		if !it.Compliant {
			status = fmt.Sprint(it.Reasons)
		}
		_, _ = fmt.Fprintf(w, "  #%d %s utility=%d %s\n", it.Rank, it.ProductID, it.Utility, status)
	}
}

func printReport(w io.Writer, r *audit.AuditReport, sequence uint64) {
	icon := "✅"
	if r.Result.IsViolation() {
		icon = "❌"
	}
	_, _ = fmt.Fprintf(w, "%s %s: audit %s (platform %s)\n", icon, r.Result, r.AuditID, r.PlatformID)
	_, _ = fmt.Fprintf(w, "Report:  %s\n", r.ReportID)
	_, _ = fmt.Fprintf(w, "Penalty: %d\n", r.Penalty)
	_, _ = fmt.Fprintf(w, "Action:  %s\n", r.Action)
	_, _ = fmt.Fprintf(w, "Ledger:  #%d\n", sequence)
	for _, f := range r.Findings {
		_, _ = fmt.Fprintf(w, "  - %s [%s] %s\n", f.Code, f.Category, f.Detail)
	}
	for _, step := range r.Remediation {
		_, _ = fmt.Fprintf(w, "  > %s\n", step)
	}
}
