package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/recaudit/pkg/config"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
	"github.com/Mindburn-Labs/recaudit/pkg/schema"
)

// runEvaluateCmd implements `recaudit evaluate`.
//
// Exit codes:
//
//	0 = compliant
//	1 = not compliant
//	2 = runtime error or malformed input
func runEvaluateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		contextPath string
		recPath     string
		listPath    string
		trustPath   string
		jsonOutput  bool
	)
	cmd.StringVar(&contextPath, "context", "", "Path to the recommendation context (REQUIRED)")
	cmd.StringVar(&recPath, "recommendation", "", "Path to a single recommendation")
	cmd.StringVar(&listPath, "list", "", "Path to a JSON array of ranked recommendations")
	cmd.StringVar(&trustPath, "trust", "", "Trust file from keygen (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the verdict as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if contextPath == "" || (recPath == "") == (listPath == "") {
		_, _ = fmt.Fprintln(stderr, "Error: --context and exactly one of --recommendation or --list are required")
		return 2
	}

	keys, err := loadTrust(trustPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	var rc contracts.RecommendationContext
	if err := readDocument(contextPath, schema.Context, &rc); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	sess, err := newSession(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer sess.close(ctx)

	// Evaluation never touches the ledger.
	svc, closeSvc, err := sess.openService(ctx, crypto.NewDispatchVerifier(keys), storeFlags{driver: config.LedgerMemory, profile: sess.cfg.ProfilePath})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer closeSvc()

	if listPath != "" {
		recs, err := readDocumentList[contracts.Recommendation](listPath, schema.Recommendation)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		lv, err := svc.EvaluateList(ctx, rc, recs)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		if jsonOutput {
			if err := writeJSON(stdout, "", lv); err != nil {
				_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
				return 2
			}
		} else {
			printListVerdict(stdout, lv.Compliant, lv.Reasons, lv.Items)
		}
		if !lv.Compliant {
			return 1
		}
		return 0
	}

	var rec contracts.Recommendation
	if err := readDocument(recPath, schema.Recommendation, &rec); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	v, err := svc.Evaluate(ctx, rc, rec)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		if err := writeJSON(stdout, "", v); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		printVerdict(stdout, v)
	}
	if !v.Compliant {
		return 1
	}
	return 0
}
