package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/recaudit/pkg/store/ledger"
)

// runLedgerCmd implements `recaudit ledger <verify|show>`.
func runLedgerCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: recaudit ledger <verify|show> [flags]")
		return 2
	}
	switch args[0] {
	case "verify":
		return runLedgerVerify(args[1:], stdout, stderr)
	case "show":
		return runLedgerShow(args[1:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown ledger command: %s\n", args[0])
		return 2
	}
}

func ledgerFlags(name string, sess *session, stderr io.Writer) (*flag.FlagSet, *storeFlags) {
	cmd := flag.NewFlagSet(name, flag.ContinueOnError)
	cmd.SetOutput(stderr)
	sf := &storeFlags{}
	cmd.StringVar(&sf.driver, "ledger-driver", sess.cfg.LedgerDriver, "Ledger driver: memory, sqlite or postgres")
	cmd.StringVar(&sf.dsn, "ledger-dsn", sess.cfg.LedgerDSN, "Ledger DSN")
	return cmd, sf
}

// runLedgerVerify walks the hash chain.
//
// Exit codes:
//
//	0 = chain intact
//	1 = chain broken
//	2 = runtime error
func runLedgerVerify(args []string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	sess, err := newSession(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer sess.close(ctx)

	cmd, sf := ledgerFlags("ledger verify", sess, stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	store, err := openLedger(ctx, sf.driver, sf.dsn)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	entries, err := store.All(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if err := store.Verify(ctx); err != nil {
		if errors.Is(err, ledger.ErrChainBroken) {
			_, _ = fmt.Fprintf(stdout, "❌ Ledger verification FAILED: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	head := ledger.GenesisHash
	if n := len(entries); n > 0 {
		head = entries[n-1].EntryHash
	}
	_, _ = fmt.Fprintf(stdout, "✅ Ledger verification PASSED\n")
	_, _ = fmt.Fprintf(stdout, "Entries: %d\n", len(entries))
	_, _ = fmt.Fprintf(stdout, "Head:    %s\n", head)
	return 0
}

// runLedgerShow prints the entries logged for one audit id.
func runLedgerShow(args []string, stdout, stderr io.Writer) int {
	ctx := context.Background()
	sess, err := newSession(ctx, stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer sess.close(ctx)

	cmd, sf := ledgerFlags("ledger show", sess, stderr)
	var auditID string
	cmd.StringVar(&auditID, "audit-id", "", "Audit id to show (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if auditID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --audit-id is required")
		return 2
	}

	store, err := openLedger(ctx, sf.driver, sf.dsn)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListByAudit(ctx, auditID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintf(stderr, "Error: no ledger entries for audit %s\n", auditID)
		return 1
	}
	if err := writeJSON(stdout, "", entries); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}
