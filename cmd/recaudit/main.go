package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Mindburn-Labs/recaudit/pkg/config"
	"github.com/Mindburn-Labs/recaudit/pkg/observability"
	"github.com/Mindburn-Labs/recaudit/pkg/schema"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0-dev"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
//
// Exit codes:
//
//	0 = pass
//	1 = violation found
//	2 = runtime error or malformed input
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "keygen":
		return runKeygenCmd(args[2:], stdout, stderr)
	case "sign":
		return runSignCmd(args[2:], stdout, stderr)
	case "record":
		return runRecordCmd(args[2:], stdout, stderr)
	case "evaluate":
		return runEvaluateCmd(args[2:], stdout, stderr)
	case "audit":
		return runAuditCmd(args[2:], stdout, stderr)
	case "ledger":
		return runLedgerCmd(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "recaudit %s\n", Version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintf(w, "recaudit %s\n\n", Version)
	_, _ = fmt.Fprintln(w, "USAGE:")
	_, _ = fmt.Fprintln(w, "  recaudit <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "COMMANDS:")
	for _, c := range [][2]string{
		{"keygen", "Derive party keys from a master seed and print their public keys"},
		{"sign", "Sign a preference, catalog or disclosure document"},
		{"record", "Commit a context and recommendation into an audit record"},
		{"evaluate", "Print the compliance verdict for a recommendation or ranked list"},
		{"audit", "Audit a record, price it, and append it to the ledger"},
		{"ledger", "Inspect the audit ledger (verify, show)"},
		{"version", "Print the version"},
	} {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", c[0], c[1])
	}
}

// session holds what every command derives from the environment.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *observability.Provider
}

func newSession(ctx context.Context, stderr io.Writer) (*session, error) {
	cfg := config.Load()
	logger := observability.NewLoggerTo(stderr, cfg.LogLevel, cfg.LogFormat)

	otelCfg := observability.DefaultConfig()
	otelCfg.Enabled = cfg.OTelEnabled
	otelCfg.OTLPEndpoint = cfg.OTelEndpoint
	otelCfg.ServiceVersion = Version
	telemetry, err := observability.New(ctx, otelCfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, telemetry: telemetry}, nil
}

func (s *session) close(ctx context.Context) {
	_ = s.telemetry.Shutdown(ctx)
}

// readDocument reads a JSON file, validates it against its schema and decodes it.
func readDocument(path string, doc schema.Document, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := schema.Decode(doc, raw, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// readDocumentList reads a JSON array and validates every element as doc.
func readDocumentList[T any](path string, doc schema.Document) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array: %w", path, err)
	}
	out := make([]T, len(items))
	for i, item := range items {
		if err := schema.Decode(doc, item, &out[i]); err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
	}
	return out, nil
}

// writeJSON writes v as indented JSON to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
