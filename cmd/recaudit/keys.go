package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
)

// trustFile is the keygen output and the --trust input.
type trustFile struct {
	Keys []trustedKey `json:"keys"`
}

type trustedKey struct {
	SignerID  string `json:"signer_id"`
	PublicKey string `json:"public_key"`
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func parseSeed(seedHex string) ([]byte, error) {
	if seedHex == "" {
		seedHex = os.Getenv("RECAUDIT_SEED")
	}
	if seedHex == "" {
		return nil, fmt.Errorf("a master seed is required (--seed or RECAUDIT_SEED)")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("seed is not hex: %w", err)
	}
	return seed, nil
}

// runKeygenCmd implements `recaudit keygen`.
//
// Derives one Ed25519 key per --id from the master seed and prints the public keys
// in the trust-file format accepted by --trust.
func runKeygenCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		seedHex string
		ids     listFlag
		out     string
	)
	cmd.StringVar(&seedHex, "seed", "", "Hex master seed, at least 16 bytes (default $RECAUDIT_SEED)")
	cmd.Var(&ids, "id", "Signer id to derive (repeatable, REQUIRED)")
	cmd.StringVar(&out, "out", "", "Write the trust file here instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(stderr, "Error: at least one --id is required")
		return 2
	}
	seed, err := parseSeed(seedHex)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	var tf trustFile
	for _, id := range ids {
		s, err := crypto.DeriveSigner(seed, id)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		tf.Keys = append(tf.Keys, trustedKey{SignerID: s.KeyID(), PublicKey: hex.EncodeToString(s.PublicKey())})
	}

	if err := writeJSON(stdout, out, tf); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

// loadTrust builds a keyring from a trust file.
func loadTrust(path string) (*crypto.Keyring, error) {
	if path == "" {
		return nil, fmt.Errorf("--trust is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tf trustFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	kr := crypto.NewKeyring()
	for _, k := range tf.Keys {
		if err := kr.TrustHex(k.SignerID, k.PublicKey); err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, k.SignerID, err)
		}
	}
	return kr, nil
}
