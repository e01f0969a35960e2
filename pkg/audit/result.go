// Package audit classifies logged recommendation evidence and derives the regulatory
// consequence: penalty, enforcement action and a signable report.
//
// The engine is a pure function of its inputs. Integrity failures (hash, timestamp,
// signatures) always outrank substantive fairness failures.
package audit

import (
	"errors"
	"fmt"
)

// ErrUnknownResult is returned when parsing an unrecognised result name.
var ErrUnknownResult = errors.New("audit: unknown result")

// Result is the outcome of auditing one record. Values are ordered by severity.
type Result int

const (
	ResultCompliant Result = iota
	ResultIndeterminate
	ResultProofMissing
	ResultSuboptimal
	ResultUndisclosedBias
	ResultProofMismatch
	ResultTimestampFraud
	ResultCatalogTampering
	ResultInvalidPreferences
)

// AllResults lists every result in ascending severity.
func AllResults() []Result {
	return []Result{
		ResultCompliant,
		ResultIndeterminate,
		ResultProofMissing,
		ResultSuboptimal,
		ResultUndisclosedBias,
		ResultProofMismatch,
		ResultTimestampFraud,
		ResultCatalogTampering,
		ResultInvalidPreferences,
	}
}

// Severity is the rank of r in the total severity order, or -1 for unknown values.
func (r Result) Severity() int {
	switch r {
	case ResultCompliant:
		return 0
	case ResultIndeterminate:
		return 1
	case ResultProofMissing:
		return 2
	case ResultSuboptimal:
		return 3
	case ResultUndisclosedBias:
		return 4
	case ResultProofMismatch:
		return 5
	case ResultTimestampFraud:
		return 6
	case ResultCatalogTampering:
		return 7
	case ResultInvalidPreferences:
		return 8
	default:
		return -1
	}
}

// Valid reports whether r is one of the nine results.
func (r Result) Valid() bool {
	return r.Severity() >= 0
}

// IsViolation reports whether r requires enforcement.
func (r Result) IsViolation() bool {
	return r.Valid() && r != ResultCompliant && r != ResultIndeterminate
}

// IsIntegrityFailure reports whether r stems from tampered or missing evidence.
func (r Result) IsIntegrityFailure() bool {
	switch r {
	case ResultProofMissing, ResultProofMismatch, ResultTimestampFraud,
		ResultCatalogTampering, ResultInvalidPreferences:
		return true
	}
	return false
}

// Less orders results by severity.
func (r Result) Less(o Result) bool {
	return r.Severity() < o.Severity()
}

func (r Result) String() string {
	switch r {
	case ResultCompliant:
		return "COMPLIANT"
	case ResultIndeterminate:
		return "INDETERMINATE"
	case ResultProofMissing:
		return "PROOF_MISSING"
	case ResultSuboptimal:
		return "SUBOPTIMAL"
	case ResultUndisclosedBias:
		return "UNDISCLOSED_BIAS"
	case ResultProofMismatch:
		return "PROOF_MISMATCH"
	case ResultTimestampFraud:
		return "TIMESTAMP_FRAUD"
	case ResultCatalogTampering:
		return "CATALOG_TAMPERING"
	case ResultInvalidPreferences:
		return "INVALID_PREFERENCES"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ParseResult is the inverse of String.
func ParseResult(s string) (Result, error) {
	for _, r := range AllResults() {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownResult, s)
}

func (r Result) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownResult, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(b []byte) error {
	v, err := ParseResult(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
