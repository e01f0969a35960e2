package audit

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
)

// ErrInvalidPenaltyTable is returned for tables that break the severity ordering.
var ErrInvalidPenaltyTable = errors.New("audit: invalid penalty table")

// DefaultReferralThreshold is the cumulative penalty (minor units) at which the most
// severe violations are referred for prosecution.
const DefaultReferralThreshold int64 = 100_000_000

// PenaltyTable holds the base penalty, in minor currency units, for every result.
type PenaltyTable map[Result]int64

// DefaultPenaltyTable returns the built-in base penalties.
func DefaultPenaltyTable() PenaltyTable {
	return PenaltyTable{
		ResultCompliant:          0,
		ResultIndeterminate:      0,
		ResultProofMissing:       100_000,
		ResultSuboptimal:         500_000,
		ResultUndisclosedBias:    1_000_000,
		ResultProofMismatch:      2_500_000,
		ResultTimestampFraud:     5_000_000,
		ResultCatalogTampering:   10_000_000,
		ResultInvalidPreferences: 25_000_000,
	}
}

// Validate requires an entry for every result, zero for non-violations, no negative
// values, and base penalties non-decreasing in severity.
func (t PenaltyTable) Validate() error {
	var errs []error
	prev := int64(0)
	for _, r := range AllResults() {
		v, ok := t[r]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("%s: missing", r))
			continue
		case v < 0:
			errs = append(errs, fmt.Errorf("%s: negative base penalty %d", r, v))
		case !r.IsViolation() && v != 0:
			errs = append(errs, fmt.Errorf("%s: must be 0, got %d", r, v))
		case v < prev:
			errs = append(errs, fmt.Errorf("%s: base penalty %d below less severe result (%d)", r, v, prev))
		}
		if v > prev {
			prev = v
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPenaltyTable, errors.Join(errs...))
	}
	return nil
}

// Base returns the base penalty for r.
func (t PenaltyTable) Base(r Result) int64 {
	return t[r]
}

// PenaltyCalculator computes base * (1 + priors) * max(1, affected).
type PenaltyCalculator struct {
	table PenaltyTable
}

// NewPenaltyCalculator validates and copies the table.
func NewPenaltyCalculator(t PenaltyTable) (*PenaltyCalculator, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	cp := make(PenaltyTable, len(t))
	for k, v := range t {
		cp[k] = v
	}
	return &PenaltyCalculator{table: cp}, nil
}

// Table returns a copy of the base penalty table.
func (c *PenaltyCalculator) Table() PenaltyTable {
	cp := make(PenaltyTable, len(c.table))
	for k, v := range c.table {
		cp[k] = v
	}
	return cp
}

// Calculate returns the penalty. Negative counts are treated as 0 and the product
// saturates at math.MaxInt64.
func (c *PenaltyCalculator) Calculate(r Result, priorOffenses, affectedUsers int) int64 {
	if priorOffenses < 0 {
		priorOffenses = 0
	}
	if affectedUsers < 1 {
		affectedUsers = 1
	}
	multiplier := int64(priorOffenses)
	if multiplier < math.MaxInt64 {
		multiplier++
	}
	p := saturatingMul(c.table.Base(r), multiplier)
	return saturatingMul(p, int64(affectedUsers))
}

// saturatingMul multiplies non-negative operands, clamping at math.MaxInt64.
func saturatingMul(a, b int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

// SaturatingAdd adds non-negative penalties, clamping at math.MaxInt64.
func SaturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
