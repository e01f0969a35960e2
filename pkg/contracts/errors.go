// Package contracts defines the immutable input records consumed by the fairness and
// audit engines: products, catalogs, preferences, disclosures, recommendations and
// audit records.
//
// Records are produced and signed by external parties. The engines never mutate them.
// Validate methods reject malformed input, the only class of failure surfaced as an
// error. Policy and integrity violations are results, not errors.
package contracts

import (
	"errors"
	"fmt"
)

// ErrMalformedInput wraps every validation failure so callers can errors.Is on it.
var ErrMalformedInput = errors.New("contracts: malformed input")

// fieldErrors collects per-field validation failures.
type fieldErrors []error

func (f *fieldErrors) add(field, format string, args ...any) {
	*f = append(*f, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
}

func (f *fieldErrors) nest(prefix string, err error) {
	if err == nil {
		return
	}
	*f = append(*f, fmt.Errorf("%s: %w", prefix, err))
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedInput, errors.Join(f...))
}
