//go:build property
// +build property

package audit_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
)

func genResult() gopter.Gen {
	return gen.IntRange(0, len(audit.AllResults())-1).Map(func(i int) audit.Result {
		return audit.AllResults()[i]
	})
}

// TestPenaltyMonotone: penalty never decreases as priors or affected users grow.
func TestPenaltyMonotone(t *testing.T) {
	calc, err := audit.NewPenaltyCalculator(audit.DefaultPenaltyTable())
	if err != nil {
		t.Fatal(err)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("monotone in prior offences", prop.ForAll(
		func(r audit.Result, priors, extra, users int) bool {
			return calc.Calculate(r, priors, users) <= calc.Calculate(r, priors+extra, users)
		},
		genResult(), gen.IntRange(0, 1000), gen.IntRange(0, 1000), gen.IntRange(0, 1_000_000),
	))

	properties.Property("monotone in affected users", prop.ForAll(
		func(r audit.Result, priors, users, extra int) bool {
			return calc.Calculate(r, priors, users) <= calc.Calculate(r, priors, users+extra)
		},
		genResult(), gen.IntRange(0, 1000), gen.IntRange(0, 1_000_000), gen.IntRange(0, 1_000_000),
	))

	properties.Property("linear in affected users below saturation", prop.ForAll(
		func(r audit.Result, users int) bool {
			return calc.Calculate(r, 0, 2*users) == 2*calc.Calculate(r, 0, users)
		},
		genResult(), gen.IntRange(1, 10_000),
	))

	properties.TestingRun(t)
}

// TestEnforcementLattice: no violation iff no action, and escalation is monotone.
func TestEnforcementLattice(t *testing.T) {
	d := audit.NewDecider(audit.DefaultReferralThreshold)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("not a violation iff action is none", prop.ForAll(
		func(r audit.Result, priors int, cumulative int64) bool {
			return r.IsViolation() == (d.Decide(r, priors, cumulative) != audit.ActionNone)
		},
		genResult(), gen.IntRange(0, 20), gen.Int64Range(0, 1_000_000_000),
	))

	properties.Property("more priors never lowers the tier", prop.ForAll(
		func(r audit.Result, priors, extra int, cumulative int64) bool {
			return d.Decide(r, priors, cumulative).Tier() <= d.Decide(r, priors+extra, cumulative).Tier()
		},
		genResult(), gen.IntRange(0, 20), gen.IntRange(0, 20), gen.Int64Range(0, 1_000_000_000),
	))

	properties.Property("higher severity never lowers the tier", prop.ForAll(
		func(a, b audit.Result, priors int, cumulative int64) bool {
			if b.Less(a) {
				a, b = b, a
			}
			if !a.IsViolation() {
				return true
			}
			return d.Decide(a, priors, cumulative).Tier() <= d.Decide(b, priors, cumulative).Tier()
		},
		genResult(), genResult(), gen.IntRange(0, 20), gen.Int64Range(0, 1_000_000_000),
	))

	properties.TestingRun(t)
}
