// Package remediation derives remediation steps for an audit report from CEL rules.
//
// Rules are evaluated against:
//
//	result          string        audit result name, e.g. "SUBOPTIMAL"
//	severity        int           result severity rank
//	penalty         int           penalty in minor units
//	action          string        enforcement action name
//	reasons         list(string)  finding codes
//	prior_offenses  int
package remediation

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
)

var (
	// ErrInvalidRule is returned for rules that fail to compile or are not boolean.
	ErrInvalidRule = errors.New("remediation: invalid rule")
	// ErrDuplicateRule is returned when two rules share an id.
	ErrDuplicateRule = errors.New("remediation: duplicate rule id")
)

// Rule appends Text to the remediation list when When evaluates to true.
type Rule struct {
	ID   string `json:"id" yaml:"id"`
	When string `json:"when" yaml:"when"`
	Text string `json:"text" yaml:"text"`
}

// DefaultRules are used when a policy profile declares none.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:   "rerank-by-utility",
			When: `result == "SUBOPTIMAL"`,
			Text: "Re-rank served recommendations by verified utility before display.",
		},
		{
			ID:   "fix-disclosures",
			When: `"DISCLOSURE_NON_COMPLIANT" in reasons`,
			Text: "Show every commercial relationship to the user at or above the required prominence, before the recommendation.",
		},
		{
			ID:   "review-commercial-signals",
			When: `"MANIPULATION_SUSPECTED" in reasons`,
			Text: "Remove commercial incentives from ranking signals; a better product without a commercial relationship was available.",
		},
		{
			ID:   "restore-evidence",
			When: `result in ["PROOF_MISSING", "PROOF_MISMATCH", "TIMESTAMP_FRAUD"]`,
			Text: "Re-commit evidence hashes at recommendation time and audit within one second of the context timestamp.",
		},
		{
			ID:   "re-certify-inputs",
			When: `result in ["CATALOG_TAMPERING", "INVALID_PREFERENCES"]`,
			Text: "Serve only catalogs and preferences carrying valid signatures from their certifier and owner.",
		},
		{
			ID:   "corrective-plan",
			When: `prior_offenses >= 2 && severity >= 2`,
			Text: "File a corrective action plan covering all repeat offences.",
		},
		{
			ID:   "suspend-serving",
			When: `action in ["SUSPEND", "REVOKE", "CRIMINAL_REFERRAL"]`,
			Text: "Stop serving recommendations until the regulator lifts the enforcement action.",
		},
	}
}

// Input is the audit outcome a rule set is evaluated against.
type Input struct {
	Result        audit.Result
	Penalty       int64
	Action        audit.Action
	Reasons       []string
	PriorOffenses int
}

func (in Input) activation() map[string]any {
	reasons := in.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return map[string]any{
		"result":         in.Result.String(),
		"severity":       int64(in.Result.Severity()),
		"penalty":        in.Penalty,
		"action":         in.Action.String(),
		"reasons":        reasons,
		"prior_offenses": int64(in.PriorOffenses),
	}
}

type compiledRule struct {
	Rule
	prg cel.Program
}

// Engine holds a compiled rule set. Safe for concurrent use.
type Engine struct {
	rules []compiledRule
}

// NewEngine compiles rules once. Every rule must compile to a boolean expression.
func NewEngine(rules []Rule) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("result", cel.StringType),
		cel.Variable("severity", cel.IntType),
		cel.Variable("penalty", cel.IntType),
		cel.Variable("action", cel.StringType),
		cel.Variable("reasons", cel.ListType(cel.StringType)),
		cel.Variable("prior_offenses", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("remediation: cel environment: %w", err)
	}

	seen := make(map[string]struct{}, len(rules))
	e := &Engine{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = struct{}{}

		ast, issues := env.Compile(r.When)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidRule, r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return nil, fmt.Errorf("%w %s: expression yields %s, want bool", ErrInvalidRule, r.ID, ast.OutputType())
		}
		prg, err := env.Program(ast, cel.CostLimit(10000), cel.InterruptCheckFrequency(100))
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrInvalidRule, r.ID, err)
		}
		e.rules = append(e.rules, compiledRule{Rule: r, prg: prg})
	}
	return e, nil
}

// Rules returns the rule definitions in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Rule
	}
	return out
}

// Remediate returns the text of every matching rule, in rule order.
func (e *Engine) Remediate(in Input) ([]string, error) {
	act := in.activation()
	out := []string{}
	for _, r := range e.rules {
		val, _, err := r.prg.Eval(act)
		if err != nil {
			return nil, fmt.Errorf("remediation: rule %s: %w", r.ID, err)
		}
		matched, ok := val.Value().(bool)
		if !ok {
			return nil, fmt.Errorf("remediation: rule %s: result not bool", r.ID)
		}
		if matched {
			out = append(out, r.Text)
		}
	}
	return out, nil
}
