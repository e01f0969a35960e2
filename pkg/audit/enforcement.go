package audit

import (
	"errors"
	"fmt"
)

// ErrUnknownAction is returned when parsing an unrecognised action name.
var ErrUnknownAction = errors.New("audit: unknown enforcement action")

// Action is an enforcement action. Values are ordered by escalation.
type Action int

const (
	ActionNone Action = iota
	ActionWarning
	ActionFine
	ActionMandatoryAudit
	ActionSuspend
	ActionRevoke
	ActionCriminalReferral
)

// AllActions lists every action in ascending escalation.
func AllActions() []Action {
	return []Action{
		ActionNone,
		ActionWarning,
		ActionFine,
		ActionMandatoryAudit,
		ActionSuspend,
		ActionRevoke,
		ActionCriminalReferral,
	}
}

// Tier is the escalation rank of a, or -1 for unknown values.
func (a Action) Tier() int {
	switch a {
	case ActionNone:
		return 0
	case ActionWarning:
		return 1
	case ActionFine:
		return 2
	case ActionMandatoryAudit:
		return 3
	case ActionSuspend:
		return 4
	case ActionRevoke:
		return 5
	case ActionCriminalReferral:
		return 6
	default:
		return -1
	}
}

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionWarning:
		return "WARNING"
	case ActionFine:
		return "FINE"
	case ActionMandatoryAudit:
		return "MANDATORY_AUDIT"
	case ActionSuspend:
		return "SUSPEND"
	case ActionRevoke:
		return "REVOKE"
	case ActionCriminalReferral:
		return "CRIMINAL_REFERRAL"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction is the inverse of String.
func ParseAction(s string) (Action, error) {
	for _, a := range AllActions() {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func (a Action) MarshalText() ([]byte, error) {
	if a.Tier() < 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAction, int(a))
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Decider maps an audit result and offence history to an enforcement action.
type Decider struct {
	referralThreshold int64
}

// NewDecider creates a decider. Cumulative penalties at or above threshold escalate
// the most severe results to criminal referral.
func NewDecider(threshold int64) *Decider {
	return &Decider{referralThreshold: threshold}
}

// Threshold returns the criminal-referral threshold.
func (d *Decider) Threshold() int64 {
	return d.referralThreshold
}

// Decide picks the action. Higher severity or more prior offences never yields a
// lower tier for the same case.
func (d *Decider) Decide(r Result, priorOffenses int, cumulativePenalty int64) Action {
	if !r.IsViolation() {
		return ActionNone
	}
	sev := r.Severity()
	switch {
	case priorOffenses < 2 && sev < ResultUndisclosedBias.Severity():
		return ActionWarning
	case priorOffenses < 5 && sev < ResultProofMismatch.Severity():
		return ActionFine
	case sev < ResultCatalogTampering.Severity():
		return ActionMandatoryAudit
	case sev < ResultInvalidPreferences.Severity():
		return ActionSuspend
	case cumulativePenalty < d.referralThreshold:
		return ActionRevoke
	default:
		return ActionCriminalReferral
	}
}
