package remediation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
	"github.com/Mindburn-Labs/recaudit/pkg/audit/remediation"
)

func TestDefaultRules_Compile(t *testing.T) {
	e, err := remediation.NewEngine(remediation.DefaultRules())
	require.NoError(t, err)
	assert.Len(t, e.Rules(), len(remediation.DefaultRules()))
}

func TestRemediate_Compliant(t *testing.T) {
	e, err := remediation.NewEngine(remediation.DefaultRules())
	require.NoError(t, err)

	got, err := e.Remediate(remediation.Input{Result: audit.ResultCompliant, Action: audit.ActionNone})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRemediate_MatchesInRuleOrder(t *testing.T) {
	e, err := remediation.NewEngine(remediation.DefaultRules())
	require.NoError(t, err)

	got, err := e.Remediate(remediation.Input{
		Result:        audit.ResultSuboptimal,
		Penalty:       1_500_000,
		Action:        audit.ActionFine,
		Reasons:       []string{"SUBOPTIMAL", "MANIPULATION_SUSPECTED"},
		PriorOffenses: 2,
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "Re-rank")
	assert.Contains(t, got[1], "commercial incentives")
	assert.Contains(t, got[2], "corrective action plan")
}

func TestRemediate_IntegrityAndSuspension(t *testing.T) {
	e, err := remediation.NewEngine(remediation.DefaultRules())
	require.NoError(t, err)

	got, err := e.Remediate(remediation.Input{Result: audit.ResultCatalogTampering, Action: audit.ActionSuspend})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "valid signatures")
	assert.Contains(t, got[1], "Stop serving")
}

func TestNewEngine_Rejects(t *testing.T) {
	_, err := remediation.NewEngine([]remediation.Rule{{ID: "bad", When: `result ==`, Text: "x"}})
	require.ErrorIs(t, err, remediation.ErrInvalidRule)

	_, err = remediation.NewEngine([]remediation.Rule{{ID: "int", When: `penalty + 1`, Text: "x"}})
	require.ErrorIs(t, err, remediation.ErrInvalidRule)

	_, err = remediation.NewEngine([]remediation.Rule{{ID: "unknown", When: `customer == "x"`, Text: "x"}})
	require.ErrorIs(t, err, remediation.ErrInvalidRule)

	_, err = remediation.NewEngine([]remediation.Rule{
		{ID: "a", When: "true", Text: "x"},
		{ID: "a", When: "false", Text: "y"},
	})
	require.ErrorIs(t, err, remediation.ErrDuplicateRule)
}

func TestRemediate_CustomRule(t *testing.T) {
	e, err := remediation.NewEngine([]remediation.Rule{
		{ID: "big-fine", When: `penalty >= 1000000 && size(reasons) > 0`, Text: "Escalate to compliance officer."},
	})
	require.NoError(t, err)

	got, err := e.Remediate(remediation.Input{Result: audit.ResultUndisclosedBias, Penalty: 1_000_000, Reasons: []string{"DISCLOSURE_NON_COMPLIANT"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Escalate to compliance officer."}, got)

	got, err = e.Remediate(remediation.Input{Result: audit.ResultUndisclosedBias, Penalty: 1_000_000})
	require.NoError(t, err)
	assert.Empty(t, got)
}
