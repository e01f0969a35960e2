package audit_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
)

func TestResult_Order(t *testing.T) {
	all := audit.AllResults()
	require.Len(t, all, 9)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].Less(all[i]), "%s < %s", all[i-1], all[i])
		assert.Equal(t, i, all[i].Severity())
	}
	assert.Equal(t, -1, audit.Result(42).Severity())
	assert.False(t, audit.Result(42).IsViolation())
}

func TestResult_IsViolation(t *testing.T) {
	for _, r := range audit.AllResults() {
		want := r != audit.ResultCompliant && r != audit.ResultIndeterminate
		assert.Equal(t, want, r.IsViolation(), r.String())
	}
	assert.True(t, audit.ResultCatalogTampering.IsIntegrityFailure())
	assert.False(t, audit.ResultSuboptimal.IsIntegrityFailure())
}

func TestResult_TextRoundTrip(t *testing.T) {
	b, err := json.Marshal(map[string]audit.Result{"r": audit.ResultUndisclosedBias})
	require.NoError(t, err)
	assert.JSONEq(t, `{"r":"UNDISCLOSED_BIAS"}`, string(b))

	var got map[string]audit.Result
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, audit.ResultUndisclosedBias, got["r"])

	_, err = audit.ParseResult("FINE")
	require.ErrorIs(t, err, audit.ErrUnknownResult)
	_, err = audit.Result(99).MarshalText()
	require.ErrorIs(t, err, audit.ErrUnknownResult)
}

func TestAction_Text(t *testing.T) {
	for i, a := range audit.AllActions() {
		assert.Equal(t, i, a.Tier())
		parsed, err := audit.ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
	_, err := audit.ParseAction("JAIL")
	require.ErrorIs(t, err, audit.ErrUnknownAction)
}

func TestDecider_Ladder(t *testing.T) {
	d := audit.NewDecider(audit.DefaultReferralThreshold)

	cases := []struct {
		result     audit.Result
		priors     int
		cumulative int64
		want       audit.Action
	}{
		{audit.ResultCompliant, 10, 0, audit.ActionNone},
		{audit.ResultIndeterminate, 10, 0, audit.ActionNone},
		{audit.ResultProofMissing, 0, 0, audit.ActionWarning},
		{audit.ResultSuboptimal, 1, 0, audit.ActionWarning},
		{audit.ResultSuboptimal, 2, 0, audit.ActionFine},
		{audit.ResultUndisclosedBias, 0, 0, audit.ActionFine},
		{audit.ResultUndisclosedBias, 4, 0, audit.ActionFine},
		{audit.ResultUndisclosedBias, 5, 0, audit.ActionMandatoryAudit},
		{audit.ResultProofMismatch, 0, 0, audit.ActionMandatoryAudit},
		{audit.ResultTimestampFraud, 0, 0, audit.ActionMandatoryAudit},
		{audit.ResultCatalogTampering, 0, 0, audit.ActionSuspend},
		{audit.ResultInvalidPreferences, 0, 25_000_000, audit.ActionRevoke},
		{audit.ResultInvalidPreferences, 0, audit.DefaultReferralThreshold, audit.ActionCriminalReferral},
	}
	for _, tc := range cases {
		got := d.Decide(tc.result, tc.priors, tc.cumulative)
		assert.Equal(t, tc.want, got, "%s priors=%d cumulative=%d", tc.result, tc.priors, tc.cumulative)
	}
}
