package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts/contractstest"
)

func sampleInput() audit.ReportInput {
	return audit.ReportInput{
		AuditID:       "a-1",
		PlatformID:    contractstest.PlatformID,
		Result:        audit.ResultSuboptimal,
		Penalty:       500_000,
		Action:        audit.ActionWarning,
		AffectedUsers: 1,
		Findings:      []audit.Finding{{Code: "SUBOPTIMAL", Category: "optimality", Detail: "x"}},
		Timestamp:     contractstest.Epoch.In(time.FixedZone("CET", 3600)),
	}
}

func TestBuildReport(t *testing.T) {
	in := sampleInput()
	r := audit.BuildReport(in)

	assert.Equal(t, "a-1", r.AuditID)
	assert.Equal(t, audit.ResultSuboptimal.Severity(), r.Severity)
	assert.Equal(t, time.UTC, r.Timestamp.Location())
	assert.Empty(t, r.Signature)
	assert.NotNil(t, r.Remediation, "empty lists are present, not null")
	assert.Equal(t, r.ReportID, audit.BuildReport(in).ReportID, "report ids are deterministic")

	in.Findings[0].Detail = "mutated"
	assert.Equal(t, "x", r.Findings[0].Detail, "inputs are copied")

	in.AuditID = "a-2"
	assert.NotEqual(t, r.ReportID, audit.BuildReport(in).ReportID)
}

func TestReport_SignVerify(t *testing.T) {
	env := contractstest.NewEnv(t)
	r := audit.BuildReport(sampleInput())

	require.NoError(t, r.Sign(env.Auditor))
	assert.Equal(t, contractstest.AuditorID, r.AuditorID)
	assert.True(t, audit.VerifyReport(env.Keyring, *r))
	require.ErrorIs(t, r.Sign(env.Auditor), audit.ErrReportSigned)

	tampered := *r
	tampered.Penalty = 1
	assert.False(t, audit.VerifyReport(env.Keyring, tampered))
}
