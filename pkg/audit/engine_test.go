package audit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/audit"
	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts/contractstest"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
)

func newEngine(t *testing.T) (*audit.Engine, *contractstest.Env) {
	t.Helper()
	env := contractstest.NewEnv(t)
	eng, err := audit.NewEngine(env.Keyring, crypto.NewCanonicalHasher())
	require.NoError(t, err)
	return eng, env
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	env := contractstest.NewEnv(t)

	_, err := audit.NewEngine(env.Keyring, nil)
	require.ErrorIs(t, err, audit.ErrNoHasher)

	_, err = audit.NewEngine(nil, crypto.NewCanonicalHasher())
	require.ErrorIs(t, err, fairness.ErrNoVerifier)
}

func TestAudit_Compliant(t *testing.T) {
	eng, env := newEngine(t)
	rec := env.Record(t, "a-1", env.BasicContext(t), contractstest.Recommend("laptop-2", 1))

	out, err := eng.Audit(rec)
	require.NoError(t, err)
	assert.Equal(t, audit.ResultCompliant, out.Result)
	require.NotNil(t, out.Verdict)
	assert.True(t, out.Verdict.Compliant)
	assert.Empty(t, out.Findings)
	assert.Equal(t, rec.EvidenceHash, out.RecomputedHash)
}

func TestAudit_TimestampFraudOutranksCompliance(t *testing.T) {
	eng, env := newEngine(t)
	rc := env.BasicContext(t)
	rec := env.Record(t, "a-1", rc, contractstest.Recommend("laptop-2", 1))

	rec.Timestamp = rc.Timestamp.Add(1001 * time.Millisecond)
	out, err := eng.Audit(rec)
	require.NoError(t, err)
	assert.Equal(t, audit.ResultTimestampFraud, out.Result)
	assert.Nil(t, out.Verdict)
	require.Len(t, out.Findings, 1)
	assert.Equal(t, "integrity", out.Findings[0].Category)

	rec.Timestamp = rc.Timestamp.Add(audit.MaxTimestampSkew)
	out, err = eng.Audit(rec)
	require.NoError(t, err)
	assert.Equal(t, audit.ResultCompliant, out.Result, "exactly the allowed skew is not fraud")
}

func TestAudit_ProofFailures(t *testing.T) {
	eng, env := newEngine(t)
	rc := env.BasicContext(t)
	rec := env.Record(t, "a-1", rc, contractstest.Recommend("laptop-2", 1))

	t.Run("missing", func(t *testing.T) {
		r := rec
		r.EvidenceHash = ""
		out, err := eng.Audit(r)
		require.NoError(t, err)
		assert.Equal(t, audit.ResultProofMissing, out.Result)
	})

	t.Run("mismatch", func(t *testing.T) {
		r := rec
		r.EvidenceHash = canonicalize.HashBytes([]byte("other evidence"))
		out, err := eng.Audit(r)
		require.NoError(t, err)
		assert.Equal(t, audit.ResultProofMismatch, out.Result)
	})

	t.Run("re-supplied context differs from snapshot", func(t *testing.T) {
		other := env.BasicContext(t, contractstest.Affiliate("laptop-2"))
		out, err := eng.AuditWithContext(rec, other)
		require.NoError(t, err)
		assert.Equal(t, audit.ResultProofMismatch, out.Result)
	})

	t.Run("mismatch outranks timestamp fraud", func(t *testing.T) {
		r := rec
		r.EvidenceHash = "ff"
		r.Timestamp = rc.Timestamp.Add(time.Hour)
		out, err := eng.Audit(r)
		require.NoError(t, err)
		assert.Equal(t, audit.ResultProofMismatch, out.Result)
	})
}

func TestAudit_SignatureFailures(t *testing.T) {
	eng, env := newEngine(t)
	rec := contractstest.Recommend("laptop-2", 1)

	t.Run("preferences", func(t *testing.T) {
		rc := env.BasicContext(t)
		rc.Preference.Constraints.MaxBudget = 90000
		out, err := eng.Audit(env.Record(t, "a-1", rc, rec))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultInvalidPreferences, out.Result)
	})

	t.Run("catalog", func(t *testing.T) {
		rc := env.BasicContext(t)
		rc.Catalog.ValidUntil = rc.Catalog.ValidUntil.Add(time.Hour)
		out, err := eng.Audit(env.Record(t, "a-1", rc, rec))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultCatalogTampering, out.Result)
	})

	t.Run("preferences outrank catalog", func(t *testing.T) {
		rc := env.BasicContext(t)
		rc.Preference.Signature = ""
		rc.Catalog.Signature = ""
		out, err := eng.Audit(env.Record(t, "a-1", rc, rec))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultInvalidPreferences, out.Result)
	})
}

func TestAudit_SubstantiveResults(t *testing.T) {
	eng, env := newEngine(t)

	t.Run("suboptimal", func(t *testing.T) {
		out, err := eng.Audit(env.Record(t, "a-1", env.BasicContext(t), contractstest.Recommend("laptop-1", 1)))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultSuboptimal, out.Result)
		require.NotEmpty(t, out.Findings)
		assert.Equal(t, string(fairness.ReasonSuboptimal), out.Findings[0].Code)
		assert.Contains(t, out.Findings[0].Detail, "utility 670 below best qualifying utility 715")
	})

	t.Run("unknown product", func(t *testing.T) {
		out, err := eng.Audit(env.Record(t, "a-1", env.BasicContext(t), contractstest.Recommend("laptop-9", 1)))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultSuboptimal, out.Result)
	})

	t.Run("undisclosed bias", func(t *testing.T) {
		d := contractstest.Affiliate("laptop-2")
		d.Disclosed = false
		out, err := eng.Audit(env.Record(t, "a-1", env.BasicContext(t, d), contractstest.Recommend("laptop-2", 1)))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultUndisclosedBias, out.Result)
		assert.Equal(t, "disclosure", out.Findings[0].Category)
	})

	t.Run("indeterminate", func(t *testing.T) {
		rc := env.BasicContext(t)
		rc.Timestamp = rc.Catalog.ValidUntil.Add(time.Second)
		out, err := eng.Audit(env.Record(t, "a-1", rc, contractstest.Recommend("laptop-2", 1)))
		require.NoError(t, err)
		assert.Equal(t, audit.ResultIndeterminate, out.Result)
		assert.True(t, out.Verdict.Has(fairness.ReasonCatalogNotValidAt))
	})
}

func TestAudit_MalformedInput(t *testing.T) {
	eng, env := newEngine(t)
	rec := env.Record(t, "a-1", env.BasicContext(t), contractstest.Recommend("laptop-2", 1))

	bad := rec
	bad.AuditID = ""
	_, err := eng.Audit(bad)
	require.ErrorIs(t, err, contracts.ErrMalformedInput)

	rc := env.BasicContext(t)
	rc.Preference.Weights.Price = 0
	rc.Preference = env.SignPreference(t, rc.Preference)
	_, err = eng.Audit(env.Record(t, "a-2", rc, contractstest.Recommend("laptop-2", 1)))
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
}

func TestTimestampFraud(t *testing.T) {
	base := contractstest.Epoch
	assert.False(t, audit.TimestampFraud(base, base))
	assert.False(t, audit.TimestampFraud(base.Add(-time.Hour), base))
	assert.False(t, audit.TimestampFraud(base.Add(time.Second), base))
	assert.True(t, audit.TimestampFraud(base.Add(time.Second+time.Millisecond), base))
}

func TestRecordSignatureFinding(t *testing.T) {
	eng, env := newEngine(t)
	rec := env.Record(t, "a-sig", env.BasicContext(t), contractstest.Recommend("laptop-2", 1))

	_, bad := eng.RecordSignatureFinding(rec)
	assert.False(t, bad, "unsigned records are not checked")

	sig, err := crypto.SignRecord(env.Auditor, rec)
	require.NoError(t, err)
	rec.Signature = sig
	_, bad = eng.RecordSignatureFinding(rec)
	assert.False(t, bad)

	tampered := rec
	tampered.PlatformID = "platform-other"
	f, bad := eng.RecordSignatureFinding(tampered)
	require.True(t, bad)
	assert.Equal(t, audit.FindingRecordSignature, f.Code)
	assert.Equal(t, "integrity", f.Category)
	assert.Contains(t, f.Detail, contractstest.AuditorID)

	env.Keyring.Revoke(contractstest.AuditorID)
	_, bad = eng.RecordSignatureFinding(rec)
	assert.True(t, bad, "a revoked auditor key no longer verifies")
}
