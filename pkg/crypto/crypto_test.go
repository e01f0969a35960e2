package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

var testSeed = bytes.Repeat([]byte{0x42}, 32)

func TestEd25519Signer_SignVerify(t *testing.T) {
	s, err := NewEd25519Signer("user-1")
	require.NoError(t, err)

	sig, err := s.Sign([]byte("payload"))
	require.NoError(t, err)

	kr := NewKeyring()
	require.NoError(t, kr.Trust("user-1", s.PublicKey()))

	assert.True(t, kr.VerifySignature("user-1", []byte("payload"), sig))
	assert.False(t, kr.VerifySignature("user-1", []byte("payload!"), sig))
	assert.False(t, kr.VerifySignature("user-2", []byte("payload"), sig))
	assert.False(t, kr.VerifySignature("user-1", []byte("payload"), ""))
	assert.False(t, kr.VerifySignature("user-1", []byte("payload"), "not-hex"))
}

func TestVerifyHex(t *testing.T) {
	s, err := NewEd25519Signer("k")
	require.NoError(t, err)
	sig, err := s.Sign([]byte("x"))
	require.NoError(t, err)

	kr := NewKeyring()
	require.NoError(t, kr.Trust("k", s.PublicKey()))
	pub, err := kr.PublicKey("k")
	require.NoError(t, err)

	ok, err := Verify(hex.EncodeToString(pub), sig, []byte("x"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Verify("zz", sig, []byte("x"))
	assert.Error(t, err)
}

func TestKeyring_TrustValidation(t *testing.T) {
	kr := NewKeyring()
	assert.Error(t, kr.Trust("", make([]byte, 32)))
	assert.Error(t, kr.Trust("a", make([]byte, 3)))
	assert.Error(t, kr.TrustHex("a", "nothex"))

	_, err := kr.PublicKey("missing")
	assert.ErrorIs(t, err, ErrUnknownSigner)
}

func TestKeyring_Revoke(t *testing.T) {
	s, err := DeriveSigner(testSeed, "certifier")
	require.NoError(t, err)
	sig, err := s.Sign([]byte("catalog"))
	require.NoError(t, err)

	kr := NewKeyring()
	require.NoError(t, kr.Trust("certifier", s.PublicKey()))
	require.True(t, kr.VerifySignature("certifier", []byte("catalog"), sig))

	kr.Revoke("certifier")
	assert.False(t, kr.VerifySignature("certifier", []byte("catalog"), sig))
}

func TestDeriveSigner_Deterministic(t *testing.T) {
	a1, err := DeriveSigner(testSeed, "platform")
	require.NoError(t, err)
	a2, err := DeriveSigner(testSeed, "platform")
	require.NoError(t, err)
	b, err := DeriveSigner(testSeed, "auditor")
	require.NoError(t, err)

	assert.Equal(t, a1.PublicKey(), a2.PublicKey())
	assert.NotEqual(t, a1.PublicKey(), b.PublicKey())
	assert.Equal(t, "platform", a1.KeyID())

	_, err = DeriveSigner([]byte("short"), "platform")
	assert.Error(t, err)
	_, err = DeriveSigner(testSeed, " ")
	assert.Error(t, err)
}

func TestSignRecord_Preference(t *testing.T) {
	s, err := DeriveSigner(testSeed, "user-7")
	require.NoError(t, err)
	kr := NewKeyring()
	require.NoError(t, kr.Trust("user-7", s.PublicKey()))

	pref := contracts.UserPreference{
		OwnerID: "user-7",
		Weights: contracts.PreferenceWeights{Price: 1000},
		Constraints: contracts.UserConstraints{
			MaxBudget: 1000,
		},
		IssuedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	pref.Signature, err = SignRecord(s, pref)
	require.NoError(t, err)

	payload, err := pref.SignablePayload()
	require.NoError(t, err)
	assert.True(t, kr.VerifySignature("user-7", payload, pref.Signature))

	pref.Constraints.MaxBudget = 2000
	tampered, err := pref.SignablePayload()
	require.NoError(t, err)
	assert.False(t, kr.VerifySignature("user-7", tampered, pref.Signature))
}

func TestJWSVerifier(t *testing.T) {
	s, err := DeriveSigner(testSeed, "user-9")
	require.NoError(t, err)
	kr := NewKeyring()
	require.NoError(t, kr.Trust("user-9", s.PublicKey()))

	payload := []byte(`{"owner_id":"user-9"}`)
	token, err := IssueJWS(s, payload, time.Unix(1700000000, 0))
	require.NoError(t, err)

	v := NewJWSVerifier(kr)
	assert.True(t, v.VerifySignature("user-9", payload, token))
	assert.False(t, v.VerifySignature("user-9", []byte(`{"owner_id":"user-8"}`), token))
	assert.False(t, v.VerifySignature("user-8", payload, token))
	assert.False(t, v.VerifySignature("user-9", payload, ""))

	other, err := DeriveSigner(testSeed, "intruder")
	require.NoError(t, err)
	forged, err := IssueJWS(NewEd25519SignerFromKey(other.PrivateKey(), "user-9"), payload, time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.False(t, v.VerifySignature("user-9", payload, forged))
}

func TestDispatchVerifier(t *testing.T) {
	s, err := DeriveSigner(testSeed, "user-3")
	require.NoError(t, err)
	kr := NewKeyring()
	require.NoError(t, kr.Trust("user-3", s.PublicKey()))
	payload := []byte("p")

	detached, err := s.Sign(payload)
	require.NoError(t, err)
	token, err := IssueJWS(s, payload, time.Unix(1, 0))
	require.NoError(t, err)

	d := NewDispatchVerifier(kr)
	assert.True(t, d.VerifySignature("user-3", payload, detached))
	assert.True(t, d.VerifySignature("user-3", payload, token))
	assert.False(t, d.VerifySignature("user-3", []byte("q"), token))
}

func TestCanonicalHasher(t *testing.T) {
	h := NewCanonicalHasher()
	rc := contracts.RecommendationContext{Timestamp: time.Unix(10, 0).UTC()}
	rec := contracts.Recommendation{ProductID: "p1", Rank: 1}

	d1, err := h.CommitHash(rc, rec)
	require.NoError(t, err)
	d2, err := h.CommitHash(rc, rec)
	require.NoError(t, err)
	assert.True(t, HashesEqual(d1, d2))

	rec.ProductID = "p2"
	d3, err := h.CommitHash(rc, rec)
	require.NoError(t, err)
	assert.False(t, HashesEqual(d1, d3))
}

func TestHashesEqual_Empty(t *testing.T) {
	assert.False(t, HashesEqual("", ""))
	assert.False(t, HashesEqual("abc", ""))
	assert.True(t, HashesEqual("abc", "abc"))
}
