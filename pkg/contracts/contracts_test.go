package contracts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts/contractstest"
)

func TestPreferenceValidate(t *testing.T) {
	require.NoError(t, contractstest.Preference().Validate())

	p := contractstest.Preference()
	p.Weights.Price = -10
	p.Weights.Quality += 10
	err := p.Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	assert.Contains(t, err.Error(), "weights.price")

	p = contractstest.Preference()
	p.Weights.Brand = 0
	err = p.Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	assert.Contains(t, err.Error(), "must sum to 1000, got 950")

	p = contractstest.Preference()
	p.Constraints.MaxBudget = 0
	p.Constraints.MinRating = 1001
	p.OwnerID = "  "
	err = p.Validate()
	require.Error(t, err)
	for _, field := range []string{"owner_id", "constraints.max_budget", "constraints.min_rating"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestCatalogValidate(t *testing.T) {
	require.NoError(t, contractstest.Catalog(contractstest.Laptop1(), contractstest.Laptop2()).Validate())

	dup := contractstest.Laptop2()
	dup.ID = " laptop-1 "
	err := contractstest.Catalog(contractstest.Laptop1(), dup).Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	assert.Contains(t, err.Error(), "duplicate product")

	neg := contractstest.Laptop1()
	neg.Price = -1
	err = contractstest.Catalog(neg).Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	assert.Contains(t, err.Error(), "products[0]: price")

	c := contractstest.Catalog()
	c.ValidUntil = c.ValidFrom.Add(-time.Second)
	require.ErrorIs(t, c.Validate(), contracts.ErrMalformedInput)
}

func TestCatalogValidAt(t *testing.T) {
	c := contractstest.Catalog()
	assert.True(t, c.ValidAt(c.ValidFrom))
	assert.True(t, c.ValidAt(c.ValidUntil))
	assert.False(t, c.ValidAt(c.ValidFrom.Add(-time.Nanosecond)))
	assert.False(t, c.ValidAt(c.ValidUntil.Add(time.Nanosecond)))
}

func TestCatalogFind(t *testing.T) {
	c := contractstest.Catalog(contractstest.Laptop1())
	p, ok := c.Find(" laptop-1")
	require.True(t, ok)
	assert.Equal(t, "laptop-1", p.ID)
	assert.False(t, c.Contains("laptop-2"))
}

func TestProductHasFeature(t *testing.T) {
	p := contractstest.Laptop1()
	assert.True(t, p.HasFeature("SSD"))
	assert.False(t, p.HasFeature("ssd"), "identifiers are case sensitive")
}

func TestSignablePayloadIgnoresSignature(t *testing.T) {
	p := contractstest.Preference()
	a, err := p.SignablePayload()
	require.NoError(t, err)
	p.Signature = "deadbeef"
	b, err := p.SignablePayload()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotContains(t, string(a), "signature")
}

func TestDisclosureValidate(t *testing.T) {
	require.NoError(t, contractstest.Affiliate("laptop-1").Validate())

	d := contractstest.Affiliate("laptop-1")
	d.Relationship = "BRIBE"
	d.Prominence = 6
	d.PaymentAmount = -1
	err := d.Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	for _, field := range []string{"relationship", "prominence", "payment_amount"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestRelationshipClass(t *testing.T) {
	assert.False(t, contracts.RelationshipNone.IsCommercial())
	assert.True(t, contracts.RelationshipOwnBrand.IsCommercial())
	assert.True(t, contracts.RelationshipExclusive.Valid())
	assert.False(t, contracts.RelationshipClass("affiliate").Valid())
}

func TestRecommendationContextValidate(t *testing.T) {
	rc := contracts.RecommendationContext{
		Preference: contractstest.Preference(),
		Catalog:    contractstest.Catalog(contractstest.Laptop1()),
		Timestamp:  contractstest.Epoch,
	}
	require.NoError(t, rc.Validate())

	rc.Disclosures = []contracts.Disclosure{{ProductID: "laptop-1", Relationship: "X"}}
	rc.Timestamp = time.Time{}
	err := rc.Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	assert.Contains(t, err.Error(), "disclosures[0]")
	assert.Contains(t, err.Error(), "timestamp")
}

func TestAuditRecordValidate(t *testing.T) {
	rec := contracts.AuditRecord{
		AuditID:        "a-1",
		AuditorID:      "auditor",
		Timestamp:      contractstest.Epoch,
		Recommendation: contractstest.Recommend("laptop-1", 1),
	}
	require.NoError(t, rec.Validate(), "the embedded context is not validated")

	rec.Recommendation.Rank = 0
	rec.AuditID = ""
	err := rec.Validate()
	require.ErrorIs(t, err, contracts.ErrMalformedInput)
	assert.Contains(t, err.Error(), "audit_id")
	assert.Contains(t, err.Error(), "recommendation")
}
