package fairness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts/contractstest"
	"github.com/Mindburn-Labs/recaudit/pkg/fairness"
)

func TestOptimality_BasicScenario(t *testing.T) {
	cat := contractstest.Catalog(contractstest.Laptop1(), contractstest.Laptop2())
	pref := contractstest.Preference()

	assert.True(t, fairness.IsOptimal("laptop-2", cat, pref))
	assert.True(t, fairness.IsStrictlyOptimal("laptop-2", cat, pref))
	assert.False(t, fairness.IsOptimal("laptop-1", cat, pref))
	assert.True(t, fairness.IsNearOptimal("laptop-1", cat, pref, 45))
	assert.False(t, fairness.IsNearOptimal("laptop-1", cat, pref, 44))
	assert.False(t, fairness.IsNearOptimal("laptop-1", cat, pref, -10), "negative tolerance behaves as zero")
	assert.False(t, fairness.IsOptimal("missing", cat, pref))
}

func TestOptimality_Ties(t *testing.T) {
	twin := contractstest.Laptop2()
	twin.ID = "laptop-2b"
	cat := contractstest.Catalog(contractstest.Laptop1(), contractstest.Laptop2(), twin)
	sb := fairness.NewScoreboard(cat, contractstest.Preference(), nil)

	assert.True(t, sb.IsOptimal("laptop-2"))
	assert.True(t, sb.IsOptimal("laptop-2b"))
	assert.False(t, sb.IsStrictlyOptimal("laptop-2"))

	best := sb.OptimalProducts()
	require.Len(t, best, 2)
	assert.Equal(t, "laptop-2", best[0].ID)
	assert.Equal(t, "laptop-2b", best[1].ID)
}

func TestOptimality_NothingQualifies(t *testing.T) {
	p := contractstest.Laptop1()
	p.Available = false
	cat := contractstest.Catalog(p)
	sb := fairness.NewScoreboard(cat, contractstest.Preference(), nil)

	_, ok := sb.BestUtility()
	assert.False(t, ok)
	assert.Empty(t, sb.OptimalProducts())
	assert.True(t, sb.IsOptimal("laptop-1"), "vacuously optimal when no product qualifies")
}

func TestScoreboard_BetterNonCommercial(t *testing.T) {
	cat := contractstest.Catalog(contractstest.Laptop1(), contractstest.Laptop2())
	sb := fairness.NewScoreboard(cat, contractstest.Preference(), []contracts.Disclosure{contractstest.Affiliate("laptop-1")})

	alt, ok := sb.BetterNonCommercial("laptop-1")
	require.True(t, ok)
	assert.Equal(t, "laptop-2", alt.Product.ID)
	assert.Equal(t, 715, alt.Utility)

	_, ok = sb.BetterNonCommercial("laptop-2")
	assert.False(t, ok)
}

func TestScoreboard_NormalisedLookup(t *testing.T) {
	p := contractstest.Laptop1()
	p.ID = "café"
	sb := fairness.NewScoreboard(contractstest.Catalog(p), contractstest.Preference(), nil)

	it, ok := sb.Lookup("café")
	require.True(t, ok)
	assert.Equal(t, 670, it.Utility)
}
