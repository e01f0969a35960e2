package fairness

import (
	"math"
	"math/big"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

// NeutralBrandScore is the brand component for brands neither preferred nor excluded.
const NeutralBrandScore = 500

// ComponentScores are the five bounded [0,1000] scores behind a utility value.
type ComponentScores struct {
	Price          int `json:"price"`
	Quality        int `json:"quality"`
	Features       int `json:"features"`
	Brand          int `json:"brand"`
	Sustainability int `json:"sustainability"`
}

// PriceScore is 0 when the price reaches the budget (or the budget is not positive),
// otherwise (budget-price)*1000/budget truncated.
func PriceScore(price, budget int64) int {
	if budget <= 0 || price >= budget {
		return 0
	}
	if price < 0 {
		price = 0
	}
	headroom := budget - price
	if headroom <= math.MaxInt64/contracts.MaxScore {
		return int(headroom * contracts.MaxScore / budget)
	}
	q := new(big.Int).Mul(big.NewInt(headroom), big.NewInt(contracts.MaxScore))
	q.Quo(q, big.NewInt(budget))
	return int(q.Int64())
}

// QualityScore is the rating clamped to [0,1000].
func QualityScore(rating int) int {
	return clampScore(rating)
}

// SustainabilityScore is the sustainability score clamped to [0,1000].
func SustainabilityScore(score int) int {
	return clampScore(score)
}

// FeatureScore is matched/required*1000 over the distinct required features, or 1000
// when nothing is required.
func FeatureScore(p contracts.Product, required []string) int {
	want := canonicalize.IdentifierSet(required)
	if len(want) == 0 {
		return contracts.MaxScore
	}
	have := canonicalize.IdentifierSet(p.Features)
	matched := 0
	for f := range want {
		if _, ok := have[f]; ok {
			matched++
		}
	}
	return matched * contracts.MaxScore / len(want)
}

// BrandScore is 0 for excluded brands, 1000 for preferred brands, otherwise neutral.
// Exclusion wins when a brand appears in both lists.
func BrandScore(brandID string, c contracts.UserConstraints) int {
	if brandIn(brandID, c.ExcludedBrands) {
		return 0
	}
	if brandIn(brandID, c.PreferredBrands) {
		return contracts.MaxScore
	}
	return NeutralBrandScore
}

// Components computes the component scores without hard-constraint gating.
func Components(p contracts.Product, pref contracts.UserPreference) ComponentScores {
	c := pref.Constraints
	return ComponentScores{
		Price:          PriceScore(p.Price, c.MaxBudget),
		Quality:        QualityScore(p.Rating),
		Features:       FeatureScore(p, c.RequiredFeatures),
		Brand:          BrandScore(p.BrandID, c),
		Sustainability: SustainabilityScore(p.Sustainability),
	}
}

// Weighted combines component scores: sum(weight_i*component_i)/1000, truncated.
// With weights summing to 1000 the result lies in [0,1000].
func Weighted(c ComponentScores, w contracts.PreferenceWeights) int {
	total := int64(w.Price)*int64(c.Price) +
		int64(w.Quality)*int64(c.Quality) +
		int64(w.Features)*int64(c.Features) +
		int64(w.Brand)*int64(c.Brand) +
		int64(w.Sustainability)*int64(c.Sustainability)
	return int(total / contracts.WeightTotal)
}

// Utility scores one product under one preference. A product failing the hard
// constraints scores 0, which is a legitimate "ineligible" value and not an error.
func Utility(p contracts.Product, pref contracts.UserPreference) int {
	if !Qualifies(p, pref.Constraints) {
		return 0
	}
	return Weighted(Components(p, pref), pref.Weights)
}

func clampScore(v int) int {
	switch {
	case v < 0:
		return 0
	case v > contracts.MaxScore:
		return contracts.MaxScore
	default:
		return v
	}
}

func brandIn(brandID string, brands []string) bool {
	if len(brands) == 0 {
		return false
	}
	_, ok := canonicalize.IdentifierSet(brands)[canonicalize.Identifier(brandID)]
	return ok
}
