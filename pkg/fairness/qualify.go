package fairness

import (
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

const (
	// MinReviewCount is the engine-wide minimum review volume for qualification.
	MinReviewCount = 10
	// SignificantReviewCount marks a product's rating as statistically significant.
	// Used for confidence reporting only.
	SignificantReviewCount = 30
)

// Constraint names reported by ConstraintFailures.
const (
	ConstraintAvailable      = "available"
	ConstraintCertified      = "certified"
	ConstraintMinReviews     = "engine_min_reviews"
	ConstraintBudget         = "max_budget"
	ConstraintMinRating      = "min_rating"
	ConstraintExcludedBrand  = "excluded_brand"
	ConstraintUserMinReviews = "user_min_reviews"
)

// ConstraintFailures lists every hard constraint the product fails, in a fixed order.
// An empty result means the product qualifies.
func ConstraintFailures(p contracts.Product, c contracts.UserConstraints) []string {
	var failed []string
	if !p.Available {
		failed = append(failed, ConstraintAvailable)
	}
	if !p.Certified {
		failed = append(failed, ConstraintCertified)
	}
	if p.ReviewCount < MinReviewCount {
		failed = append(failed, ConstraintMinReviews)
	}
	if p.Price > c.MaxBudget {
		failed = append(failed, ConstraintBudget)
	}
	if p.Rating < c.MinRating {
		failed = append(failed, ConstraintMinRating)
	}
	if brandIn(p.BrandID, c.ExcludedBrands) {
		failed = append(failed, ConstraintExcludedBrand)
	}
	if p.ReviewCount < c.MinReviews {
		failed = append(failed, ConstraintUserMinReviews)
	}
	return failed
}

// Qualifies is the hard-constraint predicate.
func Qualifies(p contracts.Product, c contracts.UserConstraints) bool {
	return p.Available &&
		p.Certified &&
		p.ReviewCount >= MinReviewCount &&
		p.Price <= c.MaxBudget &&
		p.Rating >= c.MinRating &&
		!brandIn(p.BrandID, c.ExcludedBrands) &&
		p.ReviewCount >= c.MinReviews
}

// QualifyingProducts returns the qualifying subset of the catalog in catalog order.
func QualifyingProducts(cat contracts.Catalog, c contracts.UserConstraints) []contracts.Product {
	var out []contracts.Product
	for _, p := range cat.Products {
		if Qualifies(p, c) {
			out = append(out, p)
		}
	}
	return out
}

// StatisticallySignificant reports whether the product's review volume supports
// confidence in its rating.
func StatisticallySignificant(p contracts.Product) bool {
	return p.ReviewCount >= SignificantReviewCount
}
