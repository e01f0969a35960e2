package contracts

import (
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// WeightTotal is the required sum of all preference weights (parts per thousand).
const WeightTotal = 1000

// MaxScore is the upper bound of every component score and of utility.
const MaxScore = 1000

// PreferenceWeights are non-negative parts-per-thousand weights summing to WeightTotal.
type PreferenceWeights struct {
	Price          int `json:"price"`
	Quality        int `json:"quality"`
	Features       int `json:"features"`
	Brand          int `json:"brand"`
	Sustainability int `json:"sustainability"`
}

// Sum returns the total of all weights.
func (w PreferenceWeights) Sum() int {
	return w.Price + w.Quality + w.Features + w.Brand + w.Sustainability
}

func (w PreferenceWeights) collect(errs *fieldErrors) {
	named := []struct {
		field string
		value int
	}{
		{"weights.price", w.Price},
		{"weights.quality", w.Quality},
		{"weights.features", w.Features},
		{"weights.brand", w.Brand},
		{"weights.sustainability", w.Sustainability},
	}
	for _, n := range named {
		if n.value < 0 {
			errs.add(n.field, "must not be negative, got %d", n.value)
		}
	}
	if s := w.Sum(); s != WeightTotal {
		errs.add("weights", "must sum to %d, got %d", WeightTotal, s)
	}
}

// UserConstraints are the user's hard constraints plus scoring hints.
type UserConstraints struct {
	MaxBudget        int64    `json:"max_budget"`
	MinRating        int      `json:"min_rating"`
	RequiredFeatures []string `json:"required_features,omitempty"`
	PreferredBrands  []string `json:"preferred_brands,omitempty"`
	ExcludedBrands   []string `json:"excluded_brands,omitempty"`
	MinReviews       int      `json:"min_reviews"`
}

func (c UserConstraints) collect(errs *fieldErrors) {
	if c.MaxBudget <= 0 {
		errs.add("constraints.max_budget", "must be positive, got %d", c.MaxBudget)
	}
	if c.MinRating < 0 || c.MinRating > MaxScore {
		errs.add("constraints.min_rating", "must be within [0,%d], got %d", MaxScore, c.MinRating)
	}
	if c.MinReviews < 0 {
		errs.add("constraints.min_reviews", "must not be negative, got %d", c.MinReviews)
	}
}

// UserPreference is a user-signed preference profile.
type UserPreference struct {
	OwnerID     string            `json:"owner_id"`
	Weights     PreferenceWeights `json:"weights"`
	Constraints UserConstraints   `json:"constraints"`
	IssuedAt    time.Time         `json:"issued_at"`
	Signature   string            `json:"signature,omitempty"`
}

// SignablePayload returns the canonical bytes the owner signs.
func (p UserPreference) SignablePayload() ([]byte, error) {
	p.Signature = ""
	return canonicalize.JCS(p)
}

// Validate checks the weight and constraint invariants. Signature validity is
// checked by the evaluator through its injected verifier.
func (p UserPreference) Validate() error {
	var errs fieldErrors
	if canonicalize.Identifier(p.OwnerID) == "" {
		errs.add("owner_id", "must not be empty")
	}
	p.Weights.collect(&errs)
	p.Constraints.collect(&errs)
	return errs.err()
}
