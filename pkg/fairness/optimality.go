package fairness

import (
	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
)

// ScoredProduct is a catalog product with its qualification and utility precomputed.
type ScoredProduct struct {
	Product    contracts.Product `json:"product"`
	Qualifies  bool              `json:"qualifies"`
	Utility    int               `json:"utility"`
	Commercial bool              `json:"commercial"` // has a disclosure of a commercial class
}

// Scoreboard scores a catalog once so the optimality and manipulation checks share
// one O(catalog) pass.
type Scoreboard struct {
	items []ScoredProduct
	index map[string]int
}

// NewScoreboard scores every catalog product under pref. Disclosures mark which
// products carry a commercial relationship.
func NewScoreboard(cat contracts.Catalog, pref contracts.UserPreference, disclosures []contracts.Disclosure) *Scoreboard {
	commercial := make(map[string]struct{})
	for _, d := range disclosures {
		if d.Relationship.IsCommercial() {
			commercial[canonicalize.Identifier(d.ProductID)] = struct{}{}
		}
	}

	sb := &Scoreboard{
		items: make([]ScoredProduct, 0, len(cat.Products)),
		index: make(map[string]int, len(cat.Products)),
	}
	for _, p := range cat.Products {
		id := canonicalize.Identifier(p.ID)
		if _, dup := sb.index[id]; dup {
			continue
		}
		_, isCommercial := commercial[id]
		sb.index[id] = len(sb.items)
		sb.items = append(sb.items, ScoredProduct{
			Product:    p,
			Qualifies:  Qualifies(p, pref.Constraints),
			Utility:    Utility(p, pref),
			Commercial: isCommercial,
		})
	}
	return sb
}

// Items returns the scored products in catalog order.
func (sb *Scoreboard) Items() []ScoredProduct {
	return sb.items
}

// Lookup returns the scored entry for a product id.
func (sb *Scoreboard) Lookup(productID string) (ScoredProduct, bool) {
	i, ok := sb.index[canonicalize.Identifier(productID)]
	if !ok {
		return ScoredProduct{}, false
	}
	return sb.items[i], true
}

// BestUtility returns the highest utility among qualifying products. ok is false when
// nothing qualifies.
func (sb *Scoreboard) BestUtility() (best int, ok bool) {
	for _, it := range sb.items {
		if !it.Qualifies {
			continue
		}
		if !ok || it.Utility > best {
			best, ok = it.Utility, true
		}
	}
	return best, ok
}

// OptimalProducts returns every qualifying product attaining the best utility. The
// engine never chooses among them; the list exists for reporting and tests.
func (sb *Scoreboard) OptimalProducts() []contracts.Product {
	best, ok := sb.BestUtility()
	if !ok {
		return nil
	}
	var out []contracts.Product
	for _, it := range sb.items {
		if it.Qualifies && it.Utility == best {
			out = append(out, it.Product)
		}
	}
	return out
}

// IsOptimal: the candidate is in the catalog and no qualifying product has strictly
// greater utility. Ties do not disqualify.
func (sb *Scoreboard) IsOptimal(productID string) bool {
	return sb.IsNearOptimal(productID, 0)
}

// IsStrictlyOptimal: the candidate is in the catalog and no other qualifying product
// has utility greater than or equal to the candidate's.
func (sb *Scoreboard) IsStrictlyOptimal(productID string) bool {
	cand, ok := sb.Lookup(productID)
	if !ok {
		return false
	}
	candID := canonicalize.Identifier(cand.Product.ID)
	for _, it := range sb.items {
		if !it.Qualifies || canonicalize.Identifier(it.Product.ID) == candID {
			continue
		}
		if it.Utility >= cand.Utility {
			return false
		}
	}
	return true
}

// IsNearOptimal: the candidate is in the catalog and no qualifying product exceeds its
// utility by more than tolerance. Negative tolerances are treated as 0.
func (sb *Scoreboard) IsNearOptimal(productID string, tolerance int) bool {
	cand, ok := sb.Lookup(productID)
	if !ok {
		return false
	}
	if tolerance < 0 {
		tolerance = 0
	}
	for _, it := range sb.items {
		if it.Qualifies && it.Utility-cand.Utility > tolerance {
			return false
		}
	}
	return true
}

// BetterNonCommercial returns a qualifying product without any commercial relationship
// whose utility strictly exceeds the candidate's.
func (sb *Scoreboard) BetterNonCommercial(productID string) (ScoredProduct, bool) {
	cand, ok := sb.Lookup(productID)
	if !ok {
		return ScoredProduct{}, false
	}
	for _, it := range sb.items {
		if !it.Commercial && it.Utility > cand.Utility {
			return it, true
		}
	}
	return ScoredProduct{}, false
}

// IsOptimal checks non-strict optimality of productID in cat under pref.
func IsOptimal(productID string, cat contracts.Catalog, pref contracts.UserPreference) bool {
	return NewScoreboard(cat, pref, nil).IsOptimal(productID)
}

// IsStrictlyOptimal checks strict optimality of productID in cat under pref.
func IsStrictlyOptimal(productID string, cat contracts.Catalog, pref contracts.UserPreference) bool {
	return NewScoreboard(cat, pref, nil).IsStrictlyOptimal(productID)
}

// IsNearOptimal checks optimality within tolerance utility points.
func IsNearOptimal(productID string, cat contracts.Catalog, pref contracts.UserPreference, tolerance int) bool {
	return NewScoreboard(cat, pref, nil).IsNearOptimal(productID, tolerance)
}
