package contracts

import (
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// RelationshipClass is the commercial relationship behind a product placement.
type RelationshipClass string

// Relationship classes. The set is closed; anything else is malformed input.
const (
	RelationshipNone        RelationshipClass = "NONE"
	RelationshipAffiliate   RelationshipClass = "AFFILIATE"
	RelationshipSponsored   RelationshipClass = "SPONSORED"
	RelationshipAdvertising RelationshipClass = "ADVERTISING"
	RelationshipPartnership RelationshipClass = "PARTNERSHIP"
	RelationshipInventory   RelationshipClass = "INVENTORY"
	RelationshipOwnBrand    RelationshipClass = "OWN_BRAND"
	RelationshipExclusive   RelationshipClass = "EXCLUSIVE"
)

// MaxProminence is the highest disclosure prominence level.
const MaxProminence = 5

// Valid reports whether r is one of the known relationship classes.
func (r RelationshipClass) Valid() bool {
	switch r {
	case RelationshipNone, RelationshipAffiliate, RelationshipSponsored, RelationshipAdvertising,
		RelationshipPartnership, RelationshipInventory, RelationshipOwnBrand, RelationshipExclusive:
		return true
	}
	return false
}

// IsCommercial reports whether the class denotes a disclosable commercial relationship.
func (r RelationshipClass) IsCommercial() bool {
	return r != RelationshipNone
}

// Disclosure is a platform-signed statement of a commercial relationship for one product.
//
// ClaimedRelationship and DisclosedAt are optional. When present they make the
// incorrect-relationship and late-disclosure violation kinds computable.
type Disclosure struct {
	ProductID           string            `json:"product_id"`
	Relationship        RelationshipClass `json:"relationship"`
	ClaimedRelationship RelationshipClass `json:"claimed_relationship,omitempty"`
	PaymentAmount       int64             `json:"payment_amount"`
	PaymentType         string            `json:"payment_type,omitempty"`
	Disclosed           bool              `json:"disclosed"`
	Prominence          int               `json:"prominence"`
	DisclosedAt         *time.Time        `json:"disclosed_at,omitempty"`
	Timestamp           time.Time         `json:"timestamp"`
	Signature           string            `json:"signature,omitempty"`
}

// AppliesTo reports whether the disclosure is tied to the product.
func (d Disclosure) AppliesTo(productID string) bool {
	return canonicalize.Identifier(d.ProductID) == canonicalize.Identifier(productID)
}

// SignablePayload returns the canonical bytes the platform signs.
func (d Disclosure) SignablePayload() ([]byte, error) {
	d.Signature = ""
	return canonicalize.JCS(d)
}

// Validate rejects malformed disclosures.
func (d Disclosure) Validate() error {
	var errs fieldErrors
	d.collect(&errs)
	return errs.err()
}

func (d Disclosure) collect(errs *fieldErrors) {
	if canonicalize.Identifier(d.ProductID) == "" {
		errs.add("product_id", "must not be empty")
	}
	if !d.Relationship.Valid() {
		errs.add("relationship", "unknown relationship class %q", d.Relationship)
	}
	if d.ClaimedRelationship != "" && !d.ClaimedRelationship.Valid() {
		errs.add("claimed_relationship", "unknown relationship class %q", d.ClaimedRelationship)
	}
	if d.Prominence < 0 || d.Prominence > MaxProminence {
		errs.add("prominence", "must be within [0,%d], got %d", MaxProminence, d.Prominence)
	}
	if d.PaymentAmount < 0 {
		errs.add("payment_amount", "must not be negative, got %d", d.PaymentAmount)
	}
}

// DisclosuresFor returns the disclosures tied to a product, in input order.
func DisclosuresFor(ds []Disclosure, productID string) []Disclosure {
	var out []Disclosure
	for _, d := range ds {
		if d.AppliesTo(productID) {
			out = append(out, d)
		}
	}
	return out
}
