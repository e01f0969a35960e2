package contracts

import (
	"fmt"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// Product is a single catalog entry. Immutable once placed in a catalog snapshot.
type Product struct {
	ID             string   `json:"id"`
	BrandID        string   `json:"brand_id"`
	Price          int64    `json:"price"`  // minor currency units
	Rating         int      `json:"rating"` // 0-1000, 1000 = 5 stars
	ReviewCount    int      `json:"review_count"`
	Features       []string `json:"features,omitempty"`
	Sustainability int      `json:"sustainability"` // 0-1000
	Available      bool     `json:"available"`
	Certified      bool     `json:"certified"`
}

// HasFeature reports whether the product lists the feature (identifiers are NFC-normalised).
func (p Product) HasFeature(feature string) bool {
	want := canonicalize.Identifier(feature)
	for _, f := range p.Features {
		if canonicalize.Identifier(f) == want {
			return true
		}
	}
	return false
}

// Validate rejects structurally malformed products. Out-of-range ratings and
// sustainability scores are tolerated here; scoring clamps them.
func (p Product) Validate() error {
	var errs fieldErrors
	p.collect(&errs)
	return errs.err()
}

func (p Product) collect(errs *fieldErrors) {
	if canonicalize.Identifier(p.ID) == "" {
		errs.add("id", "must not be empty")
	}
	if p.Price < 0 {
		errs.add("price", "must not be negative, got %d", p.Price)
	}
	if p.ReviewCount < 0 {
		errs.add("review_count", "must not be negative, got %d", p.ReviewCount)
	}
}

// Catalog is a certified, signed, time-bounded snapshot of products.
type Catalog struct {
	Products    []Product `json:"products"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidUntil  time.Time `json:"valid_until"`
	CertifierID string    `json:"certifier_id"`
	Signature   string    `json:"signature,omitempty"`
}

// ValidAt reports whether t falls inside the inclusive validity window.
// Signature verification is the caller's concern.
func (c Catalog) ValidAt(t time.Time) bool {
	return !t.Before(c.ValidFrom) && !t.After(c.ValidUntil)
}

// Find returns the product with the given identifier.
func (c Catalog) Find(productID string) (Product, bool) {
	want := canonicalize.Identifier(productID)
	for _, p := range c.Products {
		if canonicalize.Identifier(p.ID) == want {
			return p, true
		}
	}
	return Product{}, false
}

// Contains reports whether the catalog lists the product.
func (c Catalog) Contains(productID string) bool {
	_, ok := c.Find(productID)
	return ok
}

// SignablePayload returns the canonical bytes the certifier signs.
func (c Catalog) SignablePayload() ([]byte, error) {
	c.Signature = ""
	return canonicalize.JCS(c)
}

// Validate rejects malformed catalogs, including duplicate product identifiers.
func (c Catalog) Validate() error {
	var errs fieldErrors
	if canonicalize.Identifier(c.CertifierID) == "" {
		errs.add("certifier_id", "must not be empty")
	}
	if c.ValidUntil.Before(c.ValidFrom) {
		errs.add("valid_until", "must not precede valid_from")
	}
	seen := make(map[string]struct{}, len(c.Products))
	for i, p := range c.Products {
		var perr fieldErrors
		p.collect(&perr)
		for _, e := range perr {
			errs.nest(fmt.Sprintf("products[%d]", i), e)
		}
		id := canonicalize.Identifier(p.ID)
		if _, dup := seen[id]; dup && id != "" {
			errs.add(fmt.Sprintf("products[%d].id", i), "duplicate product %q", p.ID)
		}
		seen[id] = struct{}{}
	}
	return errs.err()
}
