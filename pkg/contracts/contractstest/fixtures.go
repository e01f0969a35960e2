// Package contractstest builds signed recommendation contexts for tests.
package contractstest

import (
	"bytes"
	"testing"
	"time"

	"github.com/Mindburn-Labs/recaudit/pkg/contracts"
	"github.com/Mindburn-Labs/recaudit/pkg/crypto"
)

// Well-known signer identities used by the fixtures.
const (
	OwnerID     = "user-alice"
	CertifierID = "certifier-acme"
	PlatformID  = "platform-shopbot"
	AuditorID   = "auditor-1"
)

// Seed is the deterministic master seed every fixture signer is derived from.
var Seed = bytes.Repeat([]byte{0x5a}, 32)

// Epoch is the fixed evaluation time of every fixture.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Env holds the fixture signers and a keyring trusting all of them.
type Env struct {
	Owner     *crypto.Ed25519Signer
	Certifier *crypto.Ed25519Signer
	Platform  *crypto.Ed25519Signer
	Auditor   *crypto.Ed25519Signer
	Keyring   *crypto.Keyring
}

// NewEnv derives the fixture signers and trusts them.
func NewEnv(t testing.TB) *Env {
	t.Helper()
	env := &Env{Keyring: crypto.NewKeyring()}
	for id, dst := range map[string]**crypto.Ed25519Signer{
		OwnerID:     &env.Owner,
		CertifierID: &env.Certifier,
		PlatformID:  &env.Platform,
		AuditorID:   &env.Auditor,
	} {
		s, err := crypto.DeriveSigner(Seed, id)
		if err != nil {
			t.Fatalf("derive %s: %v", id, err)
		}
		if err := env.Keyring.Trust(id, s.PublicKey()); err != nil {
			t.Fatalf("trust %s: %v", id, err)
		}
		*dst = s
	}
	return env
}

// Laptop1 and Laptop2 are the two qualifying laptops of the basic scenario.
// Under Preference, Laptop1 scores 670 and Laptop2 scores 715.
func Laptop1() contracts.Product {
	return contracts.Product{
		ID: "laptop-1", BrandID: "brand-a", Price: 129900, Rating: 920, ReviewCount: 120,
		Features: []string{"SSD", "16GB RAM", "Backlit Keyboard"}, Sustainability: 736,
		Available: true, Certified: true,
	}
}

func Laptop2() contracts.Product {
	return contracts.Product{
		ID: "laptop-2", BrandID: "brand-b", Price: 89900, Rating: 850, ReviewCount: 45,
		Features: []string{"SSD", "16GB RAM"}, Sustainability: 600,
		Available: true, Certified: true,
	}
}

// Preference returns the unsigned basic-scenario preference.
func Preference() contracts.UserPreference {
	return contracts.UserPreference{
		OwnerID: OwnerID,
		Weights: contracts.PreferenceWeights{Price: 300, Quality: 400, Features: 200, Brand: 50, Sustainability: 50},
		Constraints: contracts.UserConstraints{
			MaxBudget:        150000,
			MinRating:        800,
			RequiredFeatures: []string{"SSD", "16GB RAM"},
		},
		IssuedAt: Epoch.Add(-24 * time.Hour),
	}
}

// Catalog returns an unsigned catalog valid one day either side of Epoch.
func Catalog(products ...contracts.Product) contracts.Catalog {
	return contracts.Catalog{
		Products:    products,
		ValidFrom:   Epoch.Add(-24 * time.Hour),
		ValidUntil:  Epoch.Add(24 * time.Hour),
		CertifierID: CertifierID,
	}
}

// Affiliate returns a compliant affiliate disclosure for productID.
func Affiliate(productID string) contracts.Disclosure {
	return contracts.Disclosure{
		ProductID:     productID,
		Relationship:  contracts.RelationshipAffiliate,
		PaymentAmount: 500,
		PaymentType:   "commission",
		Disclosed:     true,
		Prominence:    3,
		Timestamp:     Epoch.Add(-time.Hour),
	}
}

// SignPreference signs p with the owner key.
func (e *Env) SignPreference(t testing.TB, p contracts.UserPreference) contracts.UserPreference {
	t.Helper()
	sig, err := crypto.SignRecord(e.Owner, p)
	if err != nil {
		t.Fatalf("sign preference: %v", err)
	}
	p.Signature = sig
	return p
}

// SignCatalog signs c with the certifier key.
func (e *Env) SignCatalog(t testing.TB, c contracts.Catalog) contracts.Catalog {
	t.Helper()
	sig, err := crypto.SignRecord(e.Certifier, c)
	if err != nil {
		t.Fatalf("sign catalog: %v", err)
	}
	c.Signature = sig
	return c
}

// Context signs pref and cat and assembles a context evaluated at Epoch.
func (e *Env) Context(t testing.TB, pref contracts.UserPreference, cat contracts.Catalog, ds ...contracts.Disclosure) contracts.RecommendationContext {
	t.Helper()
	return contracts.RecommendationContext{
		Preference:  e.SignPreference(t, pref),
		Catalog:     e.SignCatalog(t, cat),
		Disclosures: ds,
		Timestamp:   Epoch,
	}
}

// BasicContext is the two-laptop scenario with the given disclosures.
func (e *Env) BasicContext(t testing.TB, ds ...contracts.Disclosure) contracts.RecommendationContext {
	t.Helper()
	return e.Context(t, Preference(), Catalog(Laptop1(), Laptop2()), ds...)
}

// Recommend builds a recommendation issued at Epoch.
func Recommend(productID string, rank int) contracts.Recommendation {
	return contracts.Recommendation{ProductID: productID, Rank: rank, ExplanationRef: "expl-" + productID, Timestamp: Epoch}
}

// Record builds an audit record whose evidence hash commits to rc and rec, audited
// one second after Epoch.
func (e *Env) Record(t testing.TB, auditID string, rc contracts.RecommendationContext, rec contracts.Recommendation) contracts.AuditRecord {
	t.Helper()
	h, err := crypto.NewCanonicalHasher().CommitHash(rc, rec)
	if err != nil {
		t.Fatalf("commit hash: %v", err)
	}
	return contracts.AuditRecord{
		AuditID:        auditID,
		PlatformID:     PlatformID,
		Context:        rc,
		Recommendation: rec,
		EvidenceHash:   h,
		AuditorID:      AuditorID,
		Timestamp:      Epoch.Add(time.Second),
	}
}
