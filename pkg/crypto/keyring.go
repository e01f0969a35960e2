package crypto

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// ErrUnknownSigner is returned when a signer id has no trusted key.
var ErrUnknownSigner = errors.New("crypto: unknown signer")

// SignatureVerifier is the verify_signature collaborator.
type SignatureVerifier interface {
	VerifySignature(signerID string, payload []byte, signature string) bool
}

// Keyring is a trust store mapping signer ids (users, certifiers, platforms, auditors)
// to Ed25519 public keys. It verifies hex-encoded detached signatures.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

// NewKeyring creates an empty trust store.
func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string]ed25519.PublicKey)}
}

// Trust registers (or replaces) the public key for a signer.
func (k *Keyring) Trust(signerID string, pub ed25519.PublicKey) error {
	id := canonicalize.Identifier(signerID)
	if id == "" {
		return fmt.Errorf("crypto: signer id must not be empty")
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("crypto: invalid public key size %d", len(pub))
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[id] = append(ed25519.PublicKey(nil), pub...)
	return nil
}

// TrustHex registers a hex-encoded public key.
func (k *Keyring) TrustHex(signerID, pubHex string) error {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	return k.Trust(signerID, pub)
}

// Revoke removes a signer from the trust store.
func (k *Keyring) Revoke(signerID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, canonicalize.Identifier(signerID))
}

// PublicKey returns the trusted key for signerID.
func (k *Keyring) PublicKey(signerID string) (ed25519.PublicKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	pub, ok := k.keys[canonicalize.Identifier(signerID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSigner, signerID)
	}
	return pub, nil
}

// VerifySignature reports whether signature is a valid hex Ed25519 signature by
// signerID over payload. Unknown signers and malformed signatures verify false.
func (k *Keyring) VerifySignature(signerID string, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	pub, err := k.PublicKey(signerID)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}

// DeriveSigner derives a deterministic Ed25519 signer for signerID from a master seed
// using HKDF-SHA256 (seed as IKM, signer id as info). The same seed and id always
// yield the same key, so fixtures and operator keys can be regenerated offline.
func DeriveSigner(masterSeed []byte, signerID string) (*Ed25519Signer, error) {
	id := canonicalize.Identifier(signerID)
	if id == "" {
		return nil, fmt.Errorf("crypto: signer id must not be empty")
	}
	if len(masterSeed) < 16 {
		return nil, fmt.Errorf("crypto: master seed too short (%d bytes)", len(masterSeed))
	}
	r := hkdf.New(sha256.New, masterSeed, []byte("recaudit-keyring-v1"), []byte(id))
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, fmt.Errorf("crypto: hkdf expand: %w", err)
	}
	return NewEd25519SignerFromKey(ed25519.NewKeyFromSeed(seed), id), nil
}
