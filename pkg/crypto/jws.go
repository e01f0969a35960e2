package crypto

import (
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mindburn-Labs/recaudit/pkg/canonicalize"
)

// payloadClaims binds a compact JWS to the digest of a canonical payload.
type payloadClaims struct {
	Digest string `json:"digest"`
	jwt.RegisteredClaims
}

// IssueJWS signs the payload digest as an EdDSA JWT with the signer's key id as subject.
// Wallet-style signers (users, certifiers) commonly emit this form instead of a raw
// detached signature.
func IssueJWS(s *Ed25519Signer, payload []byte, issuedAt time.Time) (string, error) {
	claims := payloadClaims{
		Digest: canonicalize.HashBytes(payload),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  s.KeyID(),
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.KeyID()
	return token.SignedString(s.PrivateKey())
}

// JWSVerifier verifies compact EdDSA JWS signatures whose digest claim matches the
// payload and whose subject is the expected signer.
type JWSVerifier struct {
	keys *Keyring
}

func NewJWSVerifier(keys *Keyring) *JWSVerifier {
	return &JWSVerifier{keys: keys}
}

func (v *JWSVerifier) VerifySignature(signerID string, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	claims := &payloadClaims{}
	token, err := jwt.ParseWithClaims(signature, claims,
		func(t *jwt.Token) (any, error) {
			pub, err := v.keys.PublicKey(signerID)
			if err != nil {
				return nil, err
			}
			return ed25519.PublicKey(pub), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
	)
	if err != nil || !token.Valid {
		return false
	}
	if canonicalize.Identifier(claims.Subject) != canonicalize.Identifier(signerID) {
		return false
	}
	return HashesEqual(claims.Digest, canonicalize.HashBytes(payload))
}

// DispatchVerifier accepts both signature encodings: compact JWS (three dot-separated
// segments) and hex detached Ed25519.
type DispatchVerifier struct {
	detached *Keyring
	jws      *JWSVerifier
}

func NewDispatchVerifier(keys *Keyring) *DispatchVerifier {
	return &DispatchVerifier{detached: keys, jws: NewJWSVerifier(keys)}
}

func (d *DispatchVerifier) VerifySignature(signerID string, payload []byte, signature string) bool {
	if strings.Count(signature, ".") == 2 {
		return d.jws.VerifySignature(signerID, payload, signature)
	}
	return d.detached.VerifySignature(signerID, payload, signature)
}
