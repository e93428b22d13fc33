package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Signer mints signed access credentials.
type Signer interface {
	Sign(claims Claims) (string, error)
}

// Verifier validates an access credential and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSAKeyPair signs and verifies access credentials with Ed25519. Keys are
// ephemeral per process; outstanding credentials die with the process, which
// is acceptable because sessions re-mint via their refresh credential.
type EdDSAKeyPair struct {
	kid    string
	key    ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// NewEdDSAKeyPair generates a fresh Ed25519 keypair for the given issuer.
func NewEdDSAKeyPair(kid, issuer string) (*EdDSAKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ed25519 key: %w", err)
	}
	return &EdDSAKeyPair{kid: kid, key: priv, pub: pub, issuer: issuer}, nil
}

func (k *EdDSAKeyPair) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (k *EdDSAKeyPair) KID() string { return k.kid }

// Sign turns claims into a signed JWT string.
func (k *EdDSAKeyPair) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = k.kid
	return t.SignedString(k.key)
}

// Verify parses and validates a token, enforcing the EdDSA algorithm and the
// configured issuer. Expiry is validated with no leeway.
func (k *EdDSAKeyPair) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, ErrAlgMismatch
		}
		return k.pub, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, ErrAlgMismatch) {
			return Claims{}, ErrAlgMismatch
		}
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, ErrMalformed
		}
		return Claims{}, ErrInvalidSig
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(k.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return claims, nil
}
