// Package auth binds registry identities to Ed25519 keys.
//
// An identity is the lowercase hex encoding of an Ed25519 public key. A
// caller proves it acts as an identity by presenting a bearer token signed
// with the matching private key:
//
//	base64url( CBOR(claims) || ed25519 signature over the CBOR bytes )
//
// The signature is always the trailing 64 bytes.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/serroba/link-registry/internal/shortener"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenNotYetValid = errors.New("token issued in the future")
	ErrSubjectMismatch  = errors.New("token subject does not match identity")
	ErrInvalidIdentity  = errors.New("identity is not an ed25519 public key")
)

// ClockSkew is how far in the future a token's issue time may lie.
const ClockSkew = 30 * time.Second

// Claims is the signed payload of a bearer token.
type Claims struct {
	Subject   shortener.Identity `cbor:"1,keyasint"`
	IssuedAt  int64              `cbor:"2,keyasint"`
	ExpiresAt int64              `cbor:"3,keyasint"`
}

// IdentityOf returns the identity for a public key.
func IdentityOf(pub ed25519.PublicKey) shortener.Identity {
	return shortener.Identity(hex.EncodeToString(pub))
}

// PublicKey decodes an identity back into its public key.
func PublicKey(id shortener.Identity) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(string(id))
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
	}

	return ed25519.PublicKey(raw), nil
}

// GenerateKey creates a new identity keypair.
func GenerateKey() (shortener.Identity, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", nil, err
	}

	return IdentityOf(pub), priv, nil
}

// Mint signs a token for the identity of priv, valid for ttl from now.
func Mint(priv ed25519.PrivateKey, now time.Time, ttl time.Duration) (string, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return "", ErrInvalidIdentity
	}

	claims := Claims{
		Subject:   IdentityOf(pub),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}

	payload, err := cbor.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encode claims: %w", err)
	}

	signed := append(payload, ed25519.Sign(priv, payload)...)

	return base64.RawURLEncoding.EncodeToString(signed), nil
}

// Parse verifies a token against the identity it claims to act as and
// returns its claims. maxAge bounds how long after issuance the token is
// accepted, on top of its own expiry; zero disables the bound.
func Parse(token string, id shortener.Identity, now time.Time, maxAge time.Duration) (*Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) <= ed25519.SignatureSize {
		return nil, ErrMalformedToken
	}

	split := len(raw) - ed25519.SignatureSize
	payload, signature := raw[:split], raw[split:]

	var claims Claims
	if err = cbor.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	if claims.Subject != id {
		return nil, ErrSubjectMismatch
	}

	pub, err := PublicKey(id)
	if err != nil {
		return nil, err
	}

	if !ed25519.Verify(pub, payload, signature) {
		return nil, ErrInvalidSignature
	}

	unix := now.Unix()
	if claims.IssuedAt > unix+int64(ClockSkew/time.Second) {
		return nil, ErrTokenNotYetValid
	}

	if unix >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}

	if maxAge > 0 && unix-claims.IssuedAt > int64(maxAge/time.Second) {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}
