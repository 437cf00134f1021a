// Package license parses and verifies SDK license keys.
//
// A key is the string "AIC<generation>." followed by the base64url encoding
// of a NaCl-signed JSON claims document. Verification is fully offline: the
// signature is checked against the publisher key compiled into the SDK, then
// the expiry and the covered SDK generation range are enforced. No network
// call is ever made.
package license

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/sign"
)

// keyGeneration is the key format generation this SDK understands.
const keyGeneration = 1

// License errors.
var (
	ErrFormat  = errors.New("license key format invalid")
	ErrVersion = errors.New("license key version not supported")
	ErrExpired = errors.New("license key expired")
)

// Claims is the signed payload of a license key.
type Claims struct {
	LicenseID string `json:"lid"`
	Edition   string `json:"edition"`
	IssuedAt  int64  `json:"iat"`
	// ExpiresAt is a unix timestamp; zero means the key never expires.
	ExpiresAt int64 `json:"exp"`
	// MinGeneration and MaxGeneration bound the SDK generations the key
	// covers.
	MinGeneration uint32 `json:"ming"`
	MaxGeneration uint32 `json:"maxg"`
}

// publisherKey verifies keys issued by the ai-coustics licensing service.
var publisherKey = &[32]byte{
	0x6b, 0x1d, 0xe1, 0x0c, 0x9a, 0x54, 0x3b, 0x77,
	0x52, 0xe0, 0x8f, 0x21, 0xc4, 0x04, 0xad, 0x39,
	0x9e, 0xbb, 0x6a, 0xf3, 0x47, 0xd8, 0x10, 0x65,
	0x2f, 0x92, 0xcd, 0x5e, 0x83, 0x1a, 0xf0, 0x28,
}

// Verifier checks license keys against a verification key and a clock.
type Verifier struct {
	key *[32]byte
	now func() time.Time
}

// NewVerifier returns a verifier bound to the publisher key.
func NewVerifier() *Verifier {
	return &Verifier{key: publisherKey, now: time.Now}
}

// NewVerifierWithKey returns a verifier bound to a custom verification key.
// Entitlement tooling and tests use it with keys they generated themselves.
func NewVerifierWithKey(pub [32]byte) *Verifier {
	k := pub
	return &Verifier{key: &k, now: time.Now}
}

// WithClock replaces the verifier's time source.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	v.now = now
	return v
}

// Verify checks key and returns its claims if the key is authentic, unexpired
// and covers the given SDK generation.
func (v *Verifier) Verify(key string, sdkGeneration uint32) (*Claims, error) {
	rest, ok := strings.CutPrefix(key, "AIC")
	if !ok {
		return nil, fmt.Errorf("%w: missing AIC prefix", ErrFormat)
	}
	genStr, body, ok := strings.Cut(rest, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing generation separator", ErrFormat)
	}
	gen, err := strconv.Atoi(genStr)
	if err != nil {
		return nil, fmt.Errorf("%w: bad generation %q", ErrFormat, genStr)
	}
	if gen != keyGeneration {
		return nil, fmt.Errorf("%w: key generation %d", ErrVersion, gen)
	}

	signed, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	payload, ok := sign.Open(nil, signed, v.key)
	if !ok {
		return nil, fmt.Errorf("%w: signature check failed", ErrFormat)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if claims.ExpiresAt != 0 && v.now().After(time.Unix(claims.ExpiresAt, 0)) {
		return nil, fmt.Errorf("%w: expired %s", ErrExpired, time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}
	if sdkGeneration < claims.MinGeneration || sdkGeneration > claims.MaxGeneration {
		return nil, fmt.Errorf("%w: key covers generations %d..%d", ErrVersion, claims.MinGeneration, claims.MaxGeneration)
	}
	return &claims, nil
}

// Sign produces a key for the given claims. It is the counterpart of Verify
// and exists for entitlement tooling and tests; the SDK itself never signs.
func Sign(claims Claims, priv *[64]byte) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	signed := sign.Sign(nil, payload, priv)
	return fmt.Sprintf("AIC%d.%s", keyGeneration, base64.RawURLEncoding.EncodeToString(signed)), nil
}
