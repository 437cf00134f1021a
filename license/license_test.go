package license

import (
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/nacl/sign"
)

func newTestPair(t *testing.T) (*Verifier, *[64]byte) {
	t.Helper()
	pub, priv, err := sign.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return NewVerifierWithKey(*pub), priv
}

func validClaims() Claims {
	return Claims{
		LicenseID:     "lic-0001",
		Edition:       "pro",
		IssuedAt:      time.Now().Add(-time.Hour).Unix(),
		ExpiresAt:     time.Now().Add(24 * time.Hour).Unix(),
		MinGeneration: 1,
		MaxGeneration: 2,
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	v, priv := newTestPair(t)

	key, err := Sign(validClaims(), priv)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "AIC1."))

	claims, err := v.Verify(key, 1)
	require.NoError(t, err)
	assert.Equal(t, "lic-0001", claims.LicenseID)
	assert.Equal(t, "pro", claims.Edition)
}

func TestPerpetualKeyNeverExpires(t *testing.T) {
	v, priv := newTestPair(t)
	c := validClaims()
	c.ExpiresAt = 0
	key, err := Sign(c, priv)
	require.NoError(t, err)

	v.WithClock(func() time.Time { return time.Now().AddDate(100, 0, 0) })
	_, err = v.Verify(key, 1)
	assert.NoError(t, err)
}

func TestExpiredKey(t *testing.T) {
	v, priv := newTestPair(t)
	c := validClaims()
	c.ExpiresAt = time.Now().Add(-time.Minute).Unix()
	key, err := Sign(c, priv)
	require.NoError(t, err)

	_, err = v.Verify(key, 1)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestGenerationOutsideClaimRange(t *testing.T) {
	v, priv := newTestPair(t)
	key, err := Sign(validClaims(), priv) // covers generations 1..2
	require.NoError(t, err)

	_, err = v.Verify(key, 3)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestUnsupportedKeyGeneration(t *testing.T) {
	v, _ := newTestPair(t)
	_, err := v.Verify("AIC9.AAAA", 1)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestMalformedKeys(t *testing.T) {
	v, priv := newTestPair(t)
	good, err := Sign(validClaims(), priv)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"wrong prefix", "XYZ1." + good[5:]},
		{"no separator", "AIC1" + good[5:]},
		{"non-numeric generation", "AICx." + good[5:]},
		{"bad base64", "AIC1.!!!not-base64!!!"},
		{"truncated signature", good[:len(good)/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.key, 1)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestTamperedPayloadFailsSignature(t *testing.T) {
	v, priv := newTestPair(t)
	key, err := Sign(validClaims(), priv)
	require.NoError(t, err)

	// Flip one character inside the base64 body.
	body := []byte(key)
	i := len(body) - 2
	if body[i] == 'A' {
		body[i] = 'B'
	} else {
		body[i] = 'A'
	}
	_, err = v.Verify(string(body), 1)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestWrongIssuerKeyRejected(t *testing.T) {
	_, priv := newTestPair(t)
	other, _ := newTestPair(t)

	key, err := Sign(validClaims(), priv)
	require.NoError(t, err)

	_, err = other.Verify(key, 1)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestProductionVerifierRejectsForeignKeys(t *testing.T) {
	_, priv := newTestPair(t)
	key, err := Sign(validClaims(), priv)
	require.NoError(t, err)

	_, err = NewVerifier().Verify(key, 1)
	assert.Error(t, err)
}
