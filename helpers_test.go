package aic

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/nacl/sign"

	"github.com/ai-coustics/aic-sdk-go/internal/modelfile"
	"github.com/ai-coustics/aic-sdk-go/license"
)

// identityDescriptor describes a passthrough model: no intrinsic latency, so
// enhanced output equals input sample for sample. Most behavioral tests use
// it because expected audio can be computed by hand.
func identityDescriptor() *modelfile.Descriptor {
	return &modelfile.Descriptor{
		ID:               "quail-l-16khz",
		Engine:           2,
		NativeSampleRate: 16000,
		NativeWindow:     160,
		IntrinsicDelay:   0,
		Payload:          []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
}

// gateDescriptor describes the lookahead gate with real tuning and latency.
func gateDescriptor() *modelfile.Descriptor {
	return &modelfile.Descriptor{
		ID:               "finch-l-16khz",
		Engine:           1,
		NativeSampleRate: 16000,
		NativeWindow:     160,
		IntrinsicDelay:   480,
		OpenThreshold:    0.02,
		FloorGain:        0.05,
		AttackMs:         1,
		ReleaseMs:        40,
		Payload:          make([]byte, 64),
	}
}

func newTestModel(t testing.TB, desc *modelfile.Descriptor) *Model {
	t.Helper()
	data, err := modelfile.Marshal(desc)
	require.NoError(t, err)
	m, err := LoadModelFromBuffer(modelfile.AlignedCopy(data))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// installTestIssuer swaps the package verifier for one bound to a freshly
// generated key pair and returns the signing key for minting test licenses.
func installTestIssuer(t testing.TB) *[64]byte {
	t.Helper()
	pub, priv, err := sign.GenerateKey(rand.Reader)
	require.NoError(t, err)
	prev := licenseVerifier
	licenseVerifier = license.NewVerifierWithKey(*pub)
	t.Cleanup(func() { licenseVerifier = prev })
	return priv
}

func mintKey(t testing.TB, priv *[64]byte, claims license.Claims) string {
	t.Helper()
	key, err := license.Sign(claims, priv)
	require.NoError(t, err)
	return key
}

// testLicense installs a test issuer and returns a perpetual key covering
// this SDK generation.
func testLicense(t testing.TB) string {
	t.Helper()
	priv := installTestIssuer(t)
	return mintKey(t, priv, license.Claims{
		LicenseID:     "lic-test",
		Edition:       "enterprise",
		IssuedAt:      time.Now().Unix(),
		MinGeneration: sdkGeneration,
		MaxGeneration: sdkGeneration,
	})
}

// newTestProcessor builds a licensed processor over desc, initialized for
// cfg. Pass a zero config to leave it uninitialized.
func newTestProcessor(t testing.TB, desc *modelfile.Descriptor, cfg ProcessorConfig) *Processor {
	t.Helper()
	model := newTestModel(t, desc)
	p, err := NewProcessor(model, testLicense(t))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	if cfg.SampleRate != 0 {
		require.NoError(t, p.Initialize(cfg))
	}
	return p
}

// rampSignal fills n samples with a deterministic non-repeating pattern that
// stays well inside -1..1.
func rampSignal(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%997)/1994 - 0.25
	}
	return out
}
