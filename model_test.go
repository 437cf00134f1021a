package aic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-coustics/aic-sdk-go/internal/modelfile"
)

func TestLoadModelFromFile(t *testing.T) {
	desc := identityDescriptor()
	path := filepath.Join(t.TempDir(), "quail-l-16khz.aicm")
	require.NoError(t, modelfile.WriteFile(path, desc))

	m, err := LoadModel(path)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, "quail-l-16khz", m.ID())
	assert.Equal(t, uint32(16000), m.OptimalSampleRate())
}

func TestLoadModelPathErrors(t *testing.T) {
	_, err := LoadModel("")
	assert.ErrorIs(t, err, ErrModelFilePathInvalid)

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.aicm"))
	assert.ErrorIs(t, err, ErrModelFilePathInvalid)

	// A directory is readable as a path but not as a file.
	_, err = LoadModel(t.TempDir())
	assert.ErrorIs(t, err, ErrFileSystem)
}

func TestLoadModelRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.aicm")
	require.NoError(t, os.WriteFile(path, []byte("not a model container"), 0o600))

	_, err := LoadModel(path)
	assert.ErrorIs(t, err, ErrModelInvalid)
}

func TestLoadModelFromBufferErrors(t *testing.T) {
	data, err := modelfile.Marshal(identityDescriptor())
	require.NoError(t, err)

	_, err = LoadModelFromBuffer(nil)
	assert.ErrorIs(t, err, ErrNullArgument)

	aligned := modelfile.AlignedCopy(data)
	_, err = LoadModelFromBuffer(aligned[1:])
	assert.ErrorIs(t, err, ErrModelDataUnaligned)

	// Corrupt one payload byte so the checksum no longer matches.
	corrupted := modelfile.AlignedCopy(data)
	corrupted[len(corrupted)-6] ^= 0xff
	_, err = LoadModelFromBuffer(corrupted)
	assert.ErrorIs(t, err, ErrModelInvalid)
}

func TestLoadModelRejectsFutureVersion(t *testing.T) {
	data, err := modelfile.Marshal(identityDescriptor())
	require.NoError(t, err)

	// The version field sits right after the four magic bytes. The version
	// check runs before the checksum, so no fixup is needed.
	future := modelfile.AlignedCopy(data)
	future[7] = 9

	_, err = LoadModelFromBuffer(future)
	assert.ErrorIs(t, err, ErrModelVersionUnsupported)
}

func TestOptimalNumFrames(t *testing.T) {
	m := newTestModel(t, identityDescriptor())

	frames, err := m.OptimalNumFrames(16000)
	require.NoError(t, err)
	assert.Equal(t, 160, frames)

	frames, err = m.OptimalNumFrames(48000)
	require.NoError(t, err)
	assert.Equal(t, 480, frames)

	frames, err = m.OptimalNumFrames(44100)
	require.NoError(t, err)
	assert.Equal(t, 441, frames)

	_, err = m.OptimalNumFrames(4000)
	assert.ErrorIs(t, err, ErrAudioConfigUnsupported)
}

func TestOptimalConfig(t *testing.T) {
	m := newTestModel(t, gateDescriptor())

	cfg := m.OptimalConfig()
	assert.Equal(t, uint32(16000), cfg.SampleRate)
	assert.Equal(t, uint16(1), cfg.NumChannels)
	assert.Equal(t, 160, cfg.NumFrames)
	assert.False(t, cfg.AllowVariableFrames)
}

func TestModelOutlivesCloseWhileProcessorHoldsIt(t *testing.T) {
	m := newTestModel(t, identityDescriptor())
	p, err := NewProcessor(m, testLicense(t))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Equal(t, int32(1), m.refs.Load())

	// The processor keeps working from the retained model.
	require.NoError(t, p.Initialize(m.OptimalConfig()))
	buf := rampSignal(160)
	require.NoError(t, p.ProcessInterleaved(buf))

	require.NoError(t, p.Close())
	assert.Equal(t, int32(0), m.refs.Load())
}

func TestModelCloseIsIdempotent(t *testing.T) {
	m := newTestModel(t, identityDescriptor())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Equal(t, int32(0), m.refs.Load())
}

func TestNewProcessorRejectsClosedModel(t *testing.T) {
	m := newTestModel(t, identityDescriptor())
	key := testLicense(t)
	require.NoError(t, m.Close())

	_, err := NewProcessor(m, key)
	assert.ErrorIs(t, err, ErrModelInvalid)
}

func TestVersionReporting(t *testing.T) {
	assert.NotEmpty(t, Version())
	assert.Equal(t, uint32(1), CompatibleModelVersion())
}
