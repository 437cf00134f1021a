package modelfile

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() *Descriptor {
	return &Descriptor{
		ID:               "quail-l-16khz",
		Engine:           1,
		NativeSampleRate: 16000,
		NativeWindow:     160,
		IntrinsicDelay:   480,
		OpenThreshold:    0.02,
		FloorGain:        0.05,
		AttackMs:         1,
		ReleaseMs:        40,
		Payload:          []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
}

func TestMarshalParseRoundTrip(t *testing.T) {
	want := testDescriptor()
	want.LevelFixed = true

	data, err := Marshal(want)
	require.NoError(t, err)

	got, err := Parse(AlignedCopy(data))
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, SupportedVersion, got.Version)
	assert.Equal(t, want.Engine, got.Engine)
	assert.True(t, got.LevelFixed)
	assert.Equal(t, want.NativeSampleRate, got.NativeSampleRate)
	assert.Equal(t, want.NativeWindow, got.NativeWindow)
	assert.Equal(t, want.IntrinsicDelay, got.IntrinsicDelay)
	assert.Equal(t, want.OpenThreshold, got.OpenThreshold)
	assert.Equal(t, want.FloorGain, got.FloorGain)
	assert.Equal(t, want.AttackMs, got.AttackMs)
	assert.Equal(t, want.ReleaseMs, got.ReleaseMs)
	assert.Equal(t, want.Payload, got.Payload)
}

func TestParseRejectsUnaligned(t *testing.T) {
	data, err := Marshal(testDescriptor())
	require.NoError(t, err)

	aligned := AlignedCopy(append([]byte{0}, data...))
	_, err = Parse(aligned[1:])
	assert.ErrorIs(t, err, ErrUnaligned)
}

func TestParseRejectsBadMagic(t *testing.T) {
	data, err := Marshal(testDescriptor())
	require.NoError(t, err)
	buf := AlignedCopy(data)
	buf[0] = 'X'
	_, err = Parse(buf)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestParseRejectsWrongVersion(t *testing.T) {
	data, err := Marshal(testDescriptor())
	require.NoError(t, err)
	buf := AlignedCopy(data)
	binary.BigEndian.PutUint32(buf[4:8], SupportedVersion+1)
	_, err = Parse(buf)
	assert.ErrorIs(t, err, ErrVersion)
}

func TestParseDetectsCorruption(t *testing.T) {
	data, err := Marshal(testDescriptor())
	require.NoError(t, err)
	buf := AlignedCopy(data)
	buf[len(buf)-6] ^= 0xff // flip a payload byte, keep the stored CRC
	_, err = Parse(buf)
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestParseRejectsTruncation(t *testing.T) {
	data, err := Marshal(testDescriptor())
	require.NoError(t, err)
	for _, n := range []int{0, 4, 10, len(data) - 1} {
		buf := AlignedCopy(data[:n])
		_, err := Parse(buf)
		assert.Errorf(t, err, "truncated to %d bytes", n)
	}
}

func TestParseEmptyPayload(t *testing.T) {
	d := testDescriptor()
	d.Payload = nil
	data, err := Marshal(d)
	require.NoError(t, err)
	got, err := Parse(AlignedCopy(data))
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestMarshalRejectsBadDescriptor(t *testing.T) {
	d := testDescriptor()
	d.ID = ""
	_, err := Marshal(d)
	assert.Error(t, err)

	d = testDescriptor()
	d.NativeWindow = 0
	_, err = Marshal(d)
	assert.Error(t, err)
}

func TestWindowScalesWithRate(t *testing.T) {
	d := testDescriptor() // 160 frames at 16 kHz, 10 ms

	tests := []struct {
		rate uint32
		want int
	}{
		{16000, 160},
		{48000, 480},
		{8000, 80},
		{44100, 441},
		{22050, 221}, // 220.5 rounds up
	}
	for _, tt := range tests {
		assert.Equalf(t, tt.want, d.WindowAt(tt.rate), "rate %d", tt.rate)
	}
}

func TestIntrinsicDelayScalesWithRate(t *testing.T) {
	d := testDescriptor() // 480 frames at 16 kHz, 30 ms
	assert.Equal(t, 480, d.IntrinsicDelayAt(16000))
	assert.Equal(t, 1440, d.IntrinsicDelayAt(48000))
	assert.Equal(t, 240, d.IntrinsicDelayAt(8000))
}

func TestWindowsInRoundsToNearest(t *testing.T) {
	d := testDescriptor() // 10 ms windows

	assert.Equal(t, 5, d.WindowsIn(0.05))
	assert.Equal(t, 0, d.WindowsIn(0.004))
	assert.Equal(t, 1, d.WindowsIn(0.006))
	assert.Equal(t, 1, d.WindowsIn(0.005)) // exactly half rounds away from zero
	assert.Equal(t, 100, d.WindowsIn(1))
	assert.InDelta(t, 0.01, d.WindowSeconds(), 1e-9)
}

func TestLoadAndWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.aicmodel")
	want := testDescriptor()
	require.NoError(t, WriteFile(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Payload, got.Payload)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.aicmodel"))
	assert.Error(t, err)
}
