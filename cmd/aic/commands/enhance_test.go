package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
enhancement_level: 0.8
voice_gain: 1.5
vad:
  sensitivity: 8
  speech_hold_duration: 0.1
`), 0o600))

	s, err := loadSettings(path)
	require.NoError(t, err)

	require.NotNil(t, s.EnhancementLevel)
	assert.Equal(t, float32(0.8), *s.EnhancementLevel)
	require.NotNil(t, s.VoiceGain)
	assert.Equal(t, float32(1.5), *s.VoiceGain)
	assert.Nil(t, s.Bypass)

	require.NotNil(t, s.Vad.Sensitivity)
	assert.Equal(t, float32(8), *s.Vad.Sensitivity)
	require.NotNil(t, s.Vad.SpeechHoldDuration)
	assert.InDelta(t, 0.1, *s.Vad.SpeechHoldDuration, 1e-6)
	assert.Nil(t, s.Vad.MinimumSpeechDuration)
}

func TestLoadSettingsRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("enhancement_level: [0.8"), 0o600))

	_, err := loadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := loadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	restoreOutput, restoreDir := enhanceOutput, enhanceOutDir
	t.Cleanup(func() {
		enhanceOutput, enhanceOutDir = restoreOutput, restoreDir
	})

	enhanceOutput, enhanceOutDir = "", ""
	assert.Equal(t,
		filepath.Join("recordings", "call.enhanced.wav"),
		outputPath(filepath.Join("recordings", "call.wav")))
	assert.Equal(t,
		filepath.Join("recordings", "call.enhanced.wav"),
		outputPath(filepath.Join("recordings", "call.ogg")))

	enhanceOutDir = "out"
	assert.Equal(t,
		filepath.Join("out", "call.enhanced.wav"),
		outputPath(filepath.Join("recordings", "call.wav")))

	enhanceOutput = "final.wav"
	assert.Equal(t, "final.wav", outputPath("anything.wav"))
}
