package aic

import "fmt"

// Parameter identifies a processor parameter. All parameters can be read and
// written from any thread while audio is running; each one is individually
// atomic.
type Parameter uint32

const (
	// ParameterBypass suspends enhancement while preserving the processor's
	// latency, so the host's delay compensation stays valid. Values of 0.5
	// and above engage bypass. Transitions crossfade over one native window
	// to avoid clicks.
	//
	// Range 0..1, default 0.
	ParameterBypass Parameter = iota

	// ParameterEnhancementLevel blends between the original signal and the
	// enhanced signal. 0 passes the (delay-compensated) original through
	// untouched, 1 is fully enhanced.
	//
	// Range 0..1, default 1.
	ParameterEnhancementLevel

	// ParameterVoiceGain scales the extracted voice signal before it is
	// blended back. Applies only to the enhanced portion.
	//
	// Range 0.1..4, default 1.
	ParameterVoiceGain
)

// String returns the parameter's identifier name.
func (p Parameter) String() string {
	switch p {
	case ParameterBypass:
		return "bypass"
	case ParameterEnhancementLevel:
		return "enhancement_level"
	case ParameterVoiceGain:
		return "voice_gain"
	}
	return fmt.Sprintf("Parameter(%d)", uint32(p))
}

// VadParameter identifies a voice activity detection parameter.
type VadParameter uint32

const (
	// VadParameterSpeechHoldDuration is how long, in seconds, speech stays
	// reported after the signal goes quiet. The value is rounded to whole
	// model windows; reading it back returns the rounded value.
	//
	// Range 0 to 20 windows worth of seconds, default 0.05.
	VadParameterSpeechHoldDuration VadParameter = iota

	// VadParameterSensitivity sets the energy threshold to 10^-value.
	// Higher values detect quieter speech.
	//
	// Range 1..15, default 6.
	VadParameterSensitivity

	// VadParameterMinimumSpeechDuration is how long, in seconds, energy must
	// stay above the threshold before speech is reported. Rounded to whole
	// model windows.
	//
	// Range 0..1, default 0.
	VadParameterMinimumSpeechDuration
)

// String returns the parameter's identifier name.
func (p VadParameter) String() string {
	switch p {
	case VadParameterSpeechHoldDuration:
		return "vad_speech_hold_duration"
	case VadParameterSensitivity:
		return "vad_sensitivity"
	case VadParameterMinimumSpeechDuration:
		return "vad_minimum_speech_duration"
	}
	return fmt.Sprintf("VadParameter(%d)", uint32(p))
}

// maxHoldWindows caps the speech hold duration in native windows. It also
// bounds the detector history the hold logic looks back over.
const maxHoldWindows = 20

// maxMinSpeechSeconds caps the minimum speech duration.
const maxMinSpeechSeconds = 1.0

// Parameter store slots. Every parameter owns one atomic float32.
const (
	slotBypass = iota
	slotLevel
	slotGain
	slotVadHold
	slotVadSensitivity
	slotVadMinDuration
	slotCount
)

// paramSpec is one row of the parameter table: the store slot plus the
// validation range and default for one parameter identity.
type paramSpec struct {
	slot     int
	min, max float32
	def      float32
}

func (s paramSpec) contains(v float32) bool {
	// Written so NaN fails.
	return v >= s.min && v <= s.max
}

var processorParamSpecs = map[Parameter]paramSpec{
	ParameterBypass:           {slot: slotBypass, min: 0, max: 1, def: 0},
	ParameterEnhancementLevel: {slot: slotLevel, min: 0, max: 1, def: 1},
	ParameterVoiceGain:        {slot: slotGain, min: 0.1, max: 4, def: 1},
}

// vadParamSpecs resolves the VAD parameter table for a model. The hold
// duration bound depends on the model's window duration, so the table is
// built per processor.
func vadParamSpecs(windowSeconds float64) map[VadParameter]paramSpec {
	maxHold := float32(maxHoldWindows * windowSeconds)
	defHold := float32(0.05)
	if defHold > maxHold {
		defHold = maxHold
	}
	return map[VadParameter]paramSpec{
		VadParameterSpeechHoldDuration:    {slot: slotVadHold, min: 0, max: maxHold, def: defHold},
		VadParameterSensitivity:           {slot: slotVadSensitivity, min: 1, max: 15, def: 6},
		VadParameterMinimumSpeechDuration: {slot: slotVadMinDuration, min: 0, max: maxMinSpeechSeconds, def: 0},
	}
}
