package aic

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ai-coustics/aic-sdk-go/internal/handle"
)

// VadContext reads and tunes a processor's voice activity detection. Like
// ProcessorContext it references the processor without owning it and fails
// with ErrNotInitialized after the processor is closed.
//
// Detection is driven by processed audio: the decision updates once per
// completed model window and freezes when no audio flows.
type VadContext struct {
	ref handle.Ref
}

func (c *VadContext) resolve() (*procCore, error) {
	core, ok := processors.Get(c.ref)
	if !ok {
		return nil, ErrNotInitialized
	}
	return core, nil
}

// SetParameter validates and publishes a detection parameter. Durations are
// rounded to whole model windows before taking effect.
func (c *VadContext) SetParameter(param VadParameter, value float32) error {
	core, err := c.resolve()
	if err != nil {
		return err
	}
	spec, ok := core.vadSpecs[param]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %s", ErrParameterOutOfRange, param)
	}
	if !spec.contains(value) {
		return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrParameterOutOfRange, param, value, spec.min, spec.max)
	}

	desc := core.model.desc
	switch param {
	case VadParameterSensitivity:
		core.store.Set(spec.slot, value)
		core.det.SetThreshold(sensitivityThreshold(value))

	case VadParameterSpeechHoldDuration:
		windows := desc.WindowsIn(float64(value))
		if windows > maxHoldWindows {
			windows = maxHoldWindows
		}
		core.store.Set(spec.slot, float32(float64(windows)*desc.WindowSeconds()))
		core.det.SetHoldWindows(int32(windows))

	case VadParameterMinimumSpeechDuration:
		windows := desc.WindowsIn(float64(value))
		core.store.Set(spec.slot, float32(float64(windows)*desc.WindowSeconds()))
		core.det.SetMinWindows(int32(windows))
	}

	logrus.WithFields(logrus.Fields{
		"function":  "VadContext.SetParameter",
		"processor": core.instance,
		"parameter": param.String(),
		"value":     value,
	}).Debug("VAD parameter updated")
	return nil
}

// Parameter returns the current value. Durations come back rounded to the
// whole window count actually in effect.
func (c *VadContext) Parameter(param VadParameter) (float32, error) {
	core, err := c.resolve()
	if err != nil {
		return 0, err
	}
	spec, ok := core.vadSpecs[param]
	if !ok {
		return 0, fmt.Errorf("%w: unknown parameter %s", ErrParameterOutOfRange, param)
	}
	return core.store.Get(spec.slot), nil
}

// IsSpeechDetected returns the current detection state. It is a single
// atomic read, safe from any thread including the audio thread.
func (c *VadContext) IsSpeechDetected() (bool, error) {
	core, err := c.resolve()
	if err != nil {
		return false, err
	}
	return core.det.IsSpeechDetected(), nil
}
