package aic

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ai-coustics/aic-sdk-go/internal/handle"
)

// ProcessorContext tunes a processor's parameters and queries its state. It
// holds a reference, not ownership: once the processor is closed every
// method returns ErrNotInitialized instead of touching recycled state, so
// contexts can be handed to UI or automation threads without lifetime
// coordination.
type ProcessorContext struct {
	ref handle.Ref
}

func (c *ProcessorContext) resolve() (*procCore, error) {
	core, ok := processors.Get(c.ref)
	if !ok {
		return nil, ErrNotInitialized
	}
	return core, nil
}

// SetParameter validates value against the parameter's range and publishes
// it atomically. The audio thread picks the new value up on its next call.
func (c *ProcessorContext) SetParameter(param Parameter, value float32) error {
	core, err := c.resolve()
	if err != nil {
		return err
	}
	spec, ok := processorParamSpecs[param]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %s", ErrParameterOutOfRange, param)
	}
	if !spec.contains(value) {
		return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrParameterOutOfRange, param, value, spec.min, spec.max)
	}
	if param == ParameterEnhancementLevel && core.levelFixed && value != spec.def {
		return fmt.Errorf("%w: %s is fixed for model %s", ErrParameterFixed, param, core.model.ID())
	}

	core.store.Set(spec.slot, value)
	logrus.WithFields(logrus.Fields{
		"function":  "ProcessorContext.SetParameter",
		"processor": core.instance,
		"parameter": param.String(),
		"value":     value,
	}).Debug("Parameter updated")
	return nil
}

// Parameter returns the parameter's current value.
func (c *ProcessorContext) Parameter(param Parameter) (float32, error) {
	core, err := c.resolve()
	if err != nil {
		return 0, err
	}
	spec, ok := processorParamSpecs[param]
	if !ok {
		return 0, fmt.Errorf("%w: unknown parameter %s", ErrParameterOutOfRange, param)
	}
	return core.store.Get(spec.slot), nil
}

// OutputDelay returns the processor's latency in frames at the initialized
// sample rate. Before initialization it reports the model's intrinsic delay
// at the model's native rate, so hosts can pre-configure delay compensation.
func (c *ProcessorContext) OutputDelay() (int, error) {
	core, err := c.resolve()
	if err != nil {
		return 0, err
	}
	if a := core.adapter.Load(); a != nil {
		return a.OutputDelay(), nil
	}
	return int(core.model.desc.IntrinsicDelay), nil
}

// Reset drops all buffered audio and detection state, returning the
// processor to its freshly initialized condition. Parameter values persist.
// Reset is real-time safe; the work is bounded by the delay line lengths and
// it never allocates or logs.
func (c *ProcessorContext) Reset() error {
	core, ok := processors.Get(c.ref)
	if !ok {
		return ErrNotInitialized
	}
	a := core.adapter.Load()
	if a == nil {
		return ErrNotInitialized
	}
	a.Reset(core.store.Get(slotBypass) >= 0.5)
	core.det.Reset()
	return nil
}
