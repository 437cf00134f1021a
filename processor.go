package aic

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ai-coustics/aic-sdk-go/internal/engine"
	"github.com/ai-coustics/aic-sdk-go/internal/frame"
	"github.com/ai-coustics/aic-sdk-go/internal/handle"
	"github.com/ai-coustics/aic-sdk-go/internal/params"
	"github.com/ai-coustics/aic-sdk-go/internal/vad"
	"github.com/ai-coustics/aic-sdk-go/license"
	"github.com/ai-coustics/aic-sdk-go/limits"
)

// ProcessorConfig fixes the stream format for one initialized session.
type ProcessorConfig struct {
	// SampleRate of the audio in hertz.
	SampleRate uint32

	// NumChannels carried in every process call.
	NumChannels uint16

	// NumFrames per process call. With AllowVariableFrames set this is the
	// upper bound and calls may carry any smaller count, at the cost of the
	// worst-case alignment latency.
	NumFrames int

	AllowVariableFrames bool
}

// licenseVerifier checks keys at processor creation. Tests swap it for a
// verifier with a key they control.
var licenseVerifier = license.NewVerifier()

// processors resolves context references to live processor state. Closing a
// processor invalidates its slot, so contexts held past Close fail cleanly
// instead of touching recycled state.
var processors = handle.NewRegistry[procCore]()

// procCore is the state shared between a Processor and its contexts.
type procCore struct {
	instance string
	model    *Model

	store    *params.Store
	vadSpecs map[VadParameter]paramSpec
	det      *vad.Detector

	// adapter is nil until Initialize succeeds. It is replaced atomically
	// with a fully constructed value, so the audio thread never observes a
	// partially built pipeline.
	adapter atomic.Pointer[frame.Adapter]

	allowed atomic.Bool
	closed  atomic.Bool

	levelFixed bool

	// mu serializes Initialize against Close. The audio path never takes it.
	mu sync.Mutex
}

// Processor is one enhancement instance bound to a model. Create it with
// NewProcessor, configure it with Initialize, then call one Process method
// per audio callback. The Process methods and ProcessorContext.Reset are the
// only methods safe to call from the real-time thread.
type Processor struct {
	core *procCore
	ref  handle.Ref
}

func sensitivityThreshold(s float32) float32 {
	return float32(math.Pow(10, -float64(s)))
}

func wrapLicenseError(err error) error {
	switch {
	case errors.Is(err, license.ErrExpired):
		return fmt.Errorf("%w: %s", ErrLicenseExpired, err)
	case errors.Is(err, license.ErrVersion):
		return fmt.Errorf("%w: %s", ErrLicenseVersionUnsupported, err)
	default:
		return fmt.Errorf("%w: %s", ErrLicenseFormatInvalid, err)
	}
}

// NewProcessor creates a processor backed by model. The license key is
// verified before any processing is allowed; creation fails if the key is
// malformed, expired or does not cover this SDK generation.
func NewProcessor(model *Model, licenseKey string) (*Processor, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model", ErrNullArgument)
	}

	claims, err := licenseVerifier.Verify(licenseKey, sdkGeneration)
	if err != nil {
		mapped := wrapLicenseError(err)
		logrus.WithFields(logrus.Fields{
			"function": "NewProcessor",
			"model_id": model.ID(),
			"error":    mapped.Error(),
		}).Error("License validation failed")
		return nil, mapped
	}

	if err := model.retain(); err != nil {
		return nil, err
	}

	desc := model.desc
	core := &procCore{
		instance:   uuid.New().String(),
		model:      model,
		vadSpecs:   vadParamSpecs(desc.WindowSeconds()),
		levelFixed: desc.LevelFixed,
	}

	defaults := make([]float32, slotCount)
	for _, s := range processorParamSpecs {
		defaults[s.slot] = s.def
	}
	for _, s := range core.vadSpecs {
		defaults[s.slot] = s.def
	}

	// Durations live in the store already rounded to whole windows, the
	// same form the setters publish and the getters report.
	holdWindows := desc.WindowsIn(float64(defaults[slotVadHold]))
	if holdWindows > maxHoldWindows {
		holdWindows = maxHoldWindows
	}
	defaults[slotVadHold] = float32(float64(holdWindows) * desc.WindowSeconds())
	minWindows := desc.WindowsIn(float64(defaults[slotVadMinDuration]))
	defaults[slotVadMinDuration] = float32(float64(minWindows) * desc.WindowSeconds())
	core.store = params.NewStore(defaults...)

	capacity := maxHoldWindows + 1
	if mw := desc.WindowsIn(maxMinSpeechSeconds); mw > capacity {
		capacity = mw
	}
	core.det = vad.NewDetector(capacity)
	core.det.SetThreshold(sensitivityThreshold(defaults[slotVadSensitivity]))
	core.det.SetHoldWindows(int32(holdWindows))
	core.det.SetMinWindows(int32(minWindows))

	core.allowed.Store(true)
	p := &Processor{core: core, ref: processors.Put(core)}

	logrus.WithFields(logrus.Fields{
		"function":  "NewProcessor",
		"processor": core.instance,
		"model_id":  model.ID(),
		"edition":   claims.Edition,
	}).Info("Processor created")
	return p, nil
}

// Initialize configures the processor for a stream format, allocating every
// buffer the audio path will need. It must not run concurrently with the
// Process methods. On failure the previous state stays in effect.
func (p *Processor) Initialize(cfg ProcessorConfig) error {
	core := p.core
	if core.closed.Load() {
		return ErrNotInitialized
	}

	if err := limits.ValidateSampleRate(cfg.SampleRate); err != nil {
		return fmt.Errorf("%w: %s", ErrAudioConfigUnsupported, err)
	}
	if err := limits.ValidateNumChannels(cfg.NumChannels); err != nil {
		return fmt.Errorf("%w: %s", ErrAudioConfigUnsupported, err)
	}
	if err := limits.ValidateNumFrames(cfg.NumFrames); err != nil {
		return fmt.Errorf("%w: %s", ErrAudioConfigUnsupported, err)
	}

	core.mu.Lock()
	defer core.mu.Unlock()
	if core.closed.Load() {
		return ErrNotInitialized
	}

	desc := core.model.desc
	window := desc.WindowAt(cfg.SampleRate)
	intrinsic := desc.IntrinsicDelayAt(cfg.SampleRate)

	eng, err := engine.New(engine.Config{
		Kind:           engine.Kind(desc.Engine),
		SampleRate:     cfg.SampleRate,
		Window:         window,
		IntrinsicDelay: intrinsic,
		OpenThreshold:  desc.OpenThreshold,
		FloorGain:      desc.FloorGain,
		AttackMs:       desc.AttackMs,
		ReleaseMs:      desc.ReleaseMs,
	})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInternal, err)
	}

	adapter, err := frame.NewAdapter(frame.Config{
		Window:         window,
		IntrinsicDelay: intrinsic,
		Channels:       int(cfg.NumChannels),
		HostFrames:     cfg.NumFrames,
		VariableFrames: cfg.AllowVariableFrames,
	}, eng, core.det)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInternal, err)
	}

	core.det.Reset()
	core.adapter.Store(adapter)

	logrus.WithFields(logrus.Fields{
		"function":     "Processor.Initialize",
		"processor":    core.instance,
		"sample_rate":  cfg.SampleRate,
		"num_channels": cfg.NumChannels,
		"num_frames":   cfg.NumFrames,
		"variable":     cfg.AllowVariableFrames,
		"output_delay": adapter.OutputDelay(),
	}).Info("Processor initialized")
	return nil
}

// ProcessInterleaved enhances a buffer of interleaved audio in place. The
// buffer length must be a whole number of frames at the initialized channel
// count. Real-time safe.
func (p *Processor) ProcessInterleaved(audio []float32) error {
	if audio == nil {
		return ErrNullArgument
	}
	core := p.core
	a := core.adapter.Load()
	if a == nil {
		return ErrNotInitialized
	}
	ch := a.Channels()
	if len(audio)%ch != 0 {
		return ErrAudioConfigMismatch
	}
	frames := len(audio) / ch
	if !a.AcceptFrames(frames) {
		return ErrAudioConfigMismatch
	}
	if !core.allowed.Load() {
		return ErrProcessingNotAllowed
	}

	level := core.store.Get(slotLevel)
	gain := core.store.Get(slotGain)
	bypassed := core.store.Get(slotBypass) >= 0.5
	if err := a.ProcessInterleaved(audio, frames, level, gain, bypassed); err != nil {
		return fmt.Errorf("%w: %s", ErrInternal, err)
	}
	return nil
}

// ProcessSequential enhances a buffer holding each channel as one contiguous
// block in place. Real-time safe.
func (p *Processor) ProcessSequential(audio []float32) error {
	if audio == nil {
		return ErrNullArgument
	}
	core := p.core
	a := core.adapter.Load()
	if a == nil {
		return ErrNotInitialized
	}
	ch := a.Channels()
	if len(audio)%ch != 0 {
		return ErrAudioConfigMismatch
	}
	frames := len(audio) / ch
	if !a.AcceptFrames(frames) {
		return ErrAudioConfigMismatch
	}
	if !core.allowed.Load() {
		return ErrProcessingNotAllowed
	}

	level := core.store.Get(slotLevel)
	gain := core.store.Get(slotGain)
	bypassed := core.store.Get(slotBypass) >= 0.5
	if err := a.ProcessSequential(audio, frames, level, gain, bypassed); err != nil {
		return fmt.Errorf("%w: %s", ErrInternal, err)
	}
	return nil
}

// ProcessPlanar enhances one buffer per channel in place. Planar processing
// supports at most limits.MaxPlanarChannels channels. Real-time safe.
func (p *Processor) ProcessPlanar(audio [][]float32) error {
	if audio == nil {
		return ErrNullArgument
	}
	for _, chBuf := range audio {
		if chBuf == nil {
			return ErrNullArgument
		}
	}
	core := p.core
	a := core.adapter.Load()
	if a == nil {
		return ErrNotInitialized
	}
	ch := a.Channels()
	if len(audio) != ch {
		return ErrAudioConfigMismatch
	}
	if ch > limits.MaxPlanarChannels {
		return ErrAudioConfigUnsupported
	}
	frames := len(audio[0])
	for _, chBuf := range audio[1:] {
		if len(chBuf) != frames {
			return ErrAudioConfigMismatch
		}
	}
	if !a.AcceptFrames(frames) {
		return ErrAudioConfigMismatch
	}
	if !core.allowed.Load() {
		return ErrProcessingNotAllowed
	}

	level := core.store.Get(slotLevel)
	gain := core.store.Get(slotGain)
	bypassed := core.store.Get(slotBypass) >= 0.5
	if err := a.ProcessPlanar(audio, frames, level, gain, bypassed); err != nil {
		return fmt.Errorf("%w: %s", ErrInternal, err)
	}
	return nil
}

// Context returns a parameter context for this processor. Contexts may be
// handed to other components and outlive the processor; their operations
// fail with ErrNotInitialized once the processor is closed.
func (p *Processor) Context() *ProcessorContext {
	return &ProcessorContext{ref: p.ref}
}

// VadContext returns a voice activity detection context for this processor.
// Like ProcessorContext it stays safe to use after the processor is closed.
func (p *Processor) VadContext() *VadContext {
	return &VadContext{ref: p.ref}
}

// Close releases the processor and its model reference. Contexts created
// from it keep failing cleanly. Close is idempotent.
func (p *Processor) Close() error {
	core := p.core
	if !core.closed.CompareAndSwap(false, true) {
		return nil
	}

	core.mu.Lock()
	core.allowed.Store(false)
	core.adapter.Store(nil)
	core.mu.Unlock()

	processors.Drop(p.ref)
	core.model.release()

	logrus.WithFields(logrus.Fields{
		"function":  "Processor.Close",
		"processor": core.instance,
		"model_id":  core.model.ID(),
	}).Info("Processor closed")
	return nil
}
