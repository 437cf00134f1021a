// Package frame adapts arbitrary host buffer sizes to the fixed windows an
// enhancement engine consumes.
//
// Incoming audio is mixed down to mono and queued; whenever a full native
// window is buffered the engine runs once; enhanced mono is queued for
// output. Each channel additionally keeps a delay line of its original
// samples so the output stage can blend wet against dry with both signals
// time aligned. Priming the output queues with zeros realizes the reported
// output delay and makes every process call return exactly as many samples
// as it consumed.
package frame

import (
	"errors"
	"fmt"

	"github.com/ai-coustics/aic-sdk-go/internal/mix"
)

// Inference runs the enhancement model over one native window. in and out
// are distinct slices of the window length; the return value is the mean
// square energy of out.
type Inference interface {
	ProcessWindow(in, out []float32) float32
	Reset()
}

// WindowObserver is notified once per completed window with its enhanced
// energy. The voice activity detector implements it.
type WindowObserver interface {
	ObserveWindow(energy float32)
}

// ErrBadConfig reports an adapter configuration that cannot run.
var ErrBadConfig = errors.New("invalid adapter configuration")

// Config fixes an adapter's geometry for one initialized session. All counts
// are in frames at the session sample rate.
type Config struct {
	Window         int
	IntrinsicDelay int
	Channels       int
	HostFrames     int
	VariableFrames bool
}

// Adapter owns the per-session processing state: the mono window pipeline,
// per-channel dry delay lines and the bypass crossfade. It allocates only in
// NewAdapter and Process* methods never block.
type Adapter struct {
	cfg        Config
	alignDelay int

	in   *Ring
	out  *Ring
	dry  []*Ring
	mono []float32

	winIn  []float32
	winOut []float32

	engine   Inference
	observer WindowObserver

	// fade is the bypass mix in [0,1]; 1 is fully bypassed. It moves by
	// fadeStep per output frame, crossing over in one native window.
	fade     float32
	fadeStep float32
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// NewAdapter builds the rings and scratch buffers for cfg and primes the
// delay lines. observer may be nil.
func NewAdapter(cfg Config, engine Inference, observer WindowObserver) (*Adapter, error) {
	switch {
	case cfg.Window < 1:
		return nil, fmt.Errorf("%w: window %d", ErrBadConfig, cfg.Window)
	case cfg.Channels < 1:
		return nil, fmt.Errorf("%w: channels %d", ErrBadConfig, cfg.Channels)
	case cfg.HostFrames < 1:
		return nil, fmt.Errorf("%w: host frames %d", ErrBadConfig, cfg.HostFrames)
	case cfg.IntrinsicDelay < 0:
		return nil, fmt.Errorf("%w: intrinsic delay %d", ErrBadConfig, cfg.IntrinsicDelay)
	case engine == nil:
		return nil, fmt.Errorf("%w: nil engine", ErrBadConfig)
	}

	align := cfg.Window - gcd(cfg.Window, cfg.HostFrames)
	if cfg.VariableFrames {
		// Any frame count up to HostFrames may arrive, so the alignment
		// reserve must cover the worst case.
		align = cfg.Window - 1
	}

	a := &Adapter{
		cfg:        cfg,
		alignDelay: align,
		in:         NewRing(cfg.Window + cfg.HostFrames - 1),
		out:        NewRing(align + cfg.HostFrames + 2*cfg.Window),
		dry:        make([]*Ring, cfg.Channels),
		mono:       make([]float32, cfg.HostFrames),
		winIn:      make([]float32, cfg.Window),
		winOut:     make([]float32, cfg.Window),
		engine:     engine,
		observer:   observer,
		fadeStep:   1 / float32(cfg.Window),
	}
	dryDepth := align + cfg.IntrinsicDelay
	for c := range a.dry {
		a.dry[c] = NewRing(dryDepth + cfg.HostFrames)
	}
	a.prime()
	return a, nil
}

func (a *Adapter) prime() {
	// Errors are impossible here: the rings were sized for these fills.
	_ = a.out.FillZero(a.alignDelay)
	for _, d := range a.dry {
		_ = d.FillZero(a.alignDelay + a.cfg.IntrinsicDelay)
	}
}

// OutputDelay returns the total latency in frames between a sample entering
// and the corresponding processed sample leaving.
func (a *Adapter) OutputDelay() int {
	return a.alignDelay + a.cfg.IntrinsicDelay
}

// Channels returns the configured channel count.
func (a *Adapter) Channels() int { return a.cfg.Channels }

// HostFrames returns the configured frames-per-call.
func (a *Adapter) HostFrames() int { return a.cfg.HostFrames }

// AcceptFrames reports whether a process call may carry this frame count.
func (a *Adapter) AcceptFrames(frames int) bool {
	if a.cfg.VariableFrames {
		return frames >= 0 && frames <= a.cfg.HostFrames
	}
	return frames == a.cfg.HostFrames
}

// Reset returns the adapter to its freshly initialized state. The bypass
// crossfade snaps to the current bypass target so a reset stream does not
// open with a stale fade.
func (a *Adapter) Reset(bypassed bool) {
	a.in.Reset()
	a.out.Reset()
	for _, d := range a.dry {
		d.Reset()
	}
	a.prime()
	a.engine.Reset()
	if bypassed {
		a.fade = 1
	} else {
		a.fade = 0
	}
}

// pushMono queues frames samples of a.mono and runs the engine for every
// completed window.
func (a *Adapter) pushMono(frames int) error {
	if err := a.in.Write(a.mono[:frames]); err != nil {
		return err
	}
	for a.in.Len() >= a.cfg.Window {
		if err := a.in.ReadFull(a.winIn); err != nil {
			return err
		}
		energy := a.engine.ProcessWindow(a.winIn, a.winOut)
		if a.observer != nil {
			a.observer.ObserveWindow(energy)
		}
		if err := a.out.Write(a.winOut); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) advanceFade(target float32) float32 {
	switch {
	case a.fade < target:
		a.fade += a.fadeStep
		if a.fade > target {
			a.fade = target
		}
	case a.fade > target:
		a.fade -= a.fadeStep
		if a.fade < target {
			a.fade = target
		}
	}
	return a.fade
}

// outSample blends one channel's output frame from its dry sample, the
// enhanced mono sample and the current fade position.
func outSample(dry, enhanced, level, gain, fade float32) float32 {
	blended := mix.Blend(dry, enhanced, level, gain)
	switch fade {
	case 0:
		return blended
	case 1:
		return dry
	}
	return blended + (dry-blended)*fade
}

func bypassTarget(bypassed bool) float32 {
	if bypassed {
		return 1
	}
	return 0
}

// ProcessInterleaved enhances frames frames of interleaved audio in place.
func (a *Adapter) ProcessInterleaved(audio []float32, frames int, level, gain float32, bypassed bool) error {
	ch := a.cfg.Channels
	mix.MonoInterleaved(a.mono, audio, ch, frames)
	for c := 0; c < ch; c++ {
		if err := a.dry[c].WriteStrided(audio, c, ch, frames); err != nil {
			return err
		}
	}
	if err := a.pushMono(frames); err != nil {
		return err
	}

	target := bypassTarget(bypassed)
	for f := 0; f < frames; f++ {
		fade := a.advanceFade(target)
		enhanced := a.out.ReadOne()
		base := f * ch
		for c := 0; c < ch; c++ {
			audio[base+c] = outSample(a.dry[c].ReadOne(), enhanced, level, gain, fade)
		}
	}
	return nil
}

// ProcessSequential enhances frames frames of channel-sequential audio in
// place.
func (a *Adapter) ProcessSequential(audio []float32, frames int, level, gain float32, bypassed bool) error {
	ch := a.cfg.Channels
	mix.MonoSequential(a.mono, audio, ch, frames)
	for c := 0; c < ch; c++ {
		if err := a.dry[c].Write(audio[c*frames : (c+1)*frames]); err != nil {
			return err
		}
	}
	if err := a.pushMono(frames); err != nil {
		return err
	}

	target := bypassTarget(bypassed)
	for f := 0; f < frames; f++ {
		fade := a.advanceFade(target)
		enhanced := a.out.ReadOne()
		for c := 0; c < ch; c++ {
			audio[c*frames+f] = outSample(a.dry[c].ReadOne(), enhanced, level, gain, fade)
		}
	}
	return nil
}

// ProcessPlanar enhances frames frames of planar audio in place.
func (a *Adapter) ProcessPlanar(audio [][]float32, frames int, level, gain float32, bypassed bool) error {
	ch := a.cfg.Channels
	mix.MonoPlanar(a.mono, audio, frames)
	for c := 0; c < ch; c++ {
		if err := a.dry[c].Write(audio[c][:frames]); err != nil {
			return err
		}
	}
	if err := a.pushMono(frames); err != nil {
		return err
	}

	target := bypassTarget(bypassed)
	for f := 0; f < frames; f++ {
		fade := a.advanceFade(target)
		enhanced := a.out.ReadOne()
		for c := 0; c < ch; c++ {
			audio[c][f] = outSample(a.dry[c].ReadOne(), enhanced, level, gain, fade)
		}
	}
	return nil
}
