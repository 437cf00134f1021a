// Package engine defines the inference boundary of the processing pipeline
// and the engines shipped with the SDK.
//
// An Engine consumes exactly one native window of mono audio per call and is
// the only component that touches model weights. The frame adapter owns all
// buffer-size adaptation, so engines can assume fixed-size windows and keep
// whatever internal state they need across calls.
package engine

import (
	"errors"
	"fmt"
	"math"
)

// Engine processes mono audio one native window at a time. Implementations
// must not allocate or block in ProcessWindow; it runs on the audio thread.
// The return value is the mean square energy of out, which drives voice
// activity detection.
type Engine interface {
	ProcessWindow(in, out []float32) float32
	Reset()
}

// Kind identifies the algorithm a model container requests. The values are
// part of the container format.
type Kind uint8

const (
	// KindGate is the built-in lookahead noise gate.
	KindGate Kind = 1
	// KindIdentity passes audio through unchanged apart from the model's
	// intrinsic delay. Used by measurement tooling and tests.
	KindIdentity Kind = 2
)

// ErrUnknownKind reports an engine kind this SDK cannot run.
var ErrUnknownKind = errors.New("unknown engine kind")

// Config carries everything an engine needs for one session. Window and
// IntrinsicDelay are in frames at SampleRate. The gate tuning fields come
// from the model descriptor.
type Config struct {
	Kind           Kind
	SampleRate     uint32
	Window         int
	IntrinsicDelay int

	OpenThreshold float32
	FloorGain     float32
	AttackMs      float32
	ReleaseMs     float32
}

// New builds the engine for cfg.
func New(cfg Config) (Engine, error) {
	if cfg.Window < 1 {
		return nil, fmt.Errorf("engine window %d out of range", cfg.Window)
	}
	switch cfg.Kind {
	case KindGate:
		return newGate(cfg), nil
	case KindIdentity:
		return &identity{delay: newDelayLine(cfg.IntrinsicDelay)}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, cfg.Kind)
	}
}

type delayLine struct {
	buf []float32
	pos int
}

func newDelayLine(n int) delayLine {
	return delayLine{buf: make([]float32, n)}
}

// step pushes x and pops the sample from n frames ago.
func (d *delayLine) step(x float32) float32 {
	if len(d.buf) == 0 {
		return x
	}
	y := d.buf[d.pos]
	d.buf[d.pos] = x
	d.pos++
	if d.pos == len(d.buf) {
		d.pos = 0
	}
	return y
}

func (d *delayLine) reset() {
	for i := range d.buf {
		d.buf[i] = 0
	}
	d.pos = 0
}

// identity delays audio by the configured intrinsic latency and otherwise
// leaves it untouched.
type identity struct {
	delay delayLine
}

func (e *identity) ProcessWindow(in, out []float32) float32 {
	var sum float32
	for i, x := range in {
		y := e.delay.step(x)
		out[i] = y
		sum += y * y
	}
	return sum / float32(len(in))
}

func (e *identity) Reset() {
	e.delay.reset()
}

// gate is a lookahead noise gate. The envelope follower tracks the un-delayed
// signal while the audio itself runs through the intrinsic delay line, so the
// gate opens before a voice onset reaches the output instead of clipping it.
type gate struct {
	threshold float32
	floor     float32
	attack    float32
	release   float32
	smooth    float32

	env   float32
	gain  float32
	delay delayLine
}

// envelopeCoefficient converts a time constant in milliseconds to a one-pole
// smoothing coefficient at the given rate.
func envelopeCoefficient(ms float32, rate uint32) float32 {
	if ms <= 0 {
		return 0
	}
	samples := float64(ms) / 1000 * float64(rate)
	return float32(math.Exp(-1 / samples))
}

func newGate(cfg Config) *gate {
	floor := cfg.FloorGain
	if floor < 0 {
		floor = 0
	}
	if floor > 1 {
		floor = 1
	}
	g := &gate{
		threshold: cfg.OpenThreshold,
		floor:     floor,
		attack:    envelopeCoefficient(cfg.AttackMs, cfg.SampleRate),
		release:   envelopeCoefficient(cfg.ReleaseMs, cfg.SampleRate),
		smooth:    envelopeCoefficient(cfg.AttackMs, cfg.SampleRate),
		delay:     newDelayLine(cfg.IntrinsicDelay),
	}
	g.gain = g.floor
	return g
}

func (g *gate) ProcessWindow(in, out []float32) float32 {
	var sum float32
	for i, x := range in {
		mag := x
		if mag < 0 {
			mag = -mag
		}
		if mag > g.env {
			g.env = g.attack*g.env + (1-g.attack)*mag
		} else {
			g.env = g.release*g.env + (1-g.release)*mag
		}

		target := g.floor
		if g.env >= g.threshold {
			target = 1
		}
		g.gain = g.smooth*g.gain + (1-g.smooth)*target

		y := g.delay.step(x) * g.gain
		out[i] = y
		sum += y * y
	}
	return sum / float32(len(in))
}

func (g *gate) Reset() {
	g.env = 0
	g.gain = g.floor
	g.delay.reset()
}
