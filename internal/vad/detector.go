// Package vad implements voice activity detection over per-window energies.
//
// The detector consumes one mean-square energy value per enhanced window and
// keeps a circular log of threshold decisions. Speech turns on after the
// configured number of consecutive active windows and holds on until no
// active window remains inside the hold span, giving the decision hysteresis
// in both directions. The published state is a single atomic read, so audio
// threads and UI threads can poll it freely.
package vad

import (
	"sync/atomic"

	"github.com/ai-coustics/aic-sdk-go/internal/params"
)

// Detector turns window energies into a speech/no-speech decision.
//
// ObserveWindow must only be called from the audio thread. The setters and
// IsSpeechDetected are safe from any thread and never block.
type Detector struct {
	history []bool
	pos     int
	filled  int

	threshold   params.Float32
	holdWindows atomic.Int32
	minWindows  atomic.Int32

	speech atomic.Bool
}

// NewDetector creates a detector whose history covers at least capacity
// windows, the longest lookback any parameter setting may need.
func NewDetector(capacity int) *Detector {
	if capacity < 1 {
		capacity = 1
	}
	return &Detector{history: make([]bool, capacity)}
}

// SetThreshold replaces the energy threshold above which a window counts as
// active.
func (d *Detector) SetThreshold(t float32) {
	d.threshold.Store(t)
}

// SetHoldWindows sets how many windows speech lingers after the last active
// window.
func (d *Detector) SetHoldWindows(n int32) {
	if n < 0 {
		n = 0
	}
	d.holdWindows.Store(n)
}

// SetMinWindows sets how many consecutive active windows are required before
// speech turns on. Values below one behave as one.
func (d *Detector) SetMinWindows(n int32) {
	if n < 0 {
		n = 0
	}
	d.minWindows.Store(n)
}

// IsSpeechDetected returns the current decision. Without new windows the
// value freezes; it never decays on its own.
func (d *Detector) IsSpeechDetected() bool {
	return d.speech.Load()
}

// ObserveWindow logs one window's energy and advances the state machine.
func (d *Detector) ObserveWindow(energy float32) {
	above := energy > d.threshold.Load()

	d.history[d.pos] = above
	d.pos++
	if d.pos == len(d.history) {
		d.pos = 0
	}
	if d.filled < len(d.history) {
		d.filled++
	}

	if d.speech.Load() {
		hold := int(d.holdWindows.Load())
		d.speech.Store(d.anyActiveInLast(hold + 1))
		return
	}

	need := int(d.minWindows.Load())
	if need < 1 {
		need = 1
	}
	if d.allActiveInLast(need) {
		d.speech.Store(true)
	}
}

// anyActiveInLast reports whether any of the n most recent windows was
// active. n beyond the logged window count is clamped.
func (d *Detector) anyActiveInLast(n int) bool {
	if n > d.filled {
		n = d.filled
	}
	if n > len(d.history) {
		n = len(d.history)
	}
	i := d.pos
	for k := 0; k < n; k++ {
		i--
		if i < 0 {
			i = len(d.history) - 1
		}
		if d.history[i] {
			return true
		}
	}
	return false
}

// allActiveInLast reports whether the n most recent windows were all active.
// Fewer than n logged windows is never enough.
func (d *Detector) allActiveInLast(n int) bool {
	if n > len(d.history) {
		n = len(d.history)
	}
	if d.filled < n {
		return false
	}
	i := d.pos
	for k := 0; k < n; k++ {
		i--
		if i < 0 {
			i = len(d.history) - 1
		}
		if !d.history[i] {
			return false
		}
	}
	return true
}

// Reset clears the history and the published decision. Parameter values are
// untouched.
func (d *Detector) Reset() {
	for i := range d.history {
		d.history[i] = false
	}
	d.pos = 0
	d.filled = 0
	d.speech.Store(false)
}
