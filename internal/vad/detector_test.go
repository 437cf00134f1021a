package vad

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	loud  = float32(0.1)
	quiet = float32(1e-8)
)

func newTestDetector() *Detector {
	d := NewDetector(128)
	d.SetThreshold(1e-6)
	return d
}

func TestSpeechStartsOnActiveWindow(t *testing.T) {
	d := newTestDetector()
	require.False(t, d.IsSpeechDetected())

	d.ObserveWindow(loud)
	assert.True(t, d.IsSpeechDetected(), "default minimum duration is zero, one window is enough")
}

func TestQuietWindowsStaySilent(t *testing.T) {
	d := newTestDetector()
	for i := 0; i < 50; i++ {
		d.ObserveWindow(quiet)
	}
	assert.False(t, d.IsSpeechDetected())
}

func TestThresholdBoundary(t *testing.T) {
	d := newTestDetector()
	d.ObserveWindow(1e-6) // exactly the threshold does not count as active
	assert.False(t, d.IsSpeechDetected())
	d.ObserveWindow(1.1e-6)
	assert.True(t, d.IsSpeechDetected())
}

// With a hold of n windows, speech must persist through exactly n quiet
// windows after the last active one and clear on the next.
func TestHoldKeepsSpeechActive(t *testing.T) {
	const hold = 5
	d := newTestDetector()
	d.SetHoldWindows(hold)

	d.ObserveWindow(loud)
	require.True(t, d.IsSpeechDetected())

	for i := 1; i <= hold; i++ {
		d.ObserveWindow(quiet)
		assert.Truef(t, d.IsSpeechDetected(), "quiet window %d is inside the hold span", i)
	}
	d.ObserveWindow(quiet)
	assert.False(t, d.IsSpeechDetected(), "hold span exhausted")
}

func TestZeroHoldDropsImmediately(t *testing.T) {
	d := newTestDetector()
	d.ObserveWindow(loud)
	require.True(t, d.IsSpeechDetected())
	d.ObserveWindow(quiet)
	assert.False(t, d.IsSpeechDetected())
}

func TestActiveWindowRestartsHold(t *testing.T) {
	d := newTestDetector()
	d.SetHoldWindows(3)

	d.ObserveWindow(loud)
	d.ObserveWindow(quiet)
	d.ObserveWindow(quiet)
	d.ObserveWindow(loud) // re-arms the hold
	for i := 0; i < 3; i++ {
		d.ObserveWindow(quiet)
		assert.True(t, d.IsSpeechDetected())
	}
	d.ObserveWindow(quiet)
	assert.False(t, d.IsSpeechDetected())
}

func TestMinimumDurationGatesOnset(t *testing.T) {
	d := newTestDetector()
	d.SetMinWindows(3)

	d.ObserveWindow(loud)
	d.ObserveWindow(loud)
	assert.False(t, d.IsSpeechDetected(), "two of three required windows")

	d.ObserveWindow(loud)
	assert.True(t, d.IsSpeechDetected())
}

func TestInterruptedOnsetStartsOver(t *testing.T) {
	d := newTestDetector()
	d.SetMinWindows(3)

	d.ObserveWindow(loud)
	d.ObserveWindow(loud)
	d.ObserveWindow(quiet)
	d.ObserveWindow(loud)
	d.ObserveWindow(loud)
	assert.False(t, d.IsSpeechDetected(), "the quiet window broke the run")

	d.ObserveWindow(loud)
	assert.True(t, d.IsSpeechDetected())
}

func TestDecisionFreezesWithoutWindows(t *testing.T) {
	d := newTestDetector()
	d.ObserveWindow(loud)
	require.True(t, d.IsSpeechDetected())

	// No further observations: repeated polls must see the frozen value.
	for i := 0; i < 10; i++ {
		assert.True(t, d.IsSpeechDetected())
	}
}

func TestResetClearsDecisionAndHistory(t *testing.T) {
	d := newTestDetector()
	d.SetMinWindows(2)
	d.ObserveWindow(loud)
	d.ObserveWindow(loud)
	require.True(t, d.IsSpeechDetected())

	d.Reset()
	assert.False(t, d.IsSpeechDetected())

	// History must be gone too: a single window cannot satisfy the
	// two-window minimum against pre-reset entries.
	d.ObserveWindow(loud)
	assert.False(t, d.IsSpeechDetected())
	d.ObserveWindow(loud)
	assert.True(t, d.IsSpeechDetected())
}

func TestHoldLongerThanHistoryIsClamped(t *testing.T) {
	d := NewDetector(4)
	d.SetThreshold(1e-6)
	d.SetHoldWindows(1000)

	d.ObserveWindow(loud)
	for i := 0; i < 3; i++ {
		d.ObserveWindow(quiet)
		assert.True(t, d.IsSpeechDetected())
	}
	// Once the active window ages out of the 4-entry history the decision
	// must clear rather than stick forever.
	d.ObserveWindow(quiet)
	assert.False(t, d.IsSpeechDetected())
}

func TestConcurrentSettersAndReaders(t *testing.T) {
	d := newTestDetector()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			d.SetHoldWindows(int32(i % 8))
			d.SetMinWindows(int32(i % 4))
			d.SetThreshold(1e-6)
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = d.IsSpeechDetected()
		}
	}()

	for i := 0; i < 10000; i++ {
		if i%3 == 0 {
			d.ObserveWindow(loud)
		} else {
			d.ObserveWindow(quiet)
		}
	}
	close(stop)
	wg.Wait()
}

func TestObserveWindowDoesNotAllocate(t *testing.T) {
	d := newTestDetector()
	d.SetHoldWindows(5)
	for i := 0; i < 10; i++ {
		d.ObserveWindow(loud)
	}
	allocs := testing.AllocsPerRun(200, func() {
		d.ObserveWindow(loud)
		d.ObserveWindow(quiet)
	})
	assert.Zero(t, allocs)
}
