package frame

import (
	"errors"
	"fmt"
)

// Ring buffer errors. Both indicate accounting bugs in the caller, not
// recoverable conditions; the processor surfaces them as internal errors.
var (
	ErrRingFull  = errors.New("ring buffer full")
	ErrRingShort = errors.New("ring buffer holds fewer samples than requested")
)

// Ring is a fixed-capacity FIFO of float32 samples. It is not safe for
// concurrent use; the audio thread is its only user. No method allocates
// after construction.
type Ring struct {
	buf  []float32
	head int
	size int
}

// NewRing creates a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]float32, capacity)}
}

// Len returns the number of buffered samples.
func (r *Ring) Len() int { return r.size }

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return len(r.buf) }

func (r *Ring) tail() int {
	t := r.head + r.size
	if t >= len(r.buf) {
		t -= len(r.buf)
	}
	return t
}

// Write appends all of src.
func (r *Ring) Write(src []float32) error {
	if r.size+len(src) > len(r.buf) {
		return fmt.Errorf("%w: %d buffered + %d written > %d", ErrRingFull, r.size, len(src), len(r.buf))
	}
	t := r.tail()
	n := copy(r.buf[t:], src)
	if n < len(src) {
		copy(r.buf, src[n:])
	}
	r.size += len(src)
	return nil
}

// WriteStrided appends n samples taken from src at positions offset,
// offset+stride, offset+2*stride, and so on. It lets one channel of an
// interleaved buffer feed the ring without a staging copy.
func (r *Ring) WriteStrided(src []float32, offset, stride, n int) error {
	if r.size+n > len(r.buf) {
		return fmt.Errorf("%w: %d buffered + %d written > %d", ErrRingFull, r.size, n, len(r.buf))
	}
	t := r.tail()
	for i := 0; i < n; i++ {
		r.buf[t] = src[offset+i*stride]
		t++
		if t == len(r.buf) {
			t = 0
		}
	}
	r.size += n
	return nil
}

// FillZero appends n zero samples.
func (r *Ring) FillZero(n int) error {
	if r.size+n > len(r.buf) {
		return fmt.Errorf("%w: %d buffered + %d zeros > %d", ErrRingFull, r.size, n, len(r.buf))
	}
	t := r.tail()
	for i := 0; i < n; i++ {
		r.buf[t] = 0
		t++
		if t == len(r.buf) {
			t = 0
		}
	}
	r.size += n
	return nil
}

// ReadOne pops the oldest sample, or returns 0 when the ring is empty. The
// zero fallback implements the warm-up contract: output positions with no
// processed audio yet available are silence.
func (r *Ring) ReadOne() float32 {
	if r.size == 0 {
		return 0
	}
	v := r.buf[r.head]
	r.head++
	if r.head == len(r.buf) {
		r.head = 0
	}
	r.size--
	return v
}

// ReadFull pops exactly len(dst) samples into dst.
func (r *Ring) ReadFull(dst []float32) error {
	if r.size < len(dst) {
		return fmt.Errorf("%w: have %d, want %d", ErrRingShort, r.size, len(dst))
	}
	n := copy(dst, r.buf[r.head:])
	if n < len(dst) {
		copy(dst[n:], r.buf)
	}
	r.head += len(dst)
	if r.head >= len(r.buf) {
		r.head -= len(r.buf)
	}
	r.size -= len(dst)
	return nil
}

// Reset discards all buffered samples.
func (r *Ring) Reset() {
	r.head = 0
	r.size = 0
}
