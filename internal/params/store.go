// Package params implements the lock-free parameter store shared between
// control threads and the audio thread.
//
// Every parameter lives in its own atomic word. Readers and writers never
// block each other and no value can be observed torn; consistency is per
// parameter, not across parameters, which is all the audio path requires.
package params

import (
	"math"
	"sync/atomic"
)

// Float32 is a float32 stored in an atomic 32-bit word.
type Float32 struct {
	bits atomic.Uint32
}

// Store atomically replaces the value.
func (f *Float32) Store(v float32) {
	f.bits.Store(math.Float32bits(v))
}

// Load atomically reads the value.
func (f *Float32) Load() float32 {
	return math.Float32frombits(f.bits.Load())
}

// Store holds a fixed set of float32 parameters indexed by small integers.
// The slot count and defaults are decided at construction; Set and Get are
// safe from any thread and never allocate.
type Store struct {
	values []Float32
}

// NewStore creates a store with one slot per default, each initialized to it.
func NewStore(defaults ...float32) *Store {
	s := &Store{values: make([]Float32, len(defaults))}
	for i, d := range defaults {
		s.values[i].Store(d)
	}
	return s
}

// Set replaces the value in slot i. Range validation is the caller's job;
// the store accepts whatever it is handed.
func (s *Store) Set(i int, v float32) {
	s.values[i].Store(v)
}

// Get reads the current value in slot i.
func (s *Store) Get(i int) float32 {
	return s.values[i].Load()
}

// Len returns the slot count.
func (s *Store) Len() int {
	return len(s.values)
}
