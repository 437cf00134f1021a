// Package handle provides a generation-counted slot registry for SDK objects
// that outlive-prone references (contexts) must resolve safely.
//
// A Ref names a slot plus the generation it was issued for. Dropping the owner
// bumps the slot's generation, so stale Refs resolve to nothing instead of a
// recycled owner. Resolution is lock-free and safe from any thread, including
// real-time audio threads.
package handle

import (
	"sync"
	"sync/atomic"
)

// Ref is an opaque reference to a registered owner. The zero Ref never resolves.
type Ref struct {
	index      uint32
	generation uint32
}

// Valid reports whether the Ref was issued by a Registry. It does not imply
// the owner is still registered.
func (r Ref) Valid() bool {
	return r.generation != 0
}

type slot[T any] struct {
	value      atomic.Pointer[T]
	generation atomic.Uint32
}

// Registry maps Refs to live owners of type T.
//
// Put and Drop are control-path operations and take a mutex. Get is wait-free:
// it reads the slot table and two atomics, making it safe to call from threads
// that must never block.
type Registry[T any] struct {
	mu    sync.Mutex
	table atomic.Pointer[[]*slot[T]]
	free  []uint32
	live  atomic.Int32
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	r := &Registry[T]{}
	table := make([]*slot[T], 0, 8)
	r.table.Store(&table)
	return r
}

// Put registers an owner and returns the Ref that resolves to it until Drop.
func (r *Registry[T]) Put(v *T) Ref {
	r.mu.Lock()
	defer r.mu.Unlock()

	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		old := *r.table.Load()
		grown := make([]*slot[T], len(old)+1)
		copy(grown, old)
		s := &slot[T]{}
		// Generations start at 1 so the zero Ref never resolves.
		s.generation.Store(1)
		grown[len(old)] = s
		index = uint32(len(old))
		r.table.Store(&grown)
	}

	s := (*r.table.Load())[index]
	s.value.Store(v)
	r.live.Add(1)
	return Ref{index: index, generation: s.generation.Load()}
}

// Get resolves a Ref to its owner. The second result is false if the Ref was
// never issued, or its owner has been dropped, even if the slot has since been
// reused for a different owner.
func (r *Registry[T]) Get(ref Ref) (*T, bool) {
	if !ref.Valid() {
		return nil, false
	}
	table := *r.table.Load()
	if int(ref.index) >= len(table) {
		return nil, false
	}
	s := table[ref.index]
	if s.generation.Load() != ref.generation {
		return nil, false
	}
	v := s.value.Load()
	if v == nil {
		return nil, false
	}
	// A concurrent Drop+Put may have stored a new owner between the loads
	// above; the generation re-check rejects it.
	if s.generation.Load() != ref.generation {
		return nil, false
	}
	return v, true
}

// Drop unregisters the owner behind ref. Subsequent Gets with the same Ref
// fail. Returns false if the Ref does not currently resolve.
func (r *Registry[T]) Drop(ref Ref) bool {
	if !ref.Valid() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	table := *r.table.Load()
	if int(ref.index) >= len(table) {
		return false
	}
	s := table[ref.index]
	if s.generation.Load() != ref.generation || s.value.Load() == nil {
		return false
	}
	s.value.Store(nil)
	s.generation.Add(1)
	r.free = append(r.free, ref.index)
	r.live.Add(-1)
	return true
}

// Live returns the number of currently registered owners.
func (r *Registry[T]) Live() int {
	return int(r.live.Load())
}
