package handle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type owner struct {
	name string
}

func TestPutGetDrop(t *testing.T) {
	r := NewRegistry[owner]()

	a := &owner{name: "a"}
	ref := r.Put(a)
	require.True(t, ref.Valid())

	got, ok := r.Get(ref)
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 1, r.Live())

	require.True(t, r.Drop(ref))
	_, ok = r.Get(ref)
	assert.False(t, ok, "dropped ref must not resolve")
	assert.Equal(t, 0, r.Live())

	assert.False(t, r.Drop(ref), "second drop must report failure")
}

func TestZeroRefNeverResolves(t *testing.T) {
	r := NewRegistry[owner]()
	r.Put(&owner{name: "a"})

	_, ok := r.Get(Ref{})
	assert.False(t, ok)
	assert.False(t, Ref{}.Valid())
}

func TestStaleRefAfterSlotReuse(t *testing.T) {
	r := NewRegistry[owner]()

	first := r.Put(&owner{name: "first"})
	require.True(t, r.Drop(first))

	// The freed slot is reused for the next owner.
	second := r.Put(&owner{name: "second"})
	require.Equal(t, first.index, second.index)

	_, ok := r.Get(first)
	assert.False(t, ok, "stale ref must not resolve to the new owner")

	got, ok := r.Get(second)
	require.True(t, ok)
	assert.Equal(t, "second", got.name)
}

func TestGetUnknownIndex(t *testing.T) {
	r := NewRegistry[owner]()
	_, ok := r.Get(Ref{index: 42, generation: 1})
	assert.False(t, ok)
}

func TestConcurrentGetDuringPutAndDrop(t *testing.T) {
	r := NewRegistry[owner]()

	refs := make([]Ref, 64)
	for i := range refs {
		refs[i] = r.Put(&owner{name: "seed"})
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Readers resolve continuously while writers churn the slot table.
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, ref := range refs {
					if v, ok := r.Get(ref); ok && v == nil {
						t.Error("Get returned ok with nil owner")
						return
					}
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			ref := r.Put(&owner{name: "churn"})
			r.Drop(ref)
		}
		close(stop)
	}()

	wg.Wait()

	for _, ref := range refs {
		_, ok := r.Get(ref)
		assert.True(t, ok, "seed refs must survive churn")
	}
}
