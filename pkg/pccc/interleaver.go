package pccc

import (
	"time"

	"golang.org/x/exp/rand"
)

// Interleaver is a bijective reordering of block positions 0..N-1.
//
// Interleave produces out[i] = in[perm[i]] and Deinterleave is its exact inverse.
// An Interleaver is immutable and may be shared between goroutines.
type Interleaver struct {
	perm []int
	inv  []int
}

// NewInterleaver builds an interleaver from an explicit permutation
func NewInterleaver(perm []int) (*Interleaver, error) {
	if len(perm) == 0 {
		return nil, invalidInput("interleaver permutation is empty")
	}

	inv := make([]int, len(perm))
	seen := make([]bool, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) {
			return nil, invalidInput("permutation entry %d at position %d is out of range [0, %d)", p, i, len(perm))
		}
		if seen[p] {
			return nil, invalidInput("permutation entry %d appears more than once", p)
		}
		seen[p] = true
		inv[p] = i
	}

	cp := make([]int, len(perm))
	copy(cp, perm)
	return &Interleaver{perm: cp, inv: inv}, nil
}

// NewRandomInterleaver draws a uniformly random permutation of the given size using
// a Fisher-Yates shuffle. A nil rng is seeded from the clock.
func NewRandomInterleaver(size int, rng *rand.Rand) (*Interleaver, error) {
	if size <= 0 {
		return nil, invalidInput("interleaver size must be non-zero, got %d", size)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}

	perm := make([]int, size)
	for i := range perm {
		perm[i] = i
	}
	for i := size - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}

	inv := make([]int, size)
	for i, p := range perm {
		inv[p] = i
	}
	return &Interleaver{perm: perm, inv: inv}, nil
}

// NewSeededInterleaver is NewRandomInterleaver with a deterministic seed
func NewSeededInterleaver(size int, seed uint64) (*Interleaver, error) {
	return NewRandomInterleaver(size, rand.New(rand.NewSource(seed)))
}

// Identity returns the identity permutation of the given size
func Identity(size int) (*Interleaver, error) {
	perm := make([]int, max(size, 0))
	for i := range perm {
		perm[i] = i
	}
	return NewInterleaver(perm)
}

// Len returns the block size
func (il *Interleaver) Len() int {
	return len(il.perm)
}

// Permutation returns a copy of the forward mapping
func (il *Interleaver) Permutation() []int {
	out := make([]int, len(il.perm))
	copy(out, il.perm)
	return out
}

// Inverse returns a copy of the inverse mapping
func (il *Interleaver) Inverse() []int {
	out := make([]int, len(il.inv))
	copy(out, il.inv)
	return out
}

// Interleave returns out with out[i] = in[perm[i]]
func Interleave[T any](il *Interleaver, in []T) ([]T, error) {
	if err := il.checkLen(len(in)); err != nil {
		return nil, err
	}
	out := make([]T, len(in))
	interleaveInto(il, out, in)
	return out, nil
}

// Deinterleave returns out with out[perm[i]] = in[i]
func Deinterleave[T any](il *Interleaver, in []T) ([]T, error) {
	if err := il.checkLen(len(in)); err != nil {
		return nil, err
	}
	out := make([]T, len(in))
	deinterleaveInto(il, out, in)
	return out, nil
}

func (il *Interleaver) checkLen(n int) error {
	if il == nil {
		return invalidInput("interleaver is nil")
	}
	if n != len(il.perm) {
		return invalidInput("sequence length %d does not match interleaver size %d", n, len(il.perm))
	}
	return nil
}

// dst and src must both have length il.Len()
func interleaveInto[T any](il *Interleaver, dst, src []T) {
	for i, p := range il.perm {
		dst[i] = src[p]
	}
}

func deinterleaveInto[T any](il *Interleaver, dst, src []T) {
	for i, p := range il.perm {
		dst[p] = src[i]
	}
}
