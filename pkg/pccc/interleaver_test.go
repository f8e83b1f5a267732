package pccc

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/exp/rand"
)

func TestNewInterleaver_Validation(t *testing.T) {
	tests := []struct {
		name    string
		perm    []int
		wantErr bool
	}{
		{"identity", []int{0, 1, 2, 3}, false},
		{"reversed", []int{3, 2, 1, 0}, false},
		{"single", []int{0}, false},
		{"empty", []int{}, true},
		{"nil", nil, true},
		{"duplicate", []int{0, 1, 1, 3}, true},
		{"out of range", []int{0, 1, 4, 2}, true},
		{"negative", []int{0, -1, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			il, err := NewInterleaver(tt.perm)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewInterleaver(%v) error = %v, wantErr %v", tt.perm, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if il.Len() != len(tt.perm) {
				t.Errorf("Len() = %d, want %d", il.Len(), len(tt.perm))
			}
		})
	}
}

func TestNewInterleaver_CopiesInput(t *testing.T) {
	perm := []int{2, 0, 1}
	il, err := NewInterleaver(perm)
	if err != nil {
		t.Fatalf("NewInterleaver failed: %v", err)
	}
	perm[0] = 0

	got := il.Permutation()
	if got[0] != 2 {
		t.Fatalf("interleaver changed after caller mutated its slice: %v", got)
	}
	got[1] = 99
	if il.Permutation()[1] != 0 {
		t.Fatal("Permutation() must return a copy")
	}
}

func TestInterleave_Convention(t *testing.T) {
	il, err := NewInterleaver([]int{2, 0, 3, 1})
	if err != nil {
		t.Fatalf("NewInterleaver failed: %v", err)
	}

	in := []string{"a", "b", "c", "d"}
	out, err := Interleave(il, in)
	if err != nil {
		t.Fatalf("Interleave failed: %v", err)
	}
	want := []string{"c", "a", "d", "b"}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("Interleave = %v, want %v", out, want)
		}
	}

	back, err := Deinterleave(il, out)
	if err != nil {
		t.Fatalf("Deinterleave failed: %v", err)
	}
	for i := range in {
		if back[i] != in[i] {
			t.Fatalf("Deinterleave = %v, want %v", back, in)
		}
	}

	inv := il.Inverse()
	for i, p := range il.Permutation() {
		if inv[p] != i {
			t.Errorf("Inverse()[%d] = %d, want %d", p, inv[p], i)
		}
	}
}

func TestInterleaver_BijectionLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{1, 2, 3, 16, 64, 1000} {
		for trial := 0; trial < 5; trial++ {
			t.Run(fmt.Sprintf("n=%d/trial=%d", n, trial), func(t *testing.T) {
				il, err := NewRandomInterleaver(n, rng)
				if err != nil {
					t.Fatalf("NewRandomInterleaver failed: %v", err)
				}

				x := make([]float64, n)
				for i := range x {
					x[i] = rng.Float64()
				}

				y, _ := Interleave(il, x)
				z, _ := Deinterleave(il, y)
				w, _ := Deinterleave(il, x)
				v, _ := Interleave(il, w)
				for i := range x {
					if z[i] != x[i] {
						t.Fatalf("deinterleave(interleave(x)) differs at %d", i)
					}
					if v[i] != x[i] {
						t.Fatalf("interleave(deinterleave(x)) differs at %d", i)
					}
				}

				// a generated permutation must itself pass explicit validation
				if _, err := NewInterleaver(il.Permutation()); err != nil {
					t.Errorf("generated permutation is not a bijection: %v", err)
				}
			})
		}
	}
}

func TestInterleave_LengthMismatch(t *testing.T) {
	il, _ := Identity(4)

	if _, err := Interleave(il, []int{1, 2, 3}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Interleave with short input: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Deinterleave(il, []int{1, 2, 3, 4, 5}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Deinterleave with long input: expected ErrInvalidInput, got %v", err)
	}
	if _, err := Interleave[int](nil, []int{1}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Interleave with nil interleaver: expected ErrInvalidInput, got %v", err)
	}
}

func TestNewRandomInterleaver_ZeroSize(t *testing.T) {
	for _, n := range []int{0, -1} {
		if _, err := NewRandomInterleaver(n, nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("NewRandomInterleaver(%d): expected ErrInvalidInput, got %v", n, err)
		}
	}
	if _, err := Identity(0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Identity(0): expected ErrInvalidInput, got %v", err)
	}
}

func TestNewSeededInterleaver_Reproducible(t *testing.T) {
	a, err := NewSeededInterleaver(256, 7)
	if err != nil {
		t.Fatalf("NewSeededInterleaver failed: %v", err)
	}
	b, _ := NewSeededInterleaver(256, 7)
	c, _ := NewSeededInterleaver(256, 8)

	pa, pb, pc := a.Permutation(), b.Permutation(), c.Permutation()
	same := true
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed produced different permutations at %d", i)
		}
		if pa[i] != pc[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical permutations")
	}
}

func TestNewRandomInterleaver_Uniform(t *testing.T) {
	// all 3! = 6 permutations should be drawn about equally often
	const draws = 60000
	rng := rand.New(rand.NewSource(1))
	counts := make(map[[3]int]int)
	for i := 0; i < draws; i++ {
		il, err := NewRandomInterleaver(3, rng)
		if err != nil {
			t.Fatalf("NewRandomInterleaver failed: %v", err)
		}
		p := il.Permutation()
		counts[[3]int{p[0], p[1], p[2]}]++
	}

	if len(counts) != 6 {
		t.Fatalf("saw %d distinct permutations, want 6", len(counts))
	}

	expected := float64(draws) / 6
	chi2 := 0.0
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	// 5 degrees of freedom; p=0.001 critical value is 20.5
	if chi2 > 20.5 {
		t.Errorf("permutation frequencies look non-uniform: chi2=%.2f counts=%v", chi2, counts)
	}
}
