package pccc

import (
	"fmt"
	"math/bits"
)

// MaxMemory bounds the encoder memory so the state table stays tractable (65536 states)
const MaxMemory = 16

// Polynomials holds the generator polynomials of the constituent encoder as
// [feedback, feedforward]. Bit k of each value is the coefficient of D^k, so bit 0
// is the input stage. The LTE constituent code is Polynomials{0o13, 0o15}.
type Polynomials [2]int

// Feedback returns the feedback polynomial
func (p Polynomials) Feedback() int { return p[0] }

// Feedforward returns the feedforward (parity) polynomial
func (p Polynomials) Feedforward() int { return p[1] }

// Memory returns the number of delay elements of the encoder register
func (p Polynomials) Memory() int {
	return bits.Len(uint(max(p[0], p[1]))) - 1
}

// Validate checks that the polynomials describe a well-formed recursive encoder
func (p Polynomials) Validate() error {
	if p[0] <= 0 || p[1] <= 0 {
		return invalidInput("code polynomials must be positive, got %#o and %#o", p[0], p[1])
	}
	if p[0]&1 == 0 {
		return invalidInput("feedback polynomial %#o has no input-stage tap (must be odd)", p[0])
	}
	if m := p.Memory(); m > MaxMemory {
		return invalidInput("encoder memory %d exceeds maximum %d", m, MaxMemory)
	}
	return nil
}

// String formats the polynomials in octal
func (p Polynomials) String() string {
	return fmt.Sprintf("(%#o, %#o)", p[0], p[1])
}

// Trellis is the state-transition table of a recursive systematic convolutional
// encoder. It is immutable after construction and safe for concurrent use.
type Trellis struct {
	polys     Polynomials
	memory    int
	numStates int

	// indexed by state<<1 | input
	next   []int
	parity []Bit
}

// NewTrellis expands the generator polynomials into a trellis
func NewTrellis(polys Polynomials) (*Trellis, error) {
	if err := polys.Validate(); err != nil {
		return nil, err
	}

	memory := polys.Memory()
	numStates := 1 << memory
	mask := numStates - 1

	t := &Trellis{
		polys:     polys,
		memory:    memory,
		numStates: numStates,
		next:      make([]int, numStates*2),
		parity:    make([]Bit, numStates*2),
	}

	for s := 0; s < numStates; s++ {
		for b := 0; b < 2; b++ {
			// feedback update: bit 0 of s<<1 is clear, so only delayed taps count
			a := b ^ oddParity((s<<1)&polys.Feedback())
			reg := (s << 1) | a
			t.next[s<<1|b] = reg & mask
			t.parity[s<<1|b] = Bit(oddParity(reg & polys.Feedforward()))
		}
	}

	return t, nil
}

func oddParity(v int) int {
	return bits.OnesCount(uint(v)) & 1
}

// Polynomials returns the generator polynomials of the trellis
func (t *Trellis) Polynomials() Polynomials { return t.polys }

// NumStates returns the number of encoder states
func (t *Trellis) NumStates() int { return t.numStates }

// Memory returns the number of delay elements
func (t *Trellis) Memory() int { return t.memory }

// ConstraintLength returns memory + 1
func (t *Trellis) ConstraintLength() int { return t.memory + 1 }

// Next returns the successor of state s on input b
func (t *Trellis) Next(s int, b Bit) int {
	return t.next[s<<1|int(b)]
}

// Output returns the systematic and parity bits emitted from state s on input b
func (t *Trellis) Output(s int, b Bit) (systematic, parity Bit) {
	return b, t.parity[s<<1|int(b)]
}

// Equal reports whether two trellises have identical transition tables
func (t *Trellis) Equal(o *Trellis) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.polys != o.polys || t.numStates != o.numStates {
		return false
	}
	for i := range t.next {
		if t.next[i] != o.next[i] || t.parity[i] != o.parity[i] {
			return false
		}
	}
	return true
}

// Encode runs the encoder from the all-zero state and returns the parity stream.
// The systematic stream is the input itself.
func (t *Trellis) Encode(in []Bit) []Bit {
	out := make([]Bit, len(in))
	state := 0
	for i, b := range in {
		idx := state<<1 | int(b&1)
		out[i] = t.parity[idx]
		state = t.next[idx]
	}
	return out
}
