package pccc

import "golang.org/x/exp/constraints"

// Bit is a binary symbol
type Bit uint8

const (
	// Zero is the binary symbol 0
	Zero Bit = 0
	// One is the binary symbol 1
	One Bit = 1
)

// BitFromBool converts a boolean to a Bit
func BitFromBool(v bool) Bit {
	if v {
		return One
	}
	return Zero
}

// Bool returns true for One
func (b Bit) Bool() bool {
	return b == One
}

// String implements fmt.Stringer
func (b Bit) String() string {
	if b == One {
		return "1"
	}
	return "0"
}

// SoftValue maps Zero to +1 and One to -1
func SoftValue[F constraints.Float](b Bit) F {
	if b == One {
		return -1
	}
	return 1
}

// SoftBits maps bits to noiseless-channel LLRs of the given magnitude
func SoftBits[F constraints.Float](bits []Bit, magnitude F) []F {
	out := make([]F, len(bits))
	for i, b := range bits {
		out[i] = magnitude * SoftValue[F](b)
	}
	return out
}

// HardDecision maps an LLR to a bit. Ties at exactly zero resolve to Zero.
func HardDecision[F constraints.Float](llr F) Bit {
	if llr < 0 {
		return One
	}
	return Zero
}

// BitsFromBools converts a boolean slice to bits
func BitsFromBools(v []bool) []Bit {
	out := make([]Bit, len(v))
	for i, b := range v {
		out[i] = BitFromBool(b)
	}
	return out
}

// CountBitErrors returns the number of positions where a and b differ.
// Positions beyond the shorter slice are counted as errors.
func CountBitErrors(a, b []Bit) int {
	n := min(len(a), len(b))
	errs := max(len(a), len(b)) - n
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			errs++
		}
	}
	return errs
}
