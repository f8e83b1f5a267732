package pccc

// BitsPerSymbol is the number of codeword bits per input bit: systematic, parity 1,
// parity 2
const BitsPerSymbol = 3

// Encoder encodes blocks for a fixed interleaver and polynomial pair
type Encoder struct {
	trellis     *Trellis
	interleaver *Interleaver
}

// NewEncoder builds the constituent trellis once for repeated encoding
func NewEncoder(il *Interleaver, polys Polynomials) (*Encoder, error) {
	if il == nil {
		return nil, invalidInput("interleaver is nil")
	}
	t, err := NewTrellis(polys)
	if err != nil {
		return nil, err
	}
	return &Encoder{trellis: t, interleaver: il}, nil
}

// Trellis returns the constituent trellis
func (e *Encoder) Trellis() *Trellis { return e.trellis }

// Encode returns the 3N-bit codeword [s0, p1_0, p2_0, s1, p1_1, p2_1, ...] where
// p2_i is the second encoder's parity at interleaved position i
func (e *Encoder) Encode(bits []Bit) ([]Bit, error) {
	if len(bits) == 0 {
		return nil, invalidInput("block size must be non-zero")
	}
	if len(bits) != e.interleaver.Len() {
		return nil, invalidInput("block size %d does not match interleaver size %d", len(bits), e.interleaver.Len())
	}
	for i, b := range bits {
		if b > One {
			return nil, invalidInput("bit %d has value %d", i, b)
		}
	}

	parity1 := e.trellis.Encode(bits)

	interleaved := make([]Bit, len(bits))
	interleaveInto(e.interleaver, interleaved, bits)
	parity2 := e.trellis.Encode(interleaved)

	out := make([]Bit, 0, BitsPerSymbol*len(bits))
	for i, b := range bits {
		out = append(out, b, parity1[i], parity2[i])
	}
	return out, nil
}

// Encode encodes bits with a freshly built trellis
func Encode(bits []Bit, il *Interleaver, polys Polynomials) ([]Bit, error) {
	enc, err := NewEncoder(il, polys)
	if err != nil {
		return nil, err
	}
	return enc.Encode(bits)
}
