package pccc

import "golang.org/x/exp/constraints"

// TurboDecoder iteratively decodes codewords produced by Encoder with the same
// interleaver and polynomials. Scratch buffers are allocated per call, so a single
// TurboDecoder may be used from several goroutines at once.
type TurboDecoder[F constraints.Float] struct {
	trellis     *Trellis
	interleaver *Interleaver
	algo        DecodingAlgo
	maxStar     maxStar[F]
}

// NewTurboDecoder validates the configuration and builds the constituent trellis
func NewTurboDecoder[F constraints.Float](il *Interleaver, polys Polynomials, algo DecodingAlgo) (*TurboDecoder[F], error) {
	if il == nil || il.Len() == 0 {
		return nil, invalidInput("interleaver is nil or empty")
	}
	if err := algo.Validate(); err != nil {
		return nil, err
	}
	t, err := NewTrellis(polys)
	if err != nil {
		return nil, err
	}
	return &TurboDecoder[F]{
		trellis:     t,
		interleaver: il,
		algo:        algo,
		maxStar:     newMaxStar[F](algo),
	}, nil
}

// BlockSize returns the number of information bits per codeword
func (d *TurboDecoder[F]) BlockSize() int { return d.interleaver.Len() }

// Algo returns the decoder configuration
func (d *TurboDecoder[F]) Algo() DecodingAlgo { return d.algo }

// Decode returns the hard-decided information bits for 3N channel LLRs
func (d *TurboDecoder[F]) Decode(llrs []F) ([]Bit, error) {
	post, err := d.DecodeSoft(llrs)
	if err != nil {
		return nil, err
	}
	out := make([]Bit, len(post))
	for i, v := range post {
		out[i] = HardDecision(v)
	}
	return out, nil
}

// DecodeSoft returns the final a posteriori LLRs of the information bits in natural
// order. llrs follows the Encoder layout [s0, p1_0, p2_0, s1, ...].
func (d *TurboDecoder[F]) DecodeSoft(llrs []F) ([]F, error) {
	n := d.interleaver.Len()
	if len(llrs) != BitsPerSymbol*n {
		return nil, invalidInput("expected %d channel LLRs for block size %d, got %d", BitsPerSymbol*n, n, len(llrs))
	}
	if err := checkNaN(llrs); err != nil {
		return nil, err
	}

	sys := make([]F, n)
	parity1 := make([]F, n)
	parity2 := make([]F, n)
	for i := 0; i < n; i++ {
		sys[i] = llrs[BitsPerSymbol*i]
		parity1[i] = llrs[BitsPerSymbol*i+1]
		parity2[i] = llrs[BitsPerSymbol*i+2]
	}
	sysInterleaved := make([]F, n)
	interleaveInto(d.interleaver, sysInterleaved, sys)

	decoderA := newSISO(d.trellis, d.maxStar, n)
	decoderB := newSISO(d.trellis, d.maxStar, n)

	aprioriA := make([]F, n)
	aprioriB := make([]F, n)
	postA := make([]F, n)
	extrA := make([]F, n)
	postB := make([]F, n)
	extrB := make([]F, n)

	for iter := 0; iter < d.algo.Iterations; iter++ {
		decoderA.run(sys, parity1, aprioriA, postA, extrA)
		interleaveInto(d.interleaver, aprioriB, extrA)

		decoderB.run(sysInterleaved, parity2, aprioriB, postB, extrB)
		deinterleaveInto(d.interleaver, aprioriA, extrB)
	}

	post := make([]F, n)
	deinterleaveInto(d.interleaver, post, postB)
	return post, nil
}

// Decode decodes 3N channel LLRs with a freshly configured decoder
func Decode[F constraints.Float](llrs []F, il *Interleaver, polys Polynomials, algo DecodingAlgo) ([]Bit, error) {
	dec, err := NewTurboDecoder[F](il, polys, algo)
	if err != nil {
		return nil, err
	}
	return dec.Decode(llrs)
}
