package pccc

import "golang.org/x/exp/constraints"

const (
	// LLRLimit clips input and extrinsic LLR magnitudes so path metrics stay finite
	// at any block length and precision
	LLRLimit = 1e4

	// minMetric stands in for log(0); finite so metric differences never produce NaN
	minMetric = -1e30
)

// siso is the soft-in soft-out BCJR workspace for one constituent code and block
// length. It owns its metric tables and must not be shared between goroutines.
type siso[F constraints.Float] struct {
	trellis *Trellis
	maxStar maxStar[F]
	n       int

	alpha    []F // (n+1) rows of NumStates
	beta     []F
	betaPrev []F
}

func newSISO[F constraints.Float](t *Trellis, ms maxStar[F], n int) *siso[F] {
	s := t.NumStates()
	return &siso[F]{
		trellis:  t,
		maxStar:  ms,
		n:        n,
		alpha:    make([]F, (n+1)*s),
		beta:     make([]F, s),
		betaPrev: make([]F, s),
	}
}

// run computes a posteriori and extrinsic LLRs for one block. All slices have length n.
func (d *siso[F]) run(sys, parity, apriori, apost, extrinsic []F) {
	t := d.trellis
	numStates := t.NumStates()
	ms := d.maxStar

	// branch metric: half LLRs, added for bit Zero and subtracted for bit One
	branch := func(idx int, hs, hp F) F {
		g := hs
		if idx&1 == 1 {
			g = -hs
		}
		if t.parity[idx] == One {
			return g - hp
		}
		return g + hp
	}
	halves := func(i int) (hs, hp F) {
		return (clip(apriori[i]) + clip(sys[i])) / 2, clip(parity[i]) / 2
	}

	// forward recursion from the all-zero state
	row := d.alpha[:numStates]
	for s := range row {
		row[s] = minMetric
	}
	row[0] = 0

	for i := 0; i < d.n; i++ {
		cur := d.alpha[i*numStates : (i+1)*numStates]
		nxt := d.alpha[(i+1)*numStates : (i+2)*numStates]
		for s := range nxt {
			nxt[s] = minMetric
		}
		hs, hp := halves(i)
		for s := 0; s < numStates; s++ {
			for b := 0; b < 2; b++ {
				idx := s<<1 | b
				ns := t.next[idx]
				nxt[ns] = ms(nxt[ns], cur[s]+branch(idx, hs, hp))
			}
		}
		normalize(nxt)
	}

	// backward recursion from an unknown (uniform) final state, combining as we go
	beta := d.beta
	for s := range beta {
		beta[s] = 0
	}

	for i := d.n - 1; i >= 0; i-- {
		cur := d.alpha[i*numStates : (i+1)*numStates]
		prev := d.betaPrev
		for s := range prev {
			prev[s] = minMetric
		}

		hs, hp := halves(i)
		sum0, sum1 := F(minMetric), F(minMetric)
		for s := 0; s < numStates; s++ {
			for b := 0; b < 2; b++ {
				idx := s<<1 | b
				gb := branch(idx, hs, hp) + beta[t.next[idx]]
				prev[s] = ms(prev[s], gb)
				if b == 0 {
					sum0 = ms(sum0, cur[s]+gb)
				} else {
					sum1 = ms(sum1, cur[s]+gb)
				}
			}
		}

		apost[i] = sum0 - sum1
		extrinsic[i] = clip(apost[i] - clip(apriori[i]) - clip(sys[i]))

		normalize(prev)
		d.beta, d.betaPrev = prev, beta
		beta = d.beta
	}
}

func normalize[F constraints.Float](metrics []F) {
	top := metrics[0]
	for _, m := range metrics[1:] {
		if m > top {
			top = m
		}
	}
	for s := range metrics {
		metrics[s] -= top
	}
}

func clip[F constraints.Float](v F) F {
	if v > LLRLimit {
		return LLRLimit
	}
	if v < -LLRLimit {
		return -LLRLimit
	}
	return v
}

// DecodeConstituent runs one BCJR pass over a single constituent code. sys, parity and
// apriori are LLRs of equal, non-zero length; it returns the a posteriori LLRs and
// the extrinsic part (a posteriori minus a priori minus systematic channel LLR).
// The iteration count of algo is ignored.
func DecodeConstituent[F constraints.Float](t *Trellis, sys, parity, apriori []F, algo DecodingAlgo) (aposteriori, extrinsic []F, err error) {
	if t == nil {
		return nil, nil, invalidInput("trellis is nil")
	}
	if err := algo.validateCorrection(); err != nil {
		return nil, nil, err
	}
	n := len(sys)
	if n == 0 {
		return nil, nil, invalidInput("block size must be non-zero")
	}
	if len(parity) != n || len(apriori) != n {
		return nil, nil, invalidInput("LLR lengths disagree: systematic %d, parity %d, a priori %d", n, len(parity), len(apriori))
	}
	for _, llrs := range [][]F{sys, parity, apriori} {
		if err := checkNaN(llrs); err != nil {
			return nil, nil, err
		}
	}

	aposteriori = make([]F, n)
	extrinsic = make([]F, n)
	newSISO(t, newMaxStar[F](algo), n).run(sys, parity, apriori, aposteriori, extrinsic)
	return aposteriori, extrinsic, nil
}

func checkNaN[F constraints.Float](llrs []F) error {
	for i, v := range llrs {
		if v != v {
			return invalidInput("LLR at position %d is NaN", i)
		}
	}
	return nil
}
