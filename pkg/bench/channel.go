package bench

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/dbehnke/pccc/pkg/pccc"
)

// CodeRate is the rate of the unpunctured turbo code
const CodeRate = 1.0 / pccc.BitsPerSymbol

// AWGN maps codeword bits through BPSK (Zero to +1, One to -1) and additive white
// Gaussian noise, returning channel LLRs 2y/sigma^2
type AWGN struct {
	sigma float64
	noise distuv.Normal
}

// NewAWGN returns a channel for the given Eb/N0 in dB and code rate
func NewAWGN(ebn0dB, rate float64, src *rand.Rand) (*AWGN, error) {
	if rate <= 0 || rate > 1 {
		return nil, fmt.Errorf("code rate must be in (0, 1], got %g", rate)
	}
	if math.IsNaN(ebn0dB) || math.IsInf(ebn0dB, 0) {
		return nil, fmt.Errorf("Eb/N0 must be finite, got %g", ebn0dB)
	}
	sigma := NoiseSigma(ebn0dB, rate)
	return &AWGN{
		sigma: sigma,
		noise: distuv.Normal{Mu: 0, Sigma: sigma, Src: src},
	}, nil
}

// NoiseSigma is the noise standard deviation for unit-energy BPSK symbols:
// sigma^2 = 1 / (2 R Eb/N0)
func NoiseSigma(ebn0dB, rate float64) float64 {
	ebn0 := math.Pow(10, ebn0dB/10)
	return math.Sqrt(1 / (2 * rate * ebn0))
}

// Sigma returns the noise standard deviation
func (a *AWGN) Sigma() float64 {
	return a.sigma
}

// LLRs transmits cw and returns one LLR per bit
func (a *AWGN) LLRs(cw []pccc.Bit) []float64 {
	scale := 2 / (a.sigma * a.sigma)
	out := make([]float64, len(cw))
	for i, b := range cw {
		y := pccc.SoftValue[float64](b) + a.noise.Rand()
		out[i] = scale * y
	}
	return out
}
