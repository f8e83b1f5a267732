package pccc

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/constraints"
)

// Algorithm selects how the decoder evaluates log(e^a + e^b)
type Algorithm int

const (
	// AlgoLogMAP uses the exact Jacobian logarithm correction
	AlgoLogMAP Algorithm = iota
	// AlgoLinearLogMAP uses a piecewise-linear approximation of the correction
	AlgoLinearLogMAP
	// AlgoMaxLogMAP drops the correction term entirely
	AlgoMaxLogMAP
)

const (
	// DefaultTableSize is the number of breakpoints used by LinearLogMAP when none is given
	DefaultTableSize = 8

	// linearCutoff is where the linear correction reaches zero; ln(1+e^-6) ~ 0.0025
	linearCutoff = 6.0
)

// String returns the canonical algorithm name
func (a Algorithm) String() string {
	switch a {
	case AlgoLogMAP:
		return "log-map"
	case AlgoLinearLogMAP:
		return "linear-log-map"
	case AlgoMaxLogMAP:
		return "max-log-map"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm parses an algorithm name. Case, '-' and '_' are ignored.
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch norm {
	case "logmap", "exact":
		return AlgoLogMAP, nil
	case "linearlogmap", "linear":
		return AlgoLinearLogMAP, nil
	case "maxlogmap", "max":
		return AlgoMaxLogMAP, nil
	}
	return 0, invalidInput("unknown decoding algorithm %q", s)
}

// DecodingAlgo is the decoder configuration: correction strategy, number of turbo
// iterations and, for LinearLogMAP, the number of breakpoints of the approximation
type DecodingAlgo struct {
	Kind       Algorithm
	Iterations int
	TableSize  int
}

// LogMAP returns an exact Log-MAP configuration
func LogMAP(iterations int) DecodingAlgo {
	return DecodingAlgo{Kind: AlgoLogMAP, Iterations: iterations}
}

// LinearLogMAP returns a linear-approximation configuration
func LinearLogMAP(iterations, tableSize int) DecodingAlgo {
	return DecodingAlgo{Kind: AlgoLinearLogMAP, Iterations: iterations, TableSize: tableSize}
}

// MaxLogMAP returns a Max-Log-MAP configuration
func MaxLogMAP(iterations int) DecodingAlgo {
	return DecodingAlgo{Kind: AlgoMaxLogMAP, Iterations: iterations}
}

// Validate checks the configuration
func (a DecodingAlgo) Validate() error {
	if a.Iterations < 1 {
		return invalidInput("iteration count must be at least 1, got %d", a.Iterations)
	}
	return a.validateCorrection()
}

func (a DecodingAlgo) validateCorrection() error {
	switch a.Kind {
	case AlgoLogMAP, AlgoMaxLogMAP:
	case AlgoLinearLogMAP:
		if a.TableSize < 2 {
			return invalidInput("linear Log-MAP needs at least 2 breakpoints, got %d", a.TableSize)
		}
	default:
		return invalidInput("unknown decoding algorithm %d", int(a.Kind))
	}
	return nil
}

// String implements fmt.Stringer
func (a DecodingAlgo) String() string {
	if a.Kind == AlgoLinearLogMAP {
		return fmt.Sprintf("%s(table=%d, iterations=%d)", a.Kind, a.TableSize, a.Iterations)
	}
	return fmt.Sprintf("%s(iterations=%d)", a.Kind, a.Iterations)
}

// maxStar computes log(e^a + e^b) or an approximation of it
type maxStar[F constraints.Float] func(a, b F) F

func newMaxStar[F constraints.Float](algo DecodingAlgo) maxStar[F] {
	switch algo.Kind {
	case AlgoLinearLogMAP:
		return linearMaxStar[F](algo.TableSize)
	case AlgoMaxLogMAP:
		return func(a, b F) F {
			return max(a, b)
		}
	default:
		return func(a, b F) F {
			if a < b {
				a, b = b, a
			}
			return a + F(jacobianCorrection(float64(a-b)))
		}
	}
}

// jacobianCorrection is log(1 + e^-d) for d >= 0
func jacobianCorrection(d float64) float64 {
	return math.Log1p(math.Exp(-d))
}

func linearMaxStar[F constraints.Float](tableSize int) maxStar[F] {
	step := linearCutoff / float64(tableSize-1)
	values := make([]F, tableSize)
	for k := range values {
		values[k] = F(jacobianCorrection(float64(k) * step))
	}
	scale := F(1 / step)
	cutoff := F(linearCutoff)

	return func(a, b F) F {
		if a < b {
			a, b = b, a
		}
		d := a - b
		if d >= cutoff {
			return a
		}
		pos := d * scale
		k := int(pos)
		// float rounding can land exactly on the last breakpoint
		if k >= tableSize-1 {
			return a + values[tableSize-1]
		}
		frac := pos - F(k)
		return a + values[k] + frac*(values[k+1]-values[k])
	}
}
