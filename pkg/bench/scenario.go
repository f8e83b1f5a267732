// Package bench measures turbo decoder speed and error rates. A Scenario fixes
// the code, decoder and channel; a Runner executes its trials concurrently and
// reports per-trial progress to Observers.
package bench

import (
	"fmt"
	"strings"

	"github.com/dbehnke/pccc/pkg/pccc"
)

// Precision selects the float type the decoder runs in
type Precision string

const (
	F32 Precision = "f32"
	F64 Precision = "f64"
)

// ParsePrecision accepts f32/f64 and float32/float64
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(s) {
	case "f32", "float32":
		return F32, nil
	case "f64", "float64":
		return F64, nil
	}
	return "", fmt.Errorf("unknown precision %q (want f32 or f64)", s)
}

// Scenario describes one benchmark run
type Scenario struct {
	BlockSize   int
	Polynomials pccc.Polynomials
	// Interleaver is used when set; otherwise one is drawn from Seed
	Interleaver *pccc.Interleaver
	Algo        pccc.DecodingAlgo
	Precision   Precision
	// EbN0dB nil means noiseless soft bits of SoftMagnitude
	EbN0dB        *float64
	SoftMagnitude float64
	Trials        int
	Workers       int // 0 means GOMAXPROCS
	Seed          uint64
}

// Noiseless reports whether the scenario skips the channel
func (s Scenario) Noiseless() bool {
	return s.EbN0dB == nil
}

// Validate checks the scenario before any work is done
func (s Scenario) Validate() error {
	if s.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", s.BlockSize)
	}
	if s.Interleaver != nil && s.Interleaver.Len() != s.BlockSize {
		return fmt.Errorf("interleaver size %d does not match block size %d", s.Interleaver.Len(), s.BlockSize)
	}
	if err := s.Polynomials.Validate(); err != nil {
		return err
	}
	if err := s.Algo.Validate(); err != nil {
		return err
	}
	if _, err := ParsePrecision(string(s.Precision)); err != nil {
		return err
	}
	if s.Trials <= 0 {
		return fmt.Errorf("trials must be positive, got %d", s.Trials)
	}
	if s.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", s.Workers)
	}
	if s.Noiseless() && s.SoftMagnitude <= 0 {
		return fmt.Errorf("soft magnitude must be positive, got %g", s.SoftMagnitude)
	}
	return nil
}

// String is a short human label for logs and reports
func (s Scenario) String() string {
	channel := "noiseless"
	if !s.Noiseless() {
		channel = fmt.Sprintf("Eb/N0=%.2fdB", *s.EbN0dB)
	}
	return fmt.Sprintf("N=%d %s %s %s %s", s.BlockSize, s.Polynomials, s.Algo, s.Precision, channel)
}
