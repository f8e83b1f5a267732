package app

import (
	"fmt"

	"github.com/dbehnke/pccc/pkg/bench"
	"github.com/dbehnke/pccc/pkg/config"
	"github.com/dbehnke/pccc/pkg/params"
	"github.com/dbehnke/pccc/pkg/pccc"
)

// Scenarios expands the configuration into one scenario per block size and
// channel point. A configured parameter file fixes both the code and the block size.
func Scenarios(cfg *config.Config) ([]bench.Scenario, error) {
	algo, err := cfg.Decoder.Algo()
	if err != nil {
		return nil, err
	}
	prec, err := bench.ParsePrecision(cfg.Decoder.Precision)
	if err != nil {
		return nil, err
	}

	polys := cfg.Code.Polys()
	blockSizes := cfg.Code.BlockSizes
	var il *pccc.Interleaver
	if cfg.Code.ParamsFile != "" {
		p, err := params.Load(cfg.Code.ParamsFile)
		if err != nil {
			return nil, err
		}
		if il, polys, err = p.Build(); err != nil {
			return nil, fmt.Errorf("invalid parameters in %s: %w", cfg.Code.ParamsFile, err)
		}
		blockSizes = []int{il.Len()}
	}

	var points []*float64
	if cfg.Simulation.Noiseless {
		points = append(points, nil)
	}
	for _, v := range cfg.Simulation.EbN0dB {
		points = append(points, &v)
	}

	out := make([]bench.Scenario, 0, len(blockSizes)*len(points))
	for _, n := range blockSizes {
		for _, ebn0 := range points {
			out = append(out, bench.Scenario{
				BlockSize:     n,
				Polynomials:   polys,
				Interleaver:   il,
				Algo:          algo,
				Precision:     prec,
				EbN0dB:        ebn0,
				SoftMagnitude: cfg.Simulation.SoftMagnitude,
				Trials:        cfg.Simulation.Trials,
				Workers:       cfg.Simulation.Workers,
				Seed:          cfg.Code.Seed,
			})
		}
	}
	return out, nil
}

// SaveParams writes the code used for blockSize to path
func SaveParams(cfg *config.Config, blockSize int, path string) error {
	il, err := pccc.NewSeededInterleaver(blockSize, cfg.Code.Seed)
	if err != nil {
		return err
	}
	return params.Save(path, params.FromInterleaver(il, cfg.Code.Polys()))
}
