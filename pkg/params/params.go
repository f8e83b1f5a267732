// Package params stores turbo code parameters (constituent polynomials and
// interleaver permutation) so an encoder and a decoder can be built from the
// same file.
package params

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dbehnke/pccc/pkg/pccc"
)

var (
	// ErrFileReadWrite wraps failures to read or write a parameter file
	ErrFileReadWrite = errors.New("parameter file read/write failed")
	// ErrSerialization wraps failures to encode or decode parameters
	ErrSerialization = errors.New("parameter serialization failed")
)

// CodeParams fully determines a turbo code: both constituent encoders use
// Polynomials and the second sees its input reordered by Permutation.
type CodeParams struct {
	Polynomials [2]int `json:"polynomials" yaml:"polynomials"`
	Permutation []int  `json:"permutation" yaml:"permutation,flow"`
}

// FromInterleaver captures an interleaver and polynomial pair
func FromInterleaver(il *pccc.Interleaver, polys pccc.Polynomials) CodeParams {
	return CodeParams{
		Polynomials: [2]int(polys),
		Permutation: il.Permutation(),
	}
}

// Build validates the parameters and returns the interleaver and polynomials
func (p CodeParams) Build() (*pccc.Interleaver, pccc.Polynomials, error) {
	polys := pccc.Polynomials(p.Polynomials)
	if err := polys.Validate(); err != nil {
		return nil, polys, err
	}
	il, err := pccc.NewInterleaver(p.Permutation)
	if err != nil {
		return nil, polys, err
	}
	return il, polys, nil
}

// BlockSize returns the number of information bits per block
func (p CodeParams) BlockSize() int {
	return len(p.Permutation)
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

func formatFor(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%w: unsupported extension %q (want .json, .yaml or .yml)", ErrSerialization, filepath.Ext(path))
}

// Marshal encodes p for the format implied by path's extension
func Marshal(path string, p CodeParams) ([]byte, error) {
	f, err := formatFor(path)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch f {
	case formatYAML:
		data, err = yaml.Marshal(p)
	default:
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return data, nil
}

// Unmarshal decodes data in the format implied by path's extension
func Unmarshal(path string, data []byte) (CodeParams, error) {
	var p CodeParams
	f, err := formatFor(path)
	if err != nil {
		return p, err
	}

	switch f {
	case formatYAML:
		err = yaml.Unmarshal(data, &p)
	default:
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return CodeParams{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return p, nil
}

// Save writes p to path, creating parent directories as needed
func Save(path string, p CodeParams) error {
	data, err := Marshal(path, p)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrFileReadWrite, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileReadWrite, err)
	}
	return nil
}

// Load reads parameters from path. The result is not validated; call Build.
func Load(path string) (CodeParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CodeParams{}, fmt.Errorf("%w: %v", ErrFileReadWrite, err)
	}
	return Unmarshal(path, data)
}
