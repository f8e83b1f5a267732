package pccc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput reports mismatched lengths, empty blocks, malformed
	// polynomials or permutations, and invalid algorithm settings
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknown is the residual catch-all
	ErrUnknown = errors.New("unknown error")
)

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
