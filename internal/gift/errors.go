package gift

import (
	"errors"
	"fmt"
)

// Fatal pipeline conditions. Every other failure inside the pipeline is
// absorbed by a fallback and never surfaces as an error.
var (
	// ErrInsufficientCandidates means the catalog returned fewer than
	// MinCandidates products for the search keyword.
	ErrInsufficientCandidates = errors.New("insufficient candidates")

	// ErrInsufficientSafeCandidates means fewer than MinSafeCandidates
	// explicit-match products survived safety validation.
	ErrInsufficientSafeCandidates = errors.New("insufficient safe candidates")
)

const (
	MinCandidates     = 5
	MinSafeCandidates = 2
)

// PipelineError carries the observed count alongside one of the fatal
// sentinels so callers can report how many products were found.
type PipelineError struct {
	Err   error
	Found int
	Need  int
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%v: found %d, need at least %d", e.Err, e.Found, e.Need)
}

func (e *PipelineError) Unwrap() error { return e.Err }
