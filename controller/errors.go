package controller

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRan          = errors.New("controller has already run")
	ErrMissingCollaborator = errors.New("missing collaborator")
	ErrPartitionDrift      = errors.New("in-use size does not match growth")
)

// RoundError locates a failure inside the round loop. Epoch is zero for
// failures outside an epoch.
type RoundError struct {
	Round int
	Epoch int
	Phase Phase
	Err   error
}

func (e *RoundError) Error() string {
	if e.Epoch > 0 {
		return fmt.Sprintf("round %d epoch %d %s: %v", e.Round, e.Epoch, e.Phase, e.Err)
	}

	return fmt.Sprintf("round %d %s: %v", e.Round, e.Phase, e.Err)
}

func (e *RoundError) Unwrap() error {
	return e.Err
}
