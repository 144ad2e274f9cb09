package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by the service layer. Stores and handlers match them
// with errors.Is; messages carry the user-facing text.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrUnsupportedState = errors.New("unsupported state")
	ErrConflict         = errors.New("conflict")
)

func notFound(msg string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, msg)
}

func validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}
