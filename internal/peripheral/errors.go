package peripheral

import (
	"errors"
	"fmt"
)

// Domain errors for peripherals.
var (
	ErrPeripheralNotFound = errors.New("peripheral: not found")
	ErrInvalidPeripheral  = errors.New("peripheral: invalid")
	ErrInvalidStatus      = errors.New("peripheral: invalid status")
	ErrInvalidTransition  = errors.New("peripheral: invalid status transition")

	// ErrDuplicateModel means another peripheral with the same vendor and
	// product is already registered to the same PC.
	ErrDuplicateModel = errors.New("peripheral: model already registered to this pc")
)

// InvalidTransitionError names the rejected transition.
// It matches ErrInvalidTransition with errors.Is.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("peripheral: invalid status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
