package observable

import "errors"

var (
	// ErrUnknownComponent is returned when a tensor component name is not
	// one of the nine two-letter labels or "all".
	ErrUnknownComponent = errors.New("observable: unknown tensor component")

	// ErrCutoffMismatch is returned when per-target cutoffs cannot be
	// paired with the target list.
	ErrCutoffMismatch = errors.New("observable: cutoff/target mismatch")

	// ErrEmptyMomenta is returned when a structure-factor query supplies
	// no momentum points.
	ErrEmptyMomenta = errors.New("observable: no momentum points")

	// ErrUnknownMeasurement is returned when the selected measurement
	// index is not stored in the container.
	ErrUnknownMeasurement = errors.New("observable: measurement not stored")
)
