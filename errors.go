package spinobs

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spinobs/blobstore"
	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/observable"
)

var (
	// ErrNotFound is returned when the container does not exist.
	ErrNotFound = errors.New("container not found")

	// ErrSchema is returned when the container is malformed or a required
	// group, dataset or attribute is missing.
	ErrSchema = errors.New("malformed container")

	// ErrLookup is returned when a reference or target position has no
	// matching stored site within the tolerance.
	ErrLookup = errors.New("no matching site")

	// ErrGeometry is returned when a translation beyond the raw cluster is
	// requested without primitive-vector data.
	ErrGeometry = errors.New("insufficient primitive vectors")

	// ErrQuery is returned for malformed queries: mismatched cutoff/target
	// lists, empty momentum points, unknown components or measurements.
	ErrQuery = errors.New("invalid query")
)

// translateError unifies subpackage errors into the public taxonomy.
// The original error stays reachable via errors.Is/As.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var schemaErr *container.SchemaError
	if errors.As(err, &schemaErr) {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	var checksumErr *container.ChecksumMismatchError
	if errors.As(err, &checksumErr) {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	for _, target := range []error{
		container.ErrMalformed,
		container.ErrInvalidMagic,
		container.ErrInvalidVersion,
		container.ErrUnknownCodec,
		container.ErrUnknownCompression,
	} {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrSchema, err)
		}
	}

	var noMatch *lattice.ErrNoSiteMatch
	if errors.As(err, &noMatch) {
		return fmt.Errorf("%w: %w", ErrLookup, err)
	}

	if errors.Is(err, lattice.ErrNoPrimitives) {
		return fmt.Errorf("%w: %w", ErrGeometry, err)
	}

	for _, target := range []error{
		observable.ErrCutoffMismatch,
		observable.ErrEmptyMomenta,
		observable.ErrUnknownComponent,
		observable.ErrUnknownMeasurement,
	} {
		if errors.Is(err, target) {
			return fmt.Errorf("%w: %w", ErrQuery, err)
		}
	}

	return err
}
