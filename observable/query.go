package observable

import (
	"fmt"

	"github.com/hupe1980/spinobs/lattice"
)

// Query describes one correlation extraction: correlations between a
// reference site and a set of targets, distance-filtered and reduced to
// the requested tensor component.
type Query struct {
	// Reference is matched to the nearest stored reference site within
	// the tolerance.
	Reference lattice.Vec3

	Targets   Targets
	Cutoff    Cutoff
	Component Component
}

type cutoffMode uint8

const (
	cutoffModeAll cutoffMode = iota
	cutoffModeUniform
	cutoffModePer
)

// Cutoff is the distance filter of a query. Targets survive when their
// distance from the reference does not exceed the applicable limit
// (inclusive, up to the matching tolerance).
type Cutoff struct {
	mode   cutoffMode
	limits []float64
}

// CutoffAll disables distance filtering.
func CutoffAll() Cutoff {
	return Cutoff{mode: cutoffModeAll}
}

// CutoffAt applies one limit to every target.
func CutoffAt(limit float64) Cutoff {
	return Cutoff{mode: cutoffModeUniform, limits: []float64{limit}}
}

// CutoffEach pairs one limit with each target, positionally. The limits
// must match the explicit target list in length.
func CutoffEach(limits ...float64) Cutoff {
	return Cutoff{mode: cutoffModePer, limits: limits}
}

func (c Cutoff) perTarget() bool {
	return c.mode == cutoffModePer
}

// limit returns the distance limit for the target at position ord in the
// caller's target list. The second return is false when unbounded.
func (c Cutoff) limit(ord int) (float64, bool) {
	switch c.mode {
	case cutoffModeUniform:
		return c.limits[0], true
	case cutoffModePer:
		return c.limits[ord], true
	default:
		return 0, false
	}
}

// max returns the largest limit, or false when the cutoff is unbounded.
func (c Cutoff) max() (float64, bool) {
	if c.mode == cutoffModeAll || len(c.limits) == 0 {
		return 0, false
	}
	m := c.limits[0]
	for _, l := range c.limits[1:] {
		if l > m {
			m = l
		}
	}
	return m, true
}

func (c Cutoff) validate(t Targets) error {
	if c.mode != cutoffModePer {
		return nil
	}
	if t.all {
		return fmt.Errorf("%w: per-target cutoffs need an explicit target list", ErrCutoffMismatch)
	}
	if len(c.limits) != len(t.positions) {
		return fmt.Errorf("%w: %d cutoffs for %d targets", ErrCutoffMismatch, len(c.limits), len(t.positions))
	}
	return nil
}

// Targets selects the target sites of a query.
type Targets struct {
	all       bool
	positions []lattice.Vec3
}

// AllSites targets every lattice position the reconstructor reaches from
// the reference.
func AllSites() Targets {
	return Targets{all: true}
}

// At targets a single position.
func At(p lattice.Vec3) Targets {
	return Targets{positions: []lattice.Vec3{p}}
}

// Each targets an explicit list of positions.
func Each(ps ...lattice.Vec3) Targets {
	return Targets{positions: ps}
}
