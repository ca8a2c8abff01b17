package lattice

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoPrimitives is returned when a translation beyond the raw cluster
	// is requested but no primitive vectors are available.
	ErrNoPrimitives = errors.New("lattice: translation requested without primitive vectors")
)

// ErrNoSiteMatch indicates that a position could not be resolved to any
// known lattice site within the matching tolerance.
type ErrNoSiteMatch struct {
	Position  Vec3
	Tolerance float64
}

func (e *ErrNoSiteMatch) Error() string {
	return fmt.Sprintf("lattice: no site within %g of (%g, %g, %g)",
		e.Tolerance, e.Position[0], e.Position[1], e.Position[2])
}

// Generated is a lattice site obtained by translating a stored cluster site
// by an integer combination of primitive vectors.
type Generated struct {
	// Position is the translated Cartesian position.
	Position Vec3
	// Source is the index of the originating cluster site.
	Source int
	// Shift holds the integer translation coefficients. A zero shift marks
	// a raw cluster site.
	Shift [3]int
}

// ExpandOptions controls cluster expansion.
type ExpandOptions struct {
	// Tolerance is the coincidence tolerance for deduplication.
	// Defaults to DefaultTolerance.
	Tolerance float64

	// Radius bounds the expansion: only positions within Radius of the
	// anchor are returned. Zero means the cluster's own extent around the
	// anchor (every raw site stays reachable).
	Radius float64

	// MaxShell caps the translation shell. Zero grows the shell adaptively
	// until a full shell contributes no new position inside Radius.
	MaxShell int
}

// Expand enumerates the lattice sites reachable from anchor: every stored
// cluster site translated by integer combinations of the primitive vectors,
// deduplicated within the coincidence tolerance and sorted by ascending
// distance from the anchor (ties broken lexicographically by coordinates).
//
// The returned order is a contract: downstream correlation lookups index by
// proximity rank. An empty cluster yields an empty result. Requesting a
// radius beyond the raw cluster, or an explicit shell, without primitive
// vectors fails with ErrNoPrimitives.
func Expand(sites []Vec3, primitives []Vec3, anchor Vec3, opts ExpandOptions) ([]Generated, error) {
	if len(sites) == 0 {
		return nil, nil
	}

	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	extent := 0.0
	for _, s := range sites {
		if d := s.DistanceTo(anchor); d > extent {
			extent = d
		}
	}
	radius := opts.Radius
	if radius <= 0 {
		radius = extent
	}

	if len(primitives) == 0 {
		if opts.MaxShell > 0 || radius > extent+tol {
			return nil, ErrNoPrimitives
		}
		return collect(sites, nil, anchor, radius, 0, tol)
	}

	if opts.MaxShell > 0 {
		return collect(sites, primitives, anchor, radius, opts.MaxShell, tol)
	}

	// Adaptive window: grow the shell until a full shell adds nothing new
	// inside the radius. The cap guards against degenerate primitive sets
	// (e.g. a zero vector) that would otherwise never converge.
	const maxAdaptiveShell = 64
	prev := -1
	for shell := 1; shell <= maxAdaptiveShell; shell++ {
		gen, err := collect(sites, primitives, anchor, radius, shell, tol)
		if err != nil {
			return nil, err
		}
		if len(gen) == prev {
			return gen, nil
		}
		prev = len(gen)
	}
	return nil, fmt.Errorf("lattice: expansion window did not converge within %d shells", maxAdaptiveShell)
}

// collect generates all images up to the given shell, deduplicates and sorts.
func collect(sites []Vec3, primitives []Vec3, anchor Vec3, radius float64, shell int, tol float64) ([]Generated, error) {
	seen := NewGrid(2 * tol)
	var out []Generated

	add := func(g Generated) {
		if g.Position.DistanceTo(anchor) > radius+tol {
			return
		}
		if seen.Contains(g.Position, tol) {
			return
		}
		seen.Insert(len(out), g.Position)
		out = append(out, g)
	}

	// Raw cluster first so that deduplication keeps stored sites over images.
	for i, s := range sites {
		add(Generated{Position: s, Source: i})
	}

	bound := func(dim int) int {
		if dim < len(primitives) {
			return shell
		}
		return 0
	}
	b1, b2, b3 := bound(0), bound(1), bound(2)

	for n1 := -b1; n1 <= b1; n1++ {
		for n2 := -b2; n2 <= b2; n2++ {
			for n3 := -b3; n3 <= b3; n3++ {
				if n1 == 0 && n2 == 0 && n3 == 0 {
					continue
				}
				var t Vec3
				if b1 > 0 {
					t = t.Add(primitives[0].Scale(float64(n1)))
				}
				if b2 > 0 {
					t = t.Add(primitives[1].Scale(float64(n2)))
				}
				if b3 > 0 {
					t = t.Add(primitives[2].Scale(float64(n3)))
				}
				for i, s := range sites {
					add(Generated{Position: s.Add(t), Source: i, Shift: [3]int{n1, n2, n3}})
				}
			}
		}
	}

	sortByDistance(out, anchor, tol)
	return out, nil
}

func sortByDistance(gen []Generated, anchor Vec3, tol float64) {
	sort.SliceStable(gen, func(i, j int) bool {
		di := gen[i].Position.DistanceTo(anchor)
		dj := gen[j].Position.DistanceTo(anchor)
		if di < dj-tol {
			return true
		}
		if dj < di-tol {
			return false
		}
		return gen[i].Position.Less(gen[j].Position, tol)
	})
}

// Positions projects generated sites onto their positions, preserving order.
func Positions(gen []Generated) []Vec3 {
	out := make([]Vec3, len(gen))
	for i, g := range gen {
		out[i] = g.Position
	}
	return out
}

// Index resolves arbitrary positions to known lattice sites.
type Index struct {
	grid *Grid
	tol  float64
}

// NewIndex builds a nearest-site index over the given positions.
// Site identifiers are the slice indices.
func NewIndex(positions []Vec3, tol float64) *Index {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &Index{grid: NewGridFrom(positions, 2*tol), tol: tol}
}

// Resolve matches p to the nearest known site within the tolerance.
// It fails with *ErrNoSiteMatch if no site qualifies.
func (ix *Index) Resolve(p Vec3) (int, error) {
	id, _, ok := ix.grid.Nearest(p, ix.tol)
	if !ok {
		return 0, &ErrNoSiteMatch{Position: p, Tolerance: ix.tol}
	}
	return id, nil
}
