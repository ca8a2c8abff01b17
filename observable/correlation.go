// Package observable resolves correlation queries against an open result
// container: it matches reference and target positions to stored sites,
// applies the distance cutoff, reduces tensors to the requested
// component, and aggregates structure factors over momentum points.
package observable

import (
	"fmt"
	"runtime"
	"sort"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/resource"
)

// Value is one surviving correlation entry.
type Value struct {
	// Position is the target site position.
	Position lattice.Vec3
	// Distance is the Euclidean distance from the resolved reference.
	Distance float64
	// Tensor is the stored 3x3 correlation matrix.
	Tensor container.Tensor
	// Scalar is the requested component of Tensor, or its trace when the
	// full tensor was requested.
	Scalar float64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTolerance sets the coincidence and nearest-match tolerance.
func WithTolerance(tol float64) Option {
	return func(e *Extractor) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithMeasurement selects a stored measurement by index. The default is
// the last measurement, the one furthest down the renormalization flow.
func WithMeasurement(index int) Option {
	return func(e *Extractor) { e.measurement = index }
}

// WithMaxShell fixes the translation shell of the lattice expansion
// instead of growing it adaptively.
func WithMaxShell(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxShell = n
		}
	}
}

// WithConcurrency bounds the number of momentum points evaluated in
// parallel. The default is GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithController attaches a resource controller whose worker slots gate
// structure-factor evaluation.
func WithController(rc *resource.Controller) Option {
	return func(e *Extractor) { e.controller = rc }
}

// Extractor answers correlation and structure-factor queries against one
// observable. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	obs         *container.Observable
	tolerance   float64
	measurement int
	maxShell    int
	concurrency int
	controller  *resource.Controller
}

// New creates an Extractor over the given observable.
func New(obs *container.Observable, opts ...Option) *Extractor {
	e := &Extractor{
		obs:         obs,
		tolerance:   lattice.DefaultTolerance,
		measurement: -1,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Correlation resolves a query into the surviving correlation values,
// ordered by ascending distance from the reference (lexicographic
// tie-break). Targets outside their cutoff or without a measured tensor
// entry are silently excluded; absence means "outside cutoff", never
// "zero correlation".
func (e *Extractor) Correlation(q Query) ([]Value, error) {
	if !q.Component.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownComponent, uint8(q.Component))
	}
	if err := q.Cutoff.validate(q.Targets); err != nil {
		return nil, err
	}

	refs, err := e.obs.ReferenceSites()
	if err != nil {
		return nil, err
	}
	refIdx, err := lattice.NewIndex(refs, e.tolerance).Resolve(q.Reference)
	if err != nil {
		return nil, fmt.Errorf("resolve reference: %w", err)
	}

	partners, err := e.obs.PartnerSites(refIdx)
	if err != nil {
		return nil, err
	}
	refPos := partners[0]

	m, err := e.measurementIndex()
	if err != nil {
		return nil, err
	}
	tensors, err := e.obs.CorrelationTensor(m, refIdx)
	if err != nil {
		return nil, err
	}

	cands, err := e.resolveTargets(q, refPos, partners)
	if err != nil {
		return nil, err
	}

	out := make([]Value, 0, len(cands))
	for _, cand := range cands {
		d := cand.pos.DistanceTo(refPos)
		if limit, bounded := q.Cutoff.limit(cand.ord); bounded && d > limit+e.tolerance {
			continue
		}
		t, ok := tensors[cand.partner]
		if !ok {
			continue
		}
		out = append(out, Value{
			Position: cand.pos,
			Distance: d,
			Tensor:   t,
			Scalar:   q.Component.Reduce(t),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance < out[j].Distance-e.tolerance {
			return true
		}
		if out[j].Distance < out[i].Distance-e.tolerance {
			return false
		}
		return out[i].Position.Less(out[j].Position, e.tolerance)
	})
	return out, nil
}

type candidate struct {
	pos     lattice.Vec3
	partner int
	// ord is the position in the caller's target list, pairing the
	// candidate with its per-target cutoff.
	ord int
}

func (e *Extractor) resolveTargets(q Query, refPos lattice.Vec3, partners []lattice.Vec3) ([]candidate, error) {
	idx := lattice.NewIndex(partners, e.tolerance)

	if q.Targets.all {
		prims, err := e.obs.PrimitiveVectors()
		if err != nil {
			return nil, err
		}
		opts := lattice.ExpandOptions{Tolerance: e.tolerance, MaxShell: e.maxShell}
		if radius, bounded := q.Cutoff.max(); bounded {
			opts.Radius = radius
		}
		gen, err := lattice.Expand(partners, prims, refPos, opts)
		if err != nil {
			return nil, err
		}
		out := make([]candidate, 0, len(gen))
		for i, g := range gen {
			j, err := idx.Resolve(g.Position)
			if err != nil {
				// A translated image without stored correlation data.
				continue
			}
			out = append(out, candidate{pos: g.Position, partner: j, ord: i})
		}
		return out, nil
	}

	out := make([]candidate, 0, len(q.Targets.positions))
	for i, p := range q.Targets.positions {
		j, err := idx.Resolve(p)
		if err != nil {
			return nil, fmt.Errorf("resolve target %d: %w", i, err)
		}
		out = append(out, candidate{pos: partners[j], partner: j, ord: i})
	}
	return out, nil
}

// measurementIndex maps the configured measurement selection onto a
// stored measurement index.
func (e *Extractor) measurementIndex() (int, error) {
	ms, err := e.obs.Measurements()
	if err != nil {
		return 0, err
	}
	if e.measurement < 0 {
		return ms[len(ms)-1].Index, nil
	}
	for _, m := range ms {
		if m.Index == e.measurement {
			return m.Index, nil
		}
	}
	return 0, fmt.Errorf("%w: index %d", ErrUnknownMeasurement, e.measurement)
}
