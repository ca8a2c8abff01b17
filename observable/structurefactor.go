package observable

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/spinobs/lattice"
)

// StructureFactor evaluates the static structure factor at the given
// momentum points:
//
//	S(k) = sum over surviving (reference, target) pairs of
//	       c(reference, target) * cos(k . (target - reference))
//
// The sum runs over every stored reference site, with the same cutoff
// and silent-exclusion policy as Correlation. Stored correlations are
// symmetric under site exchange, so the cosine sum stays real and
// replaces a complex Fourier sum. The selected component reduces each
// tensor to the scalar c; the full-tensor selection uses the trace.
//
// Momentum points are evaluated in parallel; the result order matches
// the input order. At k = 0 the result is the plain sum of all
// surviving correlations.
func (e *Extractor) StructureFactor(ctx context.Context, momenta []lattice.Vec3, cutoff Cutoff, component Component) ([]float64, error) {
	if len(momenta) == 0 {
		return nil, ErrEmptyMomenta
	}
	if cutoff.perTarget() {
		return nil, fmt.Errorf("%w: per-target cutoffs need an explicit target list", ErrCutoffMismatch)
	}
	if !component.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownComponent, uint8(component))
	}

	pairs, err := e.collectPairs(cutoff, component)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(momenta))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, k := range momenta {
		i, k := i, k
		g.Go(func() error {
			if err := e.controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer e.controller.ReleaseWorker()

			var s float64
			for _, p := range pairs {
				s += p.weight * math.Cos(k.Dot(p.delta))
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type pair struct {
	delta  lattice.Vec3
	weight float64
}

// collectPairs gathers every surviving (reference, target) pair across
// all stored reference sites.
func (e *Extractor) collectPairs(cutoff Cutoff, component Component) ([]pair, error) {
	refs, err := e.obs.ReferenceSites()
	if err != nil {
		return nil, err
	}

	var pairs []pair
	for _, ref := range refs {
		values, err := e.Correlation(Query{
			Reference: ref,
			Targets:   AllSites(),
			Cutoff:    cutoff,
			Component: component,
		})
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			pairs = append(pairs, pair{delta: v.Position.Sub(ref), weight: v.Scalar})
		}
	}
	return pairs, nil
}
