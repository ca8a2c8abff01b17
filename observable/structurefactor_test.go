package observable_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/observable"
	"github.com/hupe1980/spinobs/resource"
	"github.com/hupe1980/spinobs/testutil"
)

// expectedStructureFactor evaluates the cosine sum directly from the
// fixture data: all unmasked partners of every reference within the
// cutoff, weighted by the trace of the final measurement's tensor.
func expectedStructureFactor(f *testutil.Fixture, k lattice.Vec3, cutoff float64) float64 {
	last := len(f.FlowCutoffs) - 1

	var s float64
	for r, ref := range f.References {
		for j, p := range f.Partners[r] {
			if f.Masked(r, j) {
				continue
			}
			if p.DistanceTo(ref) > cutoff+lattice.DefaultTolerance {
				continue
			}
			s += f.Tensor(last, r, j).Trace() * math.Cos(k.Dot(p.Sub(ref)))
		}
	}
	return s
}

func TestStructureFactorAgainstDirectSum(t *testing.T) {
	f, e := newFixtureExtractor(t)
	ctx := context.Background()

	momenta := []lattice.Vec3{
		{0, 0, 0},
		{1.2, 0.4, 0},
		{4.18879, 0, 0},
	}
	const cutoff = 2.0

	got, err := e.StructureFactor(ctx, momenta, observable.CutoffAt(cutoff), observable.ComponentAll)
	require.NoError(t, err)
	require.Len(t, got, len(momenta))

	for i, k := range momenta {
		assert.InDelta(t, expectedStructureFactor(f, k, cutoff), got[i], 1e-9, "momentum %v", k)
	}
}

func TestStructureFactorAtZeroMomentum(t *testing.T) {
	f, e := newFixtureExtractor(t)
	ctx := context.Background()

	// S(0) is the unweighted sum of all surviving correlations.
	got, err := e.StructureFactor(ctx, []lattice.Vec3{{0, 0, 0}}, observable.CutoffAll(), observable.ComponentZZ)
	require.NoError(t, err)
	require.Len(t, got, 1)

	var want float64
	for _, ref := range f.References {
		values, err := e.Correlation(observable.Query{
			Reference: ref,
			Targets:   observable.AllSites(),
			Cutoff:    observable.CutoffAll(),
			Component: observable.ComponentZZ,
		})
		require.NoError(t, err)
		for _, v := range values {
			want += v.Scalar
		}
	}
	assert.InDelta(t, want, got[0], 1e-12)
}

func TestStructureFactorDeterminism(t *testing.T) {
	_, e := newFixtureExtractor(t, observable.WithConcurrency(4))
	ctx := context.Background()

	momenta := make([]lattice.Vec3, 16)
	for i := range momenta {
		momenta[i] = lattice.Vec3{float64(i) * 0.3, float64(i) * 0.1, 0}
	}

	first, err := e.StructureFactor(ctx, momenta, observable.CutoffAt(2.5), observable.ComponentAll)
	require.NoError(t, err)
	second, err := e.StructureFactor(ctx, momenta, observable.CutoffAt(2.5), observable.ComponentAll)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStructureFactorWithController(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxWorkers: 2})
	f, e := newFixtureExtractor(t, observable.WithController(rc), observable.WithConcurrency(4))
	ctx := context.Background()

	k := lattice.Vec3{0.7, -0.3, 0}
	got, err := e.StructureFactor(ctx, []lattice.Vec3{k}, observable.CutoffAt(1.5), observable.ComponentAll)
	require.NoError(t, err)
	assert.InDelta(t, expectedStructureFactor(f, k, 1.5), got[0], 1e-9)
}

func TestStructureFactorQueryErrors(t *testing.T) {
	_, e := newFixtureExtractor(t)
	ctx := context.Background()

	t.Run("EmptyMomenta", func(t *testing.T) {
		_, err := e.StructureFactor(ctx, nil, observable.CutoffAll(), observable.ComponentAll)
		assert.ErrorIs(t, err, observable.ErrEmptyMomenta)
	})

	t.Run("PerTargetCutoff", func(t *testing.T) {
		_, err := e.StructureFactor(ctx, []lattice.Vec3{{0, 0, 0}}, observable.CutoffEach(1.0), observable.ComponentAll)
		assert.ErrorIs(t, err, observable.ErrCutoffMismatch)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MaxWorkers: 1})
		_, eCtl := newFixtureExtractor(t, observable.WithController(rc))

		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, rc.AcquireWorker(context.Background()))
		defer rc.ReleaseWorker()

		_, err := eCtl.StructureFactor(canceled, []lattice.Vec3{{0, 0, 0}}, observable.CutoffAll(), observable.ComponentAll)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
