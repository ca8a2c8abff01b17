package observable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/observable"
	"github.com/hupe1980/spinobs/testutil"
)

func newFixtureExtractor(t *testing.T, opts ...observable.Option) (*testutil.Fixture, *observable.Extractor) {
	t.Helper()

	f := testutil.NewTriangular()
	c, err := container.Decode(f.MustEncode())
	require.NoError(t, err)

	obs, err := c.Observable(testutil.ObservableName)
	require.NoError(t, err)
	return f, observable.New(obs, opts...)
}

// partnerIndex locates a position in the partner list of reference r.
func partnerIndex(t *testing.T, f *testutil.Fixture, r int, p lattice.Vec3) int {
	t.Helper()
	for j, q := range f.Partners[r] {
		if q.DistanceTo(p) < lattice.DefaultTolerance {
			return j
		}
	}
	t.Fatalf("position %v not in partner list of reference %d", p, r)
	return -1
}

func TestCorrelationAllSites(t *testing.T) {
	f, e := newFixtureExtractor(t)

	values, err := e.Correlation(observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.AllSites(),
		Cutoff:    observable.CutoffAll(),
		Component: observable.ComponentAll,
	})
	require.NoError(t, err)

	// Every stored partner survives except the one outside the mask.
	assert.Len(t, values, len(f.Partners[0])-len(f.MaskedOut[0]))

	// The reference pairs with itself first.
	assert.Equal(t, lattice.Vec3{0, 0, 0}, values[0].Position)
	assert.Zero(t, values[0].Distance)
	assert.Equal(t, f.Tensor(1, 0, 0), values[0].Tensor)
	assert.Equal(t, f.Tensor(1, 0, 0).Trace(), values[0].Scalar)

	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i].Distance, values[i-1].Distance-lattice.DefaultTolerance)
	}
}

func TestCorrelationDeterminism(t *testing.T) {
	_, e := newFixtureExtractor(t)

	q := observable.Query{
		Reference: lattice.Vec3{1, 0, 0},
		Targets:   observable.AllSites(),
		Cutoff:    observable.CutoffAt(2.5),
		Component: observable.ComponentZZ,
	}
	first, err := e.Correlation(q)
	require.NoError(t, err)
	second, err := e.Correlation(q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCorrelationCutoffPrefix(t *testing.T) {
	_, e := newFixtureExtractor(t)

	query := func(c float64) []observable.Value {
		values, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{0, 0, 0},
			Targets:   observable.AllSites(),
			Cutoff:    observable.CutoffAt(c),
			Component: observable.ComponentAll,
		})
		require.NoError(t, err)
		return values
	}

	narrow, wide := query(1.2), query(2.2)
	require.Less(t, len(narrow), len(wide))
	assert.Equal(t, narrow, wide[:len(narrow)])
}

func TestCorrelationCutoffInclusive(t *testing.T) {
	_, e := newFixtureExtractor(t)

	// The nearest neighbour sits at distance exactly 1.
	values, err := e.Correlation(observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.AllSites(),
		Cutoff:    observable.CutoffAt(1.0),
		Component: observable.ComponentAll,
	})
	require.NoError(t, err)

	found := false
	for _, v := range values {
		if v.Position.DistanceTo(lattice.Vec3{1, 0, 0}) < lattice.DefaultTolerance {
			found = true
		}
		assert.LessOrEqual(t, v.Distance, 1.0+lattice.DefaultTolerance)
	}
	assert.True(t, found, "boundary site at the cutoff distance excluded")
}

func TestCorrelationExplicitTargets(t *testing.T) {
	f, e := newFixtureExtractor(t)

	t.Run("Single", func(t *testing.T) {
		values, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{0, 0, 0},
			Targets:   observable.At(lattice.Vec3{1, 0, 0}),
			Cutoff:    observable.CutoffAll(),
			Component: observable.ComponentXX,
		})
		require.NoError(t, err)
		require.Len(t, values, 1)

		j := partnerIndex(t, f, 0, lattice.Vec3{1, 0, 0})
		assert.Equal(t, f.Tensor(1, 0, j)[0][0], values[0].Scalar)
		assert.InDelta(t, 1.0, values[0].Distance, 1e-12)
	})

	t.Run("PerTargetCutoff", func(t *testing.T) {
		// The second target sits at distance 1 but its own cutoff is 0.5,
		// so only the first survives.
		values, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{0, 0, 0},
			Targets:   observable.Each(lattice.Vec3{0, 0, 0}, lattice.Vec3{1, 0, 0}),
			Cutoff:    observable.CutoffEach(2.0, 0.5),
			Component: observable.ComponentAll,
		})
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, lattice.Vec3{0, 0, 0}, values[0].Position)
	})
}

func TestCorrelationCutoffMismatch(t *testing.T) {
	_, e := newFixtureExtractor(t)

	_, err := e.Correlation(observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.Each(lattice.Vec3{0, 0, 0}, lattice.Vec3{1, 0, 0}),
		Cutoff:    observable.CutoffEach(1.0),
		Component: observable.ComponentAll,
	})
	assert.ErrorIs(t, err, observable.ErrCutoffMismatch)

	_, err = e.Correlation(observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.AllSites(),
		Cutoff:    observable.CutoffEach(1.0),
		Component: observable.ComponentAll,
	})
	assert.ErrorIs(t, err, observable.ErrCutoffMismatch)
}

func TestCorrelationUnresolvedPositions(t *testing.T) {
	_, e := newFixtureExtractor(t)

	t.Run("Reference", func(t *testing.T) {
		_, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{50, 50, 50},
			Targets:   observable.AllSites(),
			Cutoff:    observable.CutoffAll(),
			Component: observable.ComponentAll,
		})
		var noMatch *lattice.ErrNoSiteMatch
		assert.ErrorAs(t, err, &noMatch)
	})

	t.Run("Target", func(t *testing.T) {
		_, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{0, 0, 0},
			Targets:   observable.At(lattice.Vec3{50, 50, 50}),
			Cutoff:    observable.CutoffAll(),
			Component: observable.ComponentAll,
		})
		var noMatch *lattice.ErrNoSiteMatch
		assert.ErrorAs(t, err, &noMatch)
	})
}

func TestCorrelationMaskedTargetExcluded(t *testing.T) {
	f, e := newFixtureExtractor(t)

	masked := f.Partners[0][f.MaskedOut[0][0]]
	values, err := e.Correlation(observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.At(masked),
		Cutoff:    observable.CutoffAll(),
		Component: observable.ComponentAll,
	})
	require.NoError(t, err)
	assert.Empty(t, values, "unmeasured target must be dropped, not zero-filled")
}

func TestCorrelationComponentDecomposition(t *testing.T) {
	_, e := newFixtureExtractor(t)

	base := observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.At(lattice.Vec3{1, 0, 0}),
		Cutoff:    observable.CutoffAll(),
	}

	base.Component = observable.ComponentAll
	full, err := e.Correlation(base)
	require.NoError(t, err)
	require.Len(t, full, 1)

	for c := observable.ComponentXX; c <= observable.ComponentZZ; c++ {
		q := base
		q.Component = c
		values, err := e.Correlation(q)
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, c.Reduce(full[0].Tensor), values[0].Scalar, "component %s", c)
	}
}

func TestCorrelationMeasurementSelection(t *testing.T) {
	f, _ := newFixtureExtractor(t)

	t.Run("Explicit", func(t *testing.T) {
		_, e := newFixtureExtractor(t, observable.WithMeasurement(0))
		values, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{0, 0, 0},
			Targets:   observable.At(lattice.Vec3{0, 0, 0}),
			Cutoff:    observable.CutoffAll(),
			Component: observable.ComponentAll,
		})
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, f.Tensor(0, 0, 0), values[0].Tensor)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, e := newFixtureExtractor(t, observable.WithMeasurement(7))
		_, err := e.Correlation(observable.Query{
			Reference: lattice.Vec3{0, 0, 0},
			Targets:   observable.AllSites(),
			Cutoff:    observable.CutoffAll(),
			Component: observable.ComponentAll,
		})
		assert.ErrorIs(t, err, observable.ErrUnknownMeasurement)
	})
}
