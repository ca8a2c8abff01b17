// Package testutil builds small, fully deterministic result containers
// for tests: a honeycomb lattice (triangular Bravais lattice with a
// two-site basis) with synthetic, distance-decaying correlations.
package testutil

import (
	"math"
	"sort"
	"strconv"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
)

// ObservableName is the observable group name used by fixtures.
const ObservableName = "SU2Cor"

// Fixture describes a synthetic correlation container.
type Fixture struct {
	Primitives []lattice.Vec3
	Basis      []lattice.Vec3

	// Radius truncates the cluster around each reference site.
	Radius float64

	// References holds the reference-site positions (one per basis site).
	References []lattice.Vec3

	// Partners[r] lists the correlation partner positions of reference r,
	// ordered by ascending distance (ties lexicographic), starting with
	// the reference itself.
	Partners [][]lattice.Vec3

	// MaskedOut[r] lists partner identifiers that were not measured.
	MaskedOut map[int][]int

	// FlowCutoffs tags the stored measurements, in index order.
	// Later entries are further down the flow (smaller cutoff).
	FlowCutoffs []float64
}

// NewTriangular builds the standard fixture: honeycomb geometry with
// cluster radius 3, two measurements, and the farthest partner of
// reference 0 left unmeasured.
func NewTriangular() *Fixture {
	f := &Fixture{
		Primitives: []lattice.Vec3{
			{1.5, 0.8660254, 0},
			{1.5, -0.8660254, 0},
			{0, 0, 1},
		},
		Basis: []lattice.Vec3{
			{0, 0, 0},
			{1, 0, 0},
		},
		Radius:      3.0,
		FlowCutoffs: []float64{1.0, 0.1},
	}

	f.References = append([]lattice.Vec3(nil), f.Basis...)
	for _, ref := range f.References {
		f.Partners = append(f.Partners, f.cluster(ref))
	}

	f.MaskedOut = map[int][]int{
		0: {len(f.Partners[0]) - 1},
	}
	return f
}

// cluster enumerates all lattice sites within Radius of ref, sorted by
// ascending distance from ref with lexicographic tie-breaking.
func (f *Fixture) cluster(ref lattice.Vec3) []lattice.Vec3 {
	var sites []lattice.Vec3
	for n1 := -4; n1 <= 4; n1++ {
		for n2 := -4; n2 <= 4; n2++ {
			t := f.Primitives[0].Scale(float64(n1)).Add(f.Primitives[1].Scale(float64(n2)))
			for _, b := range f.Basis {
				p := b.Add(t)
				if p.DistanceTo(ref) <= f.Radius {
					sites = append(sites, p)
				}
			}
		}
	}
	sort.SliceStable(sites, func(i, j int) bool {
		di, dj := sites[i].DistanceTo(ref), sites[j].DistanceTo(ref)
		if di < dj-lattice.DefaultTolerance {
			return true
		}
		if dj < di-lattice.DefaultTolerance {
			return false
		}
		return sites[i].Less(sites[j], lattice.DefaultTolerance)
	})
	return sites
}

// Tensor returns the synthetic correlation matrix of measurement m
// between reference r and its partner j. Values decay exponentially with
// distance and scale down the flow, so distance ordering is observable in
// the outputs.
func (f *Fixture) Tensor(m, r, j int) container.Tensor {
	d := f.Partners[r][j].DistanceTo(f.References[r])
	g := math.Exp(-d) / (1 + f.FlowCutoffs[m])

	var t container.Tensor
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			if a == b {
				t[a][b] = -g * float64(a+1)
			} else {
				t[a][b] = 0.1 * g / float64(a+b+1)
			}
		}
	}
	return t
}

// Masked reports whether partner j of reference r is outside the
// measurement mask.
func (f *Fixture) Masked(r, j int) bool {
	for _, id := range f.MaskedOut[r] {
		if id == j {
			return true
		}
	}
	return false
}

// Writer assembles the fixture into a container writer.
func (f *Fixture) Writer(opts ...container.WriterOption) (*container.Writer, error) {
	w := container.NewWriter(opts...)
	obs := w.Group(ObservableName)

	meta := obs.Group(container.GroupMeta)
	if err := putVec3s(meta, container.DatasetLatticeVectors, f.Primitives); err != nil {
		return nil, err
	}
	if err := putVec3s(meta, container.DatasetBasis, f.Basis); err != nil {
		return nil, err
	}
	for r, partners := range f.Partners {
		if err := putVec3s(meta, "sites_"+itoa(r), partners); err != nil {
			return nil, err
		}
	}

	// Sublattice-0 sites carry the parametrized couplings in this model.
	flags := make([]int64, len(f.Partners[0]))
	for j, p := range f.Partners[0] {
		if onSublatticeZero(p) {
			flags[j] = 1
		}
	}
	if err := meta.PutInt64s(container.DatasetParametrized, []int{len(flags)}, flags); err != nil {
		return nil, err
	}

	bonds := f.bonds()
	if err := meta.PutInt64s(container.DatasetBonds, []int{len(bonds) / 2, 2}, bonds); err != nil {
		return nil, err
	}

	data := obs.Group(container.GroupData)
	for m := range f.FlowCutoffs {
		mg := data.Group("measurement_" + itoa(m))
		mg.SetFloat64Attr(container.AttrFlowCutoff, f.FlowCutoffs[m])

		for r, partners := range f.Partners {
			vals := make([]float64, 0, 9*len(partners))
			mask := roaring.New()
			for j := range partners {
				t := f.Tensor(m, r, j)
				for a := 0; a < 3; a++ {
					vals = append(vals, t[a][:]...)
				}
				if !f.Masked(r, j) {
					mask.AddInt(j)
				}
			}
			if err := mg.PutFloat64s("data_"+itoa(r), []int{len(partners), 3, 3}, vals); err != nil {
				return nil, err
			}
			if err := mg.PutBitmap("mask_"+itoa(r), mask); err != nil {
				return nil, err
			}
		}
	}

	return w, nil
}

// Encode serializes the fixture container.
func (f *Fixture) Encode(opts ...container.WriterOption) ([]byte, error) {
	w, err := f.Writer(opts...)
	if err != nil {
		return nil, err
	}
	return w.Encode()
}

// MustEncode is Encode for test setup paths that cannot fail.
func (f *Fixture) MustEncode(opts ...container.WriterOption) []byte {
	data, err := f.Encode(opts...)
	if err != nil {
		panic(err)
	}
	return data
}

// bonds pairs nearest neighbours of the reference-0 cluster.
func (f *Fixture) bonds() []int64 {
	var out []int64
	sites := f.Partners[0]
	for i := range sites {
		for j := i + 1; j < len(sites); j++ {
			if math.Abs(sites[i].DistanceTo(sites[j])-1.0) < 1e-9 {
				out = append(out, int64(i), int64(j))
			}
		}
	}
	return out
}

func onSublatticeZero(p lattice.Vec3) bool {
	// Sublattice-0 points have x ≡ 0 (mod 1.5) up to rounding.
	_, frac := math.Modf(p[0] / 1.5)
	return math.Abs(frac) < 1e-9 || math.Abs(math.Abs(frac)-1) < 1e-9
}

func putVec3s(g *container.GroupWriter, name string, vs []lattice.Vec3) error {
	vals := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		vals = append(vals, v[:]...)
	}
	return g.PutFloat64s(name, []int{len(vs), 3}, vals)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
