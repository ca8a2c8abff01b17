package container

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/spinobs/lattice"
)

// Schema names of the correlation-observable layout. The layout mirrors
// the groups the upstream solver writes: per observable a "meta" group
// with the lattice geometry and a "data" group with one measurement
// subgroup per renormalization-flow checkpoint.
const (
	GroupMeta = "meta"
	GroupData = "data"

	DatasetLatticeVectors = "latticeVectors"
	DatasetBasis          = "basis"
	DatasetParametrized   = "parametrized"
	DatasetBonds          = "bonds"

	sitesPrefix       = "sites_"
	dataPrefix        = "data_"
	maskPrefix        = "mask_"
	measurementPrefix = "measurement_"

	AttrFlowCutoff = "cutoff"
)

// Site is one stored cluster site.
type Site struct {
	ID           int
	Position     lattice.Vec3
	Parametrized bool
}

// Bond is an ordered pair of site identifiers. Bonds are carried for the
// visualization collaborator; the observable math never uses them.
type Bond struct {
	From, To int
}

// Tensor is a 3x3 spin-component correlation matrix.
type Tensor [3][3]float64

// Trace returns the sum of the diagonal elements.
func (t Tensor) Trace() float64 {
	return t[0][0] + t[1][1] + t[2][2]
}

// Measurement describes one stored checkpoint of the flow.
type Measurement struct {
	// Index is the position in the measurement sequence.
	Index int
	// FlowCutoff is the renormalization-flow cutoff the checkpoint was
	// taken at. Later measurements have smaller cutoffs.
	FlowCutoff float64
}

// Observables lists the top-level observable group names.
func (c *Container) Observables() []string {
	return c.Root().Groups()
}

// Observable opens the named observable group. An empty name selects the
// sole observable in the container and fails if there is none or more
// than one.
func (c *Container) Observable(name string) (*Observable, error) {
	if name == "" {
		names := c.Observables()
		switch len(names) {
		case 1:
			name = names[0]
		case 0:
			return nil, &SchemaError{Path: "/", Reason: "container holds no observable group"}
		default:
			return nil, &SchemaError{Path: "/", Reason: fmt.Sprintf("container holds %d observable groups, name one of %v", len(names), names)}
		}
	}
	g, err := c.Group(name)
	if err != nil {
		return nil, err
	}
	return &Observable{c: c, group: g, name: name}, nil
}

// Observable exposes typed accessors over one correlation observable.
type Observable struct {
	c     *Container
	group *Group
	name  string
}

// Name returns the observable group name.
func (o *Observable) Name() string { return o.name }

func (o *Observable) meta() (*Group, error) {
	return o.group.Group(GroupMeta)
}

func readVec3s(g *Group, name string) ([]lattice.Vec3, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, err
	}
	dims := ds.Dims()
	if len(dims) != 2 || dims[1] != 3 {
		return nil, &SchemaError{Path: g.childPath(name), Reason: fmt.Sprintf("dims %v, want [n 3]", dims)}
	}
	vals, err := ds.Float64s()
	if err != nil {
		return nil, err
	}
	out := make([]lattice.Vec3, dims[0])
	for i := range out {
		copy(out[i][:], vals[3*i:3*i+3])
	}
	return out, nil
}

// PrimitiveVectors returns the primitive translation vectors of the
// infinite lattice.
func (o *Observable) PrimitiveVectors() ([]lattice.Vec3, error) {
	meta, err := o.meta()
	if err != nil {
		return nil, err
	}
	return readVec3s(meta, DatasetLatticeVectors)
}

// Basis returns the sublattice offsets within one primitive cell.
func (o *Observable) Basis() ([]lattice.Vec3, error) {
	meta, err := o.meta()
	if err != nil {
		return nil, err
	}
	return readVec3s(meta, DatasetBasis)
}

// NumReferences returns the number of stored reference sites.
func (o *Observable) NumReferences() (int, error) {
	meta, err := o.meta()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, name := range meta.Datasets() {
		if strings.HasPrefix(name, sitesPrefix) {
			n++
		}
	}
	if n == 0 {
		return 0, &SchemaError{Path: o.group.childPath(GroupMeta), Reason: "no per-reference site datasets"}
	}
	return n, nil
}

// PartnerSites returns the correlation partner positions of reference r,
// in storage order. The first entry is the reference site itself.
func (o *Observable) PartnerSites(r int) ([]lattice.Vec3, error) {
	meta, err := o.meta()
	if err != nil {
		return nil, err
	}
	return readVec3s(meta, sitesPrefix+strconv.Itoa(r))
}

// ReferenceSites returns the positions of all stored reference sites.
func (o *Observable) ReferenceSites() ([]lattice.Vec3, error) {
	n, err := o.NumReferences()
	if err != nil {
		return nil, err
	}
	out := make([]lattice.Vec3, n)
	for r := 0; r < n; r++ {
		partners, err := o.PartnerSites(r)
		if err != nil {
			return nil, err
		}
		if len(partners) == 0 {
			return nil, &SchemaError{Path: o.group.childPath(GroupMeta), Reason: fmt.Sprintf("reference %d has no sites", r)}
		}
		out[r] = partners[0]
	}
	return out, nil
}

// Sites returns the stored cluster sites (the partner list of reference 0)
// with their parametrization flags.
func (o *Observable) Sites() ([]Site, error) {
	positions, err := o.PartnerSites(0)
	if err != nil {
		return nil, err
	}

	meta, err := o.meta()
	if err != nil {
		return nil, err
	}
	ds, err := meta.Dataset(DatasetParametrized)
	if err != nil {
		return nil, err
	}
	flags, err := ds.Int64s()
	if err != nil {
		return nil, err
	}
	if len(flags) != len(positions) {
		return nil, &SchemaError{
			Path:   meta.childPath(DatasetParametrized),
			Reason: fmt.Sprintf("%d flags for %d sites", len(flags), len(positions)),
		}
	}

	sites := make([]Site, len(positions))
	for i, p := range positions {
		sites[i] = Site{ID: i, Position: p, Parametrized: flags[i] != 0}
	}
	return sites, nil
}

// Bonds returns the stored bond list.
func (o *Observable) Bonds() ([]Bond, error) {
	meta, err := o.meta()
	if err != nil {
		return nil, err
	}
	ds, err := meta.Dataset(DatasetBonds)
	if err != nil {
		return nil, err
	}
	dims := ds.Dims()
	if len(dims) != 2 || dims[1] != 2 {
		return nil, &SchemaError{Path: meta.childPath(DatasetBonds), Reason: fmt.Sprintf("dims %v, want [n 2]", dims)}
	}
	vals, err := ds.Int64s()
	if err != nil {
		return nil, err
	}
	bonds := make([]Bond, dims[0])
	for i := range bonds {
		bonds[i] = Bond{From: int(vals[2*i]), To: int(vals[2*i+1])}
	}
	return bonds, nil
}

// Measurements lists the stored flow checkpoints in index order.
func (o *Observable) Measurements() ([]Measurement, error) {
	data, err := o.group.Group(GroupData)
	if err != nil {
		return nil, err
	}

	var out []Measurement
	for _, name := range data.Groups() {
		idxStr, ok := strings.CutPrefix(name, measurementPrefix)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, &SchemaError{Path: data.childPath(name), Reason: "malformed measurement group name"}
		}
		mg, err := data.Group(name)
		if err != nil {
			return nil, err
		}
		flow, err := mg.Float64Attr(AttrFlowCutoff)
		if err != nil {
			return nil, err
		}
		out = append(out, Measurement{Index: idx, FlowCutoff: flow})
	}
	if len(out) == 0 {
		return nil, &SchemaError{Path: o.group.childPath(GroupData), Reason: "no measurements"}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// CorrelationTensor returns the stored correlation matrices of
// measurement m for reference r, keyed by partner site identifier.
// Partners outside the measurement's presence mask are omitted.
func (o *Observable) CorrelationTensor(m, r int) (map[int]Tensor, error) {
	data, err := o.group.Group(GroupData)
	if err != nil {
		return nil, err
	}
	mg, err := data.Group(measurementPrefix + strconv.Itoa(m))
	if err != nil {
		return nil, err
	}

	ds, err := mg.Dataset(dataPrefix + strconv.Itoa(r))
	if err != nil {
		return nil, err
	}
	dims := ds.Dims()
	if len(dims) != 3 || dims[1] != 3 || dims[2] != 3 {
		return nil, &SchemaError{Path: mg.childPath(dataPrefix + strconv.Itoa(r)), Reason: fmt.Sprintf("dims %v, want [n 3 3]", dims)}
	}
	vals, err := ds.Float64s()
	if err != nil {
		return nil, err
	}

	// The mask marks which partners were measured. No mask means all.
	var present func(int) bool
	if maskDS, err := mg.Dataset(maskPrefix + strconv.Itoa(r)); err == nil {
		bm, err := maskDS.Bitmap()
		if err != nil {
			return nil, err
		}
		present = func(j int) bool { return bm.ContainsInt(j) }
	} else {
		present = func(int) bool { return true }
	}

	out := make(map[int]Tensor, dims[0])
	for j := 0; j < dims[0]; j++ {
		if !present(j) {
			continue
		}
		var t Tensor
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				t[a][b] = vals[9*j+3*a+b]
			}
		}
		out[j] = t
	}
	return out, nil
}
