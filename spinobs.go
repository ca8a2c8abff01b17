// Package spinobs extracts physical observables from the persisted output
// of a pseudo-fermion renormalization-group spin-model solver.
//
// A result container holds a finite simulated cluster (site positions,
// primitive translation vectors, sublattice basis) together with pairwise
// spin-spin correlation tensors measured along the renormalization flow.
// spinobs reconstructs the lattice geometry around any reference site,
// retrieves distance-filtered correlations, and evaluates static structure
// factors at caller-supplied momentum points:
//
//	ctx := context.Background()
//	res, err := spinobs.Open(ctx, "run.spn")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer res.Close()
//
//	values, err := res.Correlation(ctx, observable.Query{
//	    Reference: lattice.Vec3{0, 0, 0},
//	    Targets:   observable.AllSites(),
//	    Cutoff:    observable.CutoffAt(3.0),
//	    Component: observable.ComponentZZ,
//	})
//
// Containers are read from the local filesystem by default; WithBlobStore
// switches to in-memory, S3 or MinIO backed stores. All query evaluation
// is read-only, so one open handle may serve concurrent queries.
package spinobs

import (
	"context"

	"github.com/hupe1980/spinobs/container"
	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/observable"
)

// Result is an open result container handle.
type Result struct {
	container *container.Container
	obs       *container.Observable
	extractor *observable.Extractor
	logger    *Logger
	tolerance float64
	maxShell  int
}

// Open reads the container at path and prepares it for queries.
func Open(ctx context.Context, path string, optFns ...Option) (*Result, error) {
	o := applyOptions(optFns)

	c, err := container.Open(ctx, o.store, path)
	if err != nil {
		return nil, translateError(err)
	}

	obs, err := c.Observable(o.observable)
	if err != nil {
		c.Close()
		return nil, translateError(err)
	}

	extOpts := []observable.Option{observable.WithTolerance(o.tolerance)}
	if o.measurement >= 0 {
		extOpts = append(extOpts, observable.WithMeasurement(o.measurement))
	}
	if o.maxShell > 0 {
		extOpts = append(extOpts, observable.WithMaxShell(o.maxShell))
	}
	if o.concurrency > 0 {
		extOpts = append(extOpts, observable.WithConcurrency(o.concurrency))
	}
	if o.controller != nil {
		extOpts = append(extOpts, observable.WithController(o.controller))
	}

	logger := o.logger.WithPath(path).WithObservable(obs.Name())
	logger.DebugContext(ctx, "container opened")

	return &Result{
		container: c,
		obs:       obs,
		extractor: observable.New(obs, extOpts...),
		logger:    logger,
		tolerance: o.tolerance,
		maxShell:  o.maxShell,
	}, nil
}

// Close releases the container handle.
func (r *Result) Close() error {
	return r.container.Close()
}

// ObservableName returns the name of the selected observable group.
func (r *Result) ObservableName() string {
	return r.obs.Name()
}

// LatticeBasis returns the sublattice offsets within one primitive cell.
func (r *Result) LatticeBasis() ([]lattice.Vec3, error) {
	basis, err := r.obs.Basis()
	return basis, translateError(err)
}

// LatticePrimitives returns the primitive translation vectors of the
// infinite lattice.
func (r *Result) LatticePrimitives() ([]lattice.Vec3, error) {
	prims, err := r.obs.PrimitiveVectors()
	return prims, translateError(err)
}

// LatticeSites enumerates the lattice site positions reachable from
// anchor, sorted by ascending distance from it with lexicographic
// tie-breaking. The order is deterministic across calls.
func (r *Result) LatticeSites(ctx context.Context, anchor lattice.Vec3) ([]lattice.Vec3, error) {
	sites, err := r.obs.Sites()
	if err != nil {
		return nil, translateError(err)
	}
	positions := make([]lattice.Vec3, len(sites))
	for i, s := range sites {
		positions[i] = s.Position
	}

	prims, err := r.obs.PrimitiveVectors()
	if err != nil {
		return nil, translateError(err)
	}

	gen, err := lattice.Expand(positions, prims, anchor, lattice.ExpandOptions{
		Tolerance: r.tolerance,
		MaxShell:  r.maxShell,
	})
	if err != nil {
		r.logger.LogQuery(ctx, "lattice_sites", 0, err)
		return nil, translateError(err)
	}
	r.logger.LogQuery(ctx, "lattice_sites", len(gen), nil)
	return lattice.Positions(gen), nil
}

// Correlation resolves a correlation query. See observable.Query for the
// cutoff, target and component semantics.
func (r *Result) Correlation(ctx context.Context, q observable.Query) ([]observable.Value, error) {
	values, err := r.extractor.Correlation(q)
	r.logger.LogQuery(ctx, "correlation", len(values), err)
	return values, translateError(err)
}

// StructureFactor evaluates the static structure factor at the given
// momentum points, one real value per point in input order.
func (r *Result) StructureFactor(ctx context.Context, momenta []lattice.Vec3, cutoff observable.Cutoff, component observable.Component) ([]float64, error) {
	values, err := r.extractor.StructureFactor(ctx, momenta, cutoff, component)
	r.logger.LogQuery(ctx, "structure_factor", len(values), err)
	return values, translateError(err)
}

// GetLatticeBasis opens the container at path and returns its sublattice
// basis.
func GetLatticeBasis(ctx context.Context, path string, optFns ...Option) ([]lattice.Vec3, error) {
	r, err := Open(ctx, path, optFns...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.LatticeBasis()
}

// GetLatticePrimitives opens the container at path and returns its
// primitive translation vectors.
func GetLatticePrimitives(ctx context.Context, path string, optFns ...Option) ([]lattice.Vec3, error) {
	r, err := Open(ctx, path, optFns...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.LatticePrimitives()
}

// GetLatticeSites opens the container at path and enumerates the lattice
// sites reachable from anchor.
func GetLatticeSites(ctx context.Context, path string, anchor lattice.Vec3, optFns ...Option) ([]lattice.Vec3, error) {
	r, err := Open(ctx, path, optFns...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.LatticeSites(ctx, anchor)
}

// GetCorrelation opens the container at path and resolves one
// correlation query.
func GetCorrelation(ctx context.Context, path string, q observable.Query, optFns ...Option) ([]observable.Value, error) {
	r, err := Open(ctx, path, optFns...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.Correlation(ctx, q)
}

// GetStructureFactor opens the container at path and evaluates the
// static structure factor at the given momentum points.
func GetStructureFactor(ctx context.Context, path string, momenta []lattice.Vec3, cutoff observable.Cutoff, component observable.Component, optFns ...Option) ([]float64, error) {
	r, err := Open(ctx, path, optFns...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.StructureFactor(ctx, momenta, cutoff, component)
}
