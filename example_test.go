package spinobs_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/spinobs"
	"github.com/hupe1980/spinobs/lattice"
	"github.com/hupe1980/spinobs/observable"
	"github.com/hupe1980/spinobs/testutil"
)

func ExampleOpen() {
	ctx := context.Background()

	// Write a small honeycomb-lattice container to disk.
	dir, err := os.MkdirTemp("", "spinobs")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "run.spn")
	w, err := testutil.NewTriangular().Writer()
	if err != nil {
		log.Fatal(err)
	}
	if err := w.SaveFile(path); err != nil {
		log.Fatal(err)
	}

	res, err := spinobs.Open(ctx, path)
	if err != nil {
		log.Fatal(err)
	}
	defer res.Close()

	basis, err := res.LatticeBasis()
	if err != nil {
		log.Fatal(err)
	}

	values, err := res.Correlation(ctx, observable.Query{
		Reference: lattice.Vec3{0, 0, 0},
		Targets:   observable.At(lattice.Vec3{1, 0, 0}),
		Cutoff:    observable.CutoffAll(),
		Component: observable.ComponentZZ,
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("basis sites: %d\n", len(basis))
	fmt.Printf("nearest-neighbour correlations: %d\n", len(values))
	// Output:
	// basis sites: 2
	// nearest-neighbour correlations: 1
}
