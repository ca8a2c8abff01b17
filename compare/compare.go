// Package compare checks two result containers for equality within an
// absolute numeric tolerance. It is the library form of the regression
// harness used to validate solver output against reference runs: the
// first mismatching path is reported, shape mismatches included.
package compare

import (
	"fmt"
	"math"

	"github.com/hupe1980/spinobs/container"
)

// DefaultTolerance is the absolute tolerance for numeric values.
const DefaultTolerance = 1e-5

// Option configures a comparison.
type Option func(*options)

type options struct {
	tolerance float64
}

// WithTolerance sets the absolute tolerance for numeric values.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}

// Mismatch reports the first difference between two containers.
type Mismatch struct {
	// Path is the slash-separated location of the differing group,
	// attribute or dataset.
	Path   string
	Reason string
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("compare: %s: %s", m.Path, m.Reason)
}

// Containers compares two containers recursively. It returns nil when
// every group, attribute and dataset matches within the tolerance, and
// a *Mismatch describing the first difference otherwise. Traversal is
// in sorted name order, so the reported mismatch is deterministic.
func Containers(got, want *container.Container, optFns ...Option) error {
	o := options{tolerance: DefaultTolerance}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return compareGroups(got.Root(), want.Root(), o.tolerance)
}

func compareGroups(got, want *container.Group, tol float64) error {
	path := got.Path()
	if path == "" {
		path = "/"
	}

	if err := compareNames(path, "attribute", got.Attrs(), want.Attrs()); err != nil {
		return err
	}
	for _, name := range got.Attrs() {
		if err := compareAttr(got, want, name, tol); err != nil {
			return err
		}
	}

	if err := compareNames(path, "dataset", got.Datasets(), want.Datasets()); err != nil {
		return err
	}
	for _, name := range got.Datasets() {
		if err := compareDataset(got, want, name, tol); err != nil {
			return err
		}
	}

	if err := compareNames(path, "group", got.Groups(), want.Groups()); err != nil {
		return err
	}
	for _, name := range got.Groups() {
		g1, err := got.Group(name)
		if err != nil {
			return err
		}
		g2, err := want.Group(name)
		if err != nil {
			return err
		}
		if err := compareGroups(g1, g2, tol); err != nil {
			return err
		}
	}
	return nil
}

// compareNames checks that two sorted name lists are identical.
func compareNames(path, kind string, got, want []string) error {
	for i := 0; i < len(got) && i < len(want); i++ {
		if got[i] != want[i] {
			return &Mismatch{Path: path, Reason: fmt.Sprintf("%s %q vs %q", kind, got[i], want[i])}
		}
	}
	if len(got) != len(want) {
		return &Mismatch{Path: path, Reason: fmt.Sprintf("%d vs %d %ss", len(got), len(want), kind)}
	}
	return nil
}

func compareAttr(got, want *container.Group, name string, tol float64) error {
	path := childPath(got.Path(), name)

	if s1, err := got.StringAttr(name); err == nil {
		s2, err := want.StringAttr(name)
		if err != nil {
			return &Mismatch{Path: path, Reason: "attribute kind differs"}
		}
		if s1 != s2 {
			return &Mismatch{Path: path, Reason: fmt.Sprintf("%q vs %q", s1, s2)}
		}
		return nil
	}

	f1, err := got.Float64Attr(name)
	if err != nil {
		return err
	}
	f2, err := want.Float64Attr(name)
	if err != nil {
		return &Mismatch{Path: path, Reason: "attribute kind differs"}
	}
	if math.Abs(f1-f2) > tol {
		return &Mismatch{Path: path, Reason: fmt.Sprintf("%g vs %g", f1, f2)}
	}
	return nil
}

func compareDataset(got, want *container.Group, name string, tol float64) error {
	path := childPath(got.Path(), name)

	d1, err := got.Dataset(name)
	if err != nil {
		return err
	}
	d2, err := want.Dataset(name)
	if err != nil {
		return err
	}

	if d1.Kind() != d2.Kind() {
		return &Mismatch{Path: path, Reason: fmt.Sprintf("kind %s vs %s", d1.Kind(), d2.Kind())}
	}
	dims1, dims2 := d1.Dims(), d2.Dims()
	if len(dims1) != len(dims2) {
		return &Mismatch{Path: path, Reason: fmt.Sprintf("shape %v vs %v", dims1, dims2)}
	}
	for i := range dims1 {
		if dims1[i] != dims2[i] {
			return &Mismatch{Path: path, Reason: fmt.Sprintf("shape %v vs %v", dims1, dims2)}
		}
	}

	switch d1.Kind() {
	case container.KindFloat64:
		v1, err := d1.Float64s()
		if err != nil {
			return err
		}
		v2, err := d2.Float64s()
		if err != nil {
			return err
		}
		for i := range v1 {
			if math.Abs(v1[i]-v2[i]) > tol {
				return &Mismatch{Path: path, Reason: fmt.Sprintf("element %d: %g vs %g", i, v1[i], v2[i])}
			}
		}
	case container.KindInt64:
		v1, err := d1.Int64s()
		if err != nil {
			return err
		}
		v2, err := d2.Int64s()
		if err != nil {
			return err
		}
		for i := range v1 {
			if v1[i] != v2[i] {
				return &Mismatch{Path: path, Reason: fmt.Sprintf("element %d: %d vs %d", i, v1[i], v2[i])}
			}
		}
	case container.KindBitmap:
		b1, err := d1.Bitmap()
		if err != nil {
			return err
		}
		b2, err := d2.Bitmap()
		if err != nil {
			return err
		}
		if !b1.Equals(b2) {
			return &Mismatch{Path: path, Reason: "bitmaps differ"}
		}
	default:
		return &Mismatch{Path: path, Reason: fmt.Sprintf("unknown dataset kind %q", d1.Kind())}
	}
	return nil
}

func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
