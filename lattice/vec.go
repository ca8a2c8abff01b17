// Package lattice reconstructs periodic lattice geometry from a finite
// simulated cluster: expansion of cluster sites under primitive translations,
// tolerance-based deduplication of coincident points, and nearest-site
// resolution of arbitrary positions.
package lattice

import "math"

// DefaultTolerance is the absolute coincidence tolerance, in the same length
// units as the stored coordinates. Two positions closer than this are the
// same lattice site. It must match the tolerance the upstream solver used
// when folding sites into the finite cluster.
const DefaultTolerance = 1e-6

// Vec3 is a Cartesian position or translation in three dimensions.
type Vec3 [3]float64

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns s * v.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{s * v[0], s * v[1], s * v[2]}
}

// Dot returns the scalar product of v and w.
func (v Vec3) Dot(w Vec3) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// DistanceTo returns the Euclidean distance between v and w.
func (v Vec3) DistanceTo(w Vec3) float64 {
	return v.Sub(w).Norm()
}

// WithinTolerance reports whether v and w describe the same position.
func (v Vec3) WithinTolerance(w Vec3, tol float64) bool {
	return v.DistanceTo(w) < tol
}

// Less orders positions lexicographically by (x, y, z), treating
// coordinates closer than tol as equal.
func (v Vec3) Less(w Vec3, tol float64) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(v[i]-w[i]) >= tol {
			return v[i] < w[i]
		}
	}
	return false
}
