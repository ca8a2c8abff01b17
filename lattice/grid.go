package lattice

import "math"

// Grid is a bucket spatial index over a fixed set of positions.
//
// It answers nearest-neighbour queries bounded by a small search radius in
// O(1) for realistic lattices, replacing a linear scan over all sites. The
// bucket edge equals the search radius, so a query only ever inspects the
// 27 buckets surrounding the query point.
type Grid struct {
	cell    float64
	buckets map[[3]int][]gridEntry
}

type gridEntry struct {
	pos Vec3
	id  int
}

// NewGrid creates a grid with the given bucket edge length.
// The edge must be at least the largest radius passed to Nearest.
func NewGrid(cell float64) *Grid {
	if cell <= 0 {
		cell = DefaultTolerance
	}
	return &Grid{
		cell:    cell,
		buckets: make(map[[3]int][]gridEntry),
	}
}

// NewGridFrom builds a grid holding all given positions, identified by
// their slice index.
func NewGridFrom(positions []Vec3, cell float64) *Grid {
	g := NewGrid(cell)
	for i, p := range positions {
		g.Insert(i, p)
	}
	return g
}

func (g *Grid) key(p Vec3) [3]int {
	return [3]int{
		int(math.Floor(p[0] / g.cell)),
		int(math.Floor(p[1] / g.cell)),
		int(math.Floor(p[2] / g.cell)),
	}
}

// Insert adds a position under the given identifier.
func (g *Grid) Insert(id int, p Vec3) {
	k := g.key(p)
	g.buckets[k] = append(g.buckets[k], gridEntry{pos: p, id: id})
}

// Len returns the number of indexed positions.
func (g *Grid) Len() int {
	n := 0
	for _, b := range g.buckets {
		n += len(b)
	}
	return n
}

// Nearest returns the identifier and position of the indexed point closest
// to p within maxDist. The nearest match wins; ok is false when no indexed
// point lies within maxDist.
func (g *Grid) Nearest(p Vec3, maxDist float64) (id int, pos Vec3, ok bool) {
	if maxDist > g.cell {
		// Degrade to a correct (wider) scan instead of missing candidates.
		return g.nearestWide(p, maxDist)
	}

	best := math.Inf(1)
	k := g.key(p)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				bucket := g.buckets[[3]int{k[0] + dx, k[1] + dy, k[2] + dz}]
				for _, e := range bucket {
					if d := e.pos.DistanceTo(p); d < best && d <= maxDist {
						best, id, pos, ok = d, e.id, e.pos, true
					}
				}
			}
		}
	}
	return id, pos, ok
}

// Contains reports whether any indexed point lies within maxDist of p.
func (g *Grid) Contains(p Vec3, maxDist float64) bool {
	_, _, ok := g.Nearest(p, maxDist)
	return ok
}

func (g *Grid) nearestWide(p Vec3, maxDist float64) (id int, pos Vec3, ok bool) {
	r := int(math.Ceil(maxDist/g.cell)) + 1
	best := math.Inf(1)
	k := g.key(p)
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				bucket := g.buckets[[3]int{k[0] + dx, k[1] + dy, k[2] + dz}]
				for _, e := range bucket {
					if d := e.pos.DistanceTo(p); d < best && d <= maxDist {
						best, id, pos, ok = d, e.id, e.pos, true
					}
				}
			}
		}
	}
	return id, pos, ok
}
