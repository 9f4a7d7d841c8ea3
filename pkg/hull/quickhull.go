// Package hull computes the convex hull of a 3-D point cloud with the
// quickhull algorithm and returns it as an outward-wound triangle mesh.
package hull

import (
	"math"

	"github.com/chazu/microgel/pkg/geom"
)

// dblEpsilon is the spacing of float64 values around 1.
const dblEpsilon = 2.220446049250313e-16

// Builder configures hull construction. The zero value is ready to use.
type Builder struct {
	// Epsilon is the distance a point must lie beyond a facet plane to count
	// as outside it. Zero selects 3·ε·(max|x|+max|y|+max|z|) of the input.
	Epsilon float64
}

// Build computes the convex hull of points with a zero-value Builder.
func Build(points []geom.Vec) (*Mesh, error) {
	var b Builder
	return b.Build(points)
}

// Tolerance returns the outside-distance threshold Build will use for points.
func (b Builder) Tolerance(points []geom.Vec) float64 {
	if b.Epsilon > 0 {
		return b.Epsilon
	}
	return 3 * dblEpsilon * geom.MaxAbsSum(points)
}

// Build computes the convex hull of points. The input is not modified.
// Fewer than four points, or points that do not span three dimensions,
// produce an error matching ErrDegenerate.
func (b Builder) Build(points []geom.Vec) (*Mesh, error) {
	n := len(points)
	if n < 4 {
		return nil, degenerate("too few points", n)
	}
	for _, p := range points {
		if !geom.IsFinite(p) {
			return nil, ErrNonFinite
		}
	}

	qh := &quickhull{
		points: points,
		eps:    b.Tolerance(points),
		edges:  make(map[[2]int]int),
	}
	if err := qh.initialTetrahedron(); err != nil {
		return nil, err
	}
	qh.expand()
	return qh.mesh(), nil
}

type face struct {
	v       [3]int
	normal  geom.Vec
	offset  float64
	outside []int
	alive   bool
}

func (f *face) distance(p geom.Vec) float64 {
	return f.normal.Dot(p) - f.offset
}

type quickhull struct {
	points []geom.Vec
	eps    float64
	faces  []*face
	// edges maps a directed edge to the live face that owns it.
	edges map[[2]int]int
}

func (qh *quickhull) newFace(a, b, c int) *face {
	pa, pb, pc := qh.points[a], qh.points[b], qh.points[c]
	n := pb.Sub(pa).Cross(pc.Sub(pa))
	f := &face{v: [3]int{a, b, c}, alive: true}
	if l := n.Length(); l > 0 {
		f.normal = n.DivScalar(l)
		f.offset = f.normal.Dot(pa)
	}
	return f
}

func (qh *quickhull) addFace(f *face) int {
	id := len(qh.faces)
	qh.faces = append(qh.faces, f)
	for j := 0; j < 3; j++ {
		qh.edges[[2]int{f.v[j], f.v[(j+1)%3]}] = id
	}
	return id
}

func (qh *quickhull) removeFace(id int) {
	f := qh.faces[id]
	f.alive = false
	for j := 0; j < 3; j++ {
		e := [2]int{f.v[j], f.v[(j+1)%3]}
		if qh.edges[e] == id {
			delete(qh.edges, e)
		}
	}
	f.outside = nil
}

func (qh *quickhull) initialTetrahedron() error {
	pts := qh.points
	n := len(pts)

	// Extremal points along each axis; ties keep the first index.
	var ext [6]int
	for i := 0; i < 3; i++ {
		lo, hi := 0, 0
		for k := 1; k < n; k++ {
			c := geom.Component(pts[k], i)
			if c < geom.Component(pts[lo], i) {
				lo = k
			}
			if c > geom.Component(pts[hi], i) {
				hi = k
			}
		}
		ext[2*i], ext[2*i+1] = lo, hi
	}

	a, b := ext[0], ext[1]
	best := -1.0
	for i := 0; i < 6; i++ {
		for j := i + 1; j < 6; j++ {
			d := pts[ext[i]].Sub(pts[ext[j]]).Length()
			if d > best {
				best, a, b = d, ext[i], ext[j]
			}
		}
	}
	if best <= qh.eps {
		return degenerate("coincident", n)
	}

	dir := pts[b].Sub(pts[a]).DivScalar(best)
	c, best := -1, -1.0
	for k := 0; k < n; k++ {
		d := pts[k].Sub(pts[a]).Cross(dir).Length()
		if d > best {
			best, c = d, k
		}
	}
	if best <= qh.eps {
		return degenerate("collinear", n)
	}

	normal := pts[b].Sub(pts[a]).Cross(pts[c].Sub(pts[a])).Normalize()
	d, best := -1, -1.0
	for k := 0; k < n; k++ {
		dist := math.Abs(normal.Dot(pts[k].Sub(pts[a])))
		if dist > best {
			best, d = dist, k
		}
	}
	if best <= qh.eps {
		return degenerate("coplanar", n)
	}

	centre := pts[a].Add(pts[b]).Add(pts[c]).Add(pts[d]).DivScalar(4)
	for _, tri := range [4][3]int{{a, b, c}, {a, c, d}, {a, d, b}, {b, d, c}} {
		f := qh.newFace(tri[0], tri[1], tri[2])
		if f.distance(centre) > 0 {
			f = qh.newFace(tri[0], tri[2], tri[1])
		}
		qh.addFace(f)
	}

	used := map[int]bool{a: true, b: true, c: true, d: true}
	candidates := make([]int, 0, n-4)
	for k := 0; k < n; k++ {
		if !used[k] {
			candidates = append(candidates, k)
		}
	}
	qh.assign(candidates, []int{0, 1, 2, 3})
	return nil
}

// assign gives each point to the face it lies furthest outside of. Points
// outside none of the faces are dropped for good.
func (qh *quickhull) assign(points []int, faceIDs []int) {
	for _, p := range points {
		bestFace, bestDist := -1, qh.eps
		for _, id := range faceIDs {
			if d := qh.faces[id].distance(qh.points[p]); d > bestDist {
				bestFace, bestDist = id, d
			}
		}
		if bestFace >= 0 {
			f := qh.faces[bestFace]
			f.outside = append(f.outside, p)
		}
	}
}

// nextEye returns the live face holding the outside point furthest from its
// plane, and that point. It returns -1 when the hull is complete.
func (qh *quickhull) nextEye() (int, int) {
	bestFace, bestPoint, bestDist := -1, -1, 0.0
	for id, f := range qh.faces {
		if !f.alive {
			continue
		}
		for _, p := range f.outside {
			if d := f.distance(qh.points[p]); bestFace < 0 || d > bestDist {
				bestFace, bestPoint, bestDist = id, p, d
			}
		}
	}
	return bestFace, bestPoint
}

func (qh *quickhull) expand() {
	for {
		start, eye := qh.nextEye()
		if start < 0 {
			return
		}
		eyePt := qh.points[eye]

		// Flood fill the faces visible from the eye across shared edges.
		visible := map[int]bool{start: true}
		order := []int{start}
		var horizon [][2]int
		for q := 0; q < len(order); q++ {
			f := qh.faces[order[q]]
			for j := 0; j < 3; j++ {
				e := [2]int{f.v[j], f.v[(j+1)%3]}
				nb, ok := qh.edges[[2]int{e[1], e[0]}]
				if !ok {
					continue
				}
				seen, known := visible[nb]
				if !known {
					seen = qh.faces[nb].distance(eyePt) > qh.eps
					visible[nb] = seen
					if seen {
						order = append(order, nb)
					}
				}
				if !seen {
					horizon = append(horizon, e)
				}
			}
		}

		var orphans []int
		for _, id := range order {
			for _, p := range qh.faces[id].outside {
				if p != eye {
					orphans = append(orphans, p)
				}
			}
			qh.removeFace(id)
		}

		created := make([]int, 0, len(horizon))
		for _, e := range horizon {
			created = append(created, qh.addFace(qh.newFace(e[0], e[1], eye)))
		}
		qh.assign(orphans, created)
	}
}

func (qh *quickhull) mesh() *Mesh {
	remap := make(map[int]int)
	m := &Mesh{}
	for _, f := range qh.faces {
		if !f.alive {
			continue
		}
		for _, v := range f.v {
			idx, ok := remap[v]
			if !ok {
				idx = len(m.Vertices)
				remap[v] = idx
				m.Vertices = append(m.Vertices, qh.points[v])
			}
			m.Indices = append(m.Indices, idx)
		}
	}
	return m
}
