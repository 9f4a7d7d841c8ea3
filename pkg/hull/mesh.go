package hull

import "github.com/chazu/microgel/pkg/geom"

// Mesh is a closed triangle mesh describing a convex hull. Vertices holds
// the input points that ended up on the hull, without duplicates, in order of
// first appearance in the facet list. Indices holds three vertex indices per
// facet, wound counter-clockwise when seen from outside.
type Mesh struct {
	Vertices []geom.Vec
	Indices  []int
}

// FacetCount returns the number of triangular facets.
func (m *Mesh) FacetCount() int {
	return len(m.Indices) / 3
}

// VertexCount returns the number of hull vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// Facet returns the three corners of facet i in winding order.
func (m *Mesh) Facet(i int) (a, b, c geom.Vec) {
	k := 3 * i
	return m.Vertices[m.Indices[k]], m.Vertices[m.Indices[k+1]], m.Vertices[m.Indices[k+2]]
}

// Closed reports whether every directed edge is matched by exactly one
// opposite edge, i.e. the facets form a consistently wound closed surface.
func (m *Mesh) Closed() bool {
	if m.FacetCount() == 0 {
		return false
	}
	edges := make(map[[2]int]int, len(m.Indices))
	for f := 0; f < m.FacetCount(); f++ {
		for j := 0; j < 3; j++ {
			a := m.Indices[3*f+j]
			b := m.Indices[3*f+(j+1)%3]
			edges[[2]int{a, b}]++
		}
	}
	for e, n := range edges {
		if n != 1 || edges[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return true
}

// Release drops the mesh buffers. The mesh is empty afterwards and may be
// released again safely.
func (m *Mesh) Release() {
	if m == nil {
		return
	}
	m.Vertices = nil
	m.Indices = nil
}
