// Package tessellate turns a trajectory into triangle meshes for export:
// one convex hull mesh per analysable snapshot and, given a kernel, one
// marching cubes mesh per envelope the particles were sampled from.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/hull"
	"github.com/chazu/microgel/pkg/kernel"
	"github.com/chazu/microgel/pkg/shape"
	"github.com/chazu/microgel/pkg/sim"
)

// Warning records a snapshot that produced no hull mesh.
type Warning struct {
	Step int64
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("step %d: %v", w.Step, w.Err)
}

// Tessellate produces hull meshes for every snapshot of t and, when k is
// non-nil, envelope meshes for every recorded envelope. Degenerate
// snapshots are skipped and reported as warnings; any other analysis or
// kernel failure aborts. The tessellator never mutates t.
func Tessellate(t *sim.Trajectory, a shape.Analyzer, k kernel.Kernel) ([]*kernel.Mesh, []Warning, error) {
	if t == nil {
		return nil, nil, nil
	}
	a.KeepMesh = true

	var meshes []*kernel.Mesh
	var warnings []Warning
	for _, s := range t.Snapshots {
		d, err := a.Analyze(s.Positions)
		if errors.Is(err, hull.ErrDegenerate) {
			warnings = append(warnings, Warning{Step: s.Step, Err: err})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("tessellate: step %d: %w", s.Step, err)
		}
		m := HullMesh(d)
		m.Step = s.Step
		m.Name = fmt.Sprintf("step-%d/hull", s.Step)
		d.Mesh.Release()
		meshes = append(meshes, m)
	}

	if k == nil {
		return meshes, warnings, nil
	}
	for _, e := range t.Envelopes {
		m, err := k.ToMesh(e.Solid)
		if err != nil {
			return nil, nil, fmt.Errorf("tessellate: envelope %s: %w", e.Name, err)
		}
		m.Step = e.Step
		m.Name = e.Name
		meshes = append(meshes, m)
	}
	return meshes, warnings, nil
}

// HullMesh converts the hull kept in d to a flat-shaded export mesh in the
// input's absolute coordinates. Every facet gets its own three vertices so
// that normals stay per facet. d.Mesh must be set.
func HullMesh(d *shape.Descriptors) *kernel.Mesh {
	hm := d.Mesh
	n := hm.FacetCount()
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, n*9),
		Normals:  make([]float32, 0, n*9),
		Indices:  make([]uint32, 0, n*3),
	}
	for i := 0; i < n; i++ {
		a, b, c := hm.Facet(i)
		normal := b.Sub(a).Cross(c.Sub(a)).Normalize()
		for j, v := range [3]geom.Vec{a, b, c} {
			v = v.Add(d.CenterOfMass)
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			m.Normals = append(m.Normals, float32(normal.X), float32(normal.Y), float32(normal.Z))
			m.Indices = append(m.Indices, uint32(i*3+j))
		}
	}
	return m
}
