// Package kernel defines the abstract envelope kernel interface.
// Envelopes are closed solids that synthetic microgel particle clouds are
// sampled from; the kernel abstraction keeps the engine and the sampler
// independent of the SDF library behind it.
package kernel

import "github.com/chazu/microgel/pkg/geom"

// Solid is an opaque handle to a kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max geom.Vec)
	// Inside reports whether p lies inside the solid or on its surface.
	Inside(p geom.Vec) bool
}

// Kernel builds and combines envelope solids.
type Kernel interface {
	// Primitives, centred on the origin.
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Ellipsoid(a, b, c float64) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
