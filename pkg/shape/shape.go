// Package shape turns a particle point cloud into hull-based shape
// descriptors: the convex hull volume, the facet-weighted gyration tensor
// of the hull surface, its principal axes, and the ellipsoid those axes
// describe.
package shape

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/microgel/pkg/eigen"
	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/hull"
)

// ErrInconsistentWinding is matched by errors reporting a hull whose facet
// winding produced a negative enclosed volume.
var ErrInconsistentWinding = errors.New("shape: hull winding is inconsistent")

// ConsistencyError reports a hull volume that came out negative.
type ConsistencyError struct {
	Volume float64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("shape: negative hull volume %g, hull winding is inconsistent", e.Volume)
}

// Is makes errors.Is(err, ErrInconsistentWinding) succeed.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrInconsistentWinding
}

// Descriptors is the full result of analysing one point cloud.
type Descriptors struct {
	// HullVolume is the volume enclosed by the convex hull.
	HullVolume float64
	// FacetCentroid is the mean of the facet centroids, relative to the
	// centre of mass of the input.
	FacetCentroid geom.Vec
	// CenterOfMass is the mean of the input points.
	CenterOfMass geom.Vec
	// Tensor is the facet-weighted gyration tensor.
	Tensor geom.Sym3
	// Eigenvalues of Tensor in solver order (ascending).
	Eigenvalues [3]float64
	// Axes are the unit principal axes paired with Eigenvalues.
	Axes [3]geom.Vec
	// EllipsoidVolume is 4·π·√3·√λ0·√λ1·√λ2.
	EllipsoidVolume float64
	// SemiAxes are √λi in solver order.
	SemiAxes [3]float64

	Vertices int
	Facets   int

	// Mesh is set only when the Analyzer keeps it. Coordinates are
	// relative to CenterOfMass.
	Mesh *hull.Mesh
}

// Analyzer computes Descriptors. The zero value uses the default hull
// tolerance and releases the hull after use.
type Analyzer struct {
	Builder  hull.Builder
	KeepMesh bool
}

// Compute analyses points with a zero-value Analyzer.
func Compute(points []geom.Vec) (*Descriptors, error) {
	var a Analyzer
	return a.Analyze(points)
}

// Analyze recenters points on their centre of mass, builds the convex hull
// and derives the shape descriptors. The input is not modified.
func (a Analyzer) Analyze(points []geom.Vec) (*Descriptors, error) {
	com := geom.Centroid(points)
	centered := geom.Translate(points, com.MulScalar(-1))

	mesh, err := a.Builder.Build(centered)
	if err != nil {
		return nil, fmt.Errorf("shape: building hull: %w", err)
	}
	return a.describe(mesh, com)
}

// describe derives the descriptors of mesh, a hull of points recentered on
// com. The mesh is released on every exit path unless KeepMesh hands it to
// the returned Descriptors.
func (a Analyzer) describe(mesh *hull.Mesh, com geom.Vec) (*Descriptors, error) {
	keep := false
	defer func() {
		if !keep {
			mesh.Release()
		}
	}()

	volume, center := VolumeAndCenter(mesh)
	if volume < 0 {
		return nil, &ConsistencyError{Volume: volume}
	}

	tensor := GyrationTensor(mesh, center)
	eig := eigen.Decompose(tensor)

	d := &Descriptors{
		HullVolume:    volume,
		FacetCentroid: center,
		CenterOfMass:  com,
		Tensor:        tensor,
		Eigenvalues:   eig.Values,
		Vertices:      mesh.VertexCount(),
		Facets:        mesh.FacetCount(),
	}
	for i, v := range eig.Vectors {
		if l := v.Length(); l > 0 {
			v = v.DivScalar(l)
		}
		d.Axes[i] = v
		d.SemiAxes[i] = math.Sqrt(eig.Values[i])
	}
	d.EllipsoidVolume = EllipsoidVolume(eig.Values)

	if a.KeepMesh {
		keep = true
		d.Mesh = mesh
	}
	return d, nil
}

// VolumeAndCenter returns the signed volume enclosed by mesh, summed as
// p1·(p2×p3)/6 over facets, and the plain mean of the facet centroids.
func VolumeAndCenter(mesh *hull.Mesh) (float64, geom.Vec) {
	var volume float64
	var sum geom.Vec
	nf := mesh.FacetCount()
	if nf == 0 {
		return 0, sum
	}
	for i := 0; i < nf; i++ {
		p1, p2, p3 := mesh.Facet(i)
		volume += p1.Dot(p2.Cross(p3)) / 6
		sum = sum.Add(p1).Add(p2).Add(p3)
	}
	return volume, sum.DivScalar(float64(3 * nf))
}

// GyrationTensor returns the gyration tensor of the facet centroids about
// ref, one unit of mass per facet.
func GyrationTensor(mesh *hull.Mesh, ref geom.Vec) geom.Sym3 {
	var t geom.Sym3
	nf := mesh.FacetCount()
	if nf == 0 {
		return t
	}
	for i := 0; i < nf; i++ {
		p1, p2, p3 := mesh.Facet(i)
		c := p1.Add(p2).Add(p3).DivScalar(3)
		t.AddOuterUpper(c.Sub(ref))
	}
	t.Mirror()
	t.Scale(1 / float64(nf))
	return t
}

// EllipsoidVolume returns 4·π·√3·√λ0·√λ1·√λ2. A negative eigenvalue yields
// NaN.
func EllipsoidVolume(values [3]float64) float64 {
	return 4 * math.Pi * math.Sqrt(3) * math.Sqrt(values[0]) * math.Sqrt(values[1]) * math.Sqrt(values[2])
}
