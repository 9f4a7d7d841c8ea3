// Package geom holds the small vector and matrix primitives shared by the
// hull builder, the eigen solver and the shape aggregator. Points are sdfx
// vectors so that point clouds can be moved with sdf.M44 transforms and fed
// straight into the envelope kernel.
package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Vec is a point or direction in 3-space.
type Vec = v3.Vec

// Centroid returns the arithmetic mean of points. It returns the zero vector
// for an empty slice.
func Centroid(points []Vec) Vec {
	var sum Vec
	if len(points) == 0 {
		return sum
	}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.DivScalar(float64(len(points)))
}

// Translate returns a new slice with every point shifted by d.
func Translate(points []Vec, d Vec) []Vec {
	out := make([]Vec, len(points))
	for i, p := range points {
		out[i] = p.Add(d)
	}
	return out
}

// Transform returns a new slice with m applied to every point.
func Transform(points []Vec, m sdf.M44) []Vec {
	out := make([]Vec, len(points))
	for i, p := range points {
		out[i] = m.MulPosition(p)
	}
	return out
}

// Rotation returns Rz·Ry·Rx for Euler angles given in degrees.
func Rotation(x, y, z float64) sdf.M44 {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0
	return sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
}

// MaxAbsSum returns max|x| + max|y| + max|z| over points, the coordinate
// scale used to derive hull tolerances.
func MaxAbsSum(points []Vec) float64 {
	var mx, my, mz float64
	for _, p := range points {
		mx = math.Max(mx, math.Abs(p.X))
		my = math.Max(my, math.Abs(p.Y))
		mz = math.Max(mz, math.Abs(p.Z))
	}
	return mx + my + mz
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Component returns v[i] for i in 0..2.
func Component(v Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}
