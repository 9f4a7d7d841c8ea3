// Package sample generates synthetic particle clouds: seeded uniform
// samples inside kernel solids and a few deterministic reference shapes.
package sample

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/kernel"
)

// MaxAttemptsPerPoint bounds rejection sampling.
const MaxAttemptsPerPoint = 1000

// ErrExhausted is returned when rejection sampling gives up, which happens
// when the solid fills almost none of its bounding box.
var ErrExhausted = errors.New("sample: rejection sampling exhausted")

// Uniform returns n points drawn uniformly from the inside of s. The same
// seed always yields the same points.
func Uniform(s kernel.Solid, n int, seed int64) ([]geom.Vec, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample: count must be positive, got %d", n)
	}
	min, max := s.BoundingBox()
	size := max.Sub(min)
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return nil, fmt.Errorf("sample: solid has an empty bounding box")
	}

	rng := rand.New(rand.NewSource(seed))
	pts := make([]geom.Vec, 0, n)
	for attempts := 0; len(pts) < n; attempts++ {
		if attempts >= n*MaxAttemptsPerPoint {
			return nil, fmt.Errorf("%w after %d attempts (%d of %d points)", ErrExhausted, attempts, len(pts), n)
		}
		p := geom.Vec{
			X: min.X + rng.Float64()*size.X,
			Y: min.Y + rng.Float64()*size.Y,
			Z: min.Z + rng.Float64()*size.Z,
		}
		if s.Inside(p) {
			pts = append(pts, p)
		}
	}
	return pts, nil
}

// FibonacciSphere returns n nearly evenly spaced points on a sphere of the
// given radius centred on the origin.
func FibonacciSphere(n int, radius float64) []geom.Vec {
	pts := make([]geom.Vec, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		pts[i] = geom.Vec{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}.MulScalar(radius)
	}
	return pts
}

// CubeCorners returns the eight corners of an axis-aligned cube of the given
// side centred on the origin.
func CubeCorners(side float64) []geom.Vec {
	h := side / 2
	pts := make([]geom.Vec, 0, 8)
	for _, x := range []float64{-h, h} {
		for _, y := range []float64{-h, h} {
			for _, z := range []float64{-h, h} {
				pts = append(pts, geom.Vec{X: x, Y: y, Z: z})
			}
		}
	}
	return pts
}
