package sample_test

import (
	"math"
	"testing"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/chazu/microgel/pkg/kernel/sdfx"
	"github.com/chazu/microgel/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformInsideSphere(t *testing.T) {
	k := sdfx.New()
	s, err := k.Sphere(3)
	require.NoError(t, err)

	pts, err := sample.Uniform(s, 500, 1)
	require.NoError(t, err)
	require.Len(t, pts, 500)
	for _, p := range pts {
		assert.LessOrEqual(t, p.Length(), 3.0)
	}
	// Uniform in a ball: the mean radius is 3/4 of the radius.
	var sum float64
	for _, p := range pts {
		sum += p.Length()
	}
	assert.InDelta(t, 2.25, sum/float64(len(pts)), 0.1)
}

func TestUniformIsDeterministic(t *testing.T) {
	k := sdfx.New()
	s, err := k.Ellipsoid(2, 1, 1)
	require.NoError(t, err)

	a, err := sample.Uniform(s, 50, 99)
	require.NoError(t, err)
	b, err := sample.Uniform(s, 50, 99)
	require.NoError(t, err)
	c, err := sample.Uniform(s, 50, 100)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestUniformRejectsBadCount(t *testing.T) {
	s, err := sdfx.New().Sphere(1)
	require.NoError(t, err)
	_, err = sample.Uniform(s, 0, 1)
	assert.Error(t, err)
}

func TestUniformExhausted(t *testing.T) {
	k := sdfx.New()
	outer, err := k.Sphere(1)
	require.NoError(t, err)
	// The difference of a solid with itself has a bounding box but no inside.
	empty := k.Difference(outer, outer)
	_, err = sample.Uniform(empty, 1, 1)
	assert.ErrorIs(t, err, sample.ErrExhausted)
}

func TestFibonacciSphere(t *testing.T) {
	pts := sample.FibonacciSphere(200, 2.5)
	require.Len(t, pts, 200)
	for _, p := range pts {
		assert.InDelta(t, 2.5, p.Length(), 1e-12)
	}
	c := geom.Centroid(pts)
	assert.Less(t, c.Length(), 0.05)
}

func TestCubeCorners(t *testing.T) {
	pts := sample.CubeCorners(2)
	require.Len(t, pts, 8)
	for _, p := range pts {
		assert.Equal(t, 1.0, math.Abs(p.X))
		assert.Equal(t, 1.0, math.Abs(p.Y))
		assert.Equal(t, 1.0, math.Abs(p.Z))
	}
}
