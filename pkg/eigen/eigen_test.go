package eigen

import (
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/microgel/pkg/geom"
	"github.com/deadsy/sdfx/sdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-10

// requireEigenpairs checks M·v = λ·v, unit length and mutual orthogonality.
func requireEigenpairs(t *testing.T, m geom.Sym3, r Result) {
	t.Helper()
	scale := math.Max(1, math.Abs(r.Values[0])+math.Abs(r.Values[1])+math.Abs(r.Values[2]))
	for i := 0; i < 3; i++ {
		v := r.Vectors[i]
		assert.InDelta(t, 1, v.Length(), tol, "vector %d not unit", i)
		res := m.MulVec(v).Sub(v.MulScalar(r.Values[i]))
		assert.Less(t, res.Length(), tol*scale, "residual of pair %d", i)
		for j := i + 1; j < 3; j++ {
			assert.InDelta(t, 0, v.Dot(r.Vectors[j]), tol, "vectors %d and %d", i, j)
		}
	}
}

func TestDecomposeDiagonal(t *testing.T) {
	m := geom.Sym3{{3, 0, 0}, {0, 1, 0}, {0, 0, 2}}
	r := Decompose(m)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, r.Values[:], tol)
	requireEigenpairs(t, m, r)
	assert.InDelta(t, 1, math.Abs(r.Vectors[0].Y), tol)
	assert.InDelta(t, 1, math.Abs(r.Vectors[2].X), tol)
}

func TestDecomposeKnownMatrix(t *testing.T) {
	// Eigenvalues of [[2,1,0],[1,2,1],[0,1,2]] are 2-√2, 2, 2+√2.
	m := geom.Sym3{{2, 1, 0}, {1, 2, 1}, {0, 1, 2}}
	r := Decompose(m)
	assert.InDelta(t, 2-math.Sqrt2, r.Values[0], tol)
	assert.InDelta(t, 2, r.Values[1], tol)
	assert.InDelta(t, 2+math.Sqrt2, r.Values[2], tol)
	requireEigenpairs(t, m, r)
}

func TestDecomposeIdentityMultiple(t *testing.T) {
	m := geom.Sym3{{5, 0, 0}, {0, 5, 0}, {0, 0, 5}}
	r := Decompose(m)
	assert.InDeltaSlice(t, []float64{5, 5, 5}, r.Values[:], tol)
	requireEigenpairs(t, m, r)
}

func TestDecomposeZero(t *testing.T) {
	r := Decompose(geom.Sym3{})
	assert.Equal(t, [3]float64{}, r.Values)
	requireEigenpairs(t, geom.Sym3{}, r)
}

func TestDecomposeRotatedDiagonal(t *testing.T) {
	// R·diag(1,4,9)·Rᵀ keeps the spectrum.
	rot := sdf.RotateX(0.3).Mul(sdf.RotateZ(1.1)).Mul(sdf.RotateY(-0.7))
	axes := []geom.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	lambda := []float64{1, 4, 9}
	var m geom.Sym3
	for k, a := range axes {
		u := rot.MulPosition(a)
		c := [3]float64{u.X, u.Y, u.Z}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				m[i][j] += lambda[k] * c[i] * c[j]
			}
		}
	}
	r := Decompose(m)
	assert.InDeltaSlice(t, lambda, r.Values[:], 1e-9)
	requireEigenpairs(t, m, r)
}

func TestDecomposeRandomSymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		var m geom.Sym3
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				m[i][j] = rng.Float64()*20 - 10
			}
		}
		m.Mirror()

		r := Decompose(m)
		require.LessOrEqual(t, r.Values[0], r.Values[1])
		require.LessOrEqual(t, r.Values[1], r.Values[2])
		assert.InDelta(t, m.Trace(), r.Values[0]+r.Values[1]+r.Values[2], 1e-9)
		requireEigenpairs(t, m, r)
	}
}

func TestDecomposeDoesNotMutateInput(t *testing.T) {
	m := geom.Sym3{{2, 1, 0}, {1, 2, 1}, {0, 1, 2}}
	orig := m
	Decompose(m)
	assert.Equal(t, orig, m)
}
