// Package eigen diagonalises real symmetric 3x3 matrices.
//
// The solver reduces the matrix to tridiagonal form with Householder
// reflections and then applies the implicit-shift QL algorithm. Eigenvalues
// come back in ascending order; Vectors[i] is the unit eigenvector paired
// with Values[i].
package eigen

import (
	"math"

	"github.com/chazu/microgel/pkg/geom"
)

const n = 3

// maxSweeps bounds the QL iterations spent on a single eigenvalue.
const maxSweeps = 64

// Result is the eigendecomposition of a symmetric matrix.
type Result struct {
	Values  [3]float64
	Vectors [3]geom.Vec
}

// Decompose returns the eigenvalues and eigenvectors of the symmetric
// matrix m. Only the symmetric part of m is meaningful.
func Decompose(m geom.Sym3) Result {
	var v [n][n]float64
	var d, e [n]float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v[i][j] = m[i][j]
		}
	}
	tred2(&v, &d, &e)
	tql2(&v, &d, &e)

	var r Result
	for k := 0; k < n; k++ {
		r.Values[k] = d[k]
		// Eigenvectors are the columns of v.
		r.Vectors[k] = geom.Vec{X: v[0][k], Y: v[1][k], Z: v[2][k]}
	}
	return r
}

// tred2 reduces v to tridiagonal form, leaving the diagonal in d, the
// subdiagonal in e[1:] and the accumulated transform in v.
func tred2(v *[n][n]float64, d, e *[n]float64) {
	for j := 0; j < n; j++ {
		d[j] = v[n-1][j]
	}

	for i := n - 1; i > 0; i-- {
		scale, h := 0.0, 0.0
		for k := 0; k < i; k++ {
			scale += math.Abs(d[k])
		}
		if scale == 0 {
			e[i] = d[i-1]
			for j := 0; j < i; j++ {
				d[j] = v[i-1][j]
				v[i][j] = 0
				v[j][i] = 0
			}
		} else {
			for k := 0; k < i; k++ {
				d[k] /= scale
				h += d[k] * d[k]
			}
			f := d[i-1]
			g := math.Sqrt(h)
			if f > 0 {
				g = -g
			}
			e[i] = scale * g
			h -= f * g
			d[i-1] = f - g
			for j := 0; j < i; j++ {
				e[j] = 0
			}

			for j := 0; j < i; j++ {
				f = d[j]
				v[j][i] = f
				g = e[j] + v[j][j]*f
				for k := j + 1; k <= i-1; k++ {
					g += v[k][j] * d[k]
					e[k] += v[k][j] * f
				}
				e[j] = g
			}
			f = 0
			for j := 0; j < i; j++ {
				e[j] /= h
				f += e[j] * d[j]
			}
			hh := f / (h + h)
			for j := 0; j < i; j++ {
				e[j] -= hh * d[j]
			}
			for j := 0; j < i; j++ {
				f = d[j]
				g = e[j]
				for k := j; k <= i-1; k++ {
					v[k][j] -= f*e[k] + g*d[k]
				}
				d[j] = v[i-1][j]
				v[i][j] = 0
			}
		}
		d[i] = h
	}

	// Accumulate transformations.
	for i := 0; i < n-1; i++ {
		v[n-1][i] = v[i][i]
		v[i][i] = 1
		h := d[i+1]
		if h != 0 {
			for k := 0; k <= i; k++ {
				d[k] = v[k][i+1] / h
			}
			for j := 0; j <= i; j++ {
				g := 0.0
				for k := 0; k <= i; k++ {
					g += v[k][i+1] * v[k][j]
				}
				for k := 0; k <= i; k++ {
					v[k][j] -= g * d[k]
				}
			}
		}
		for k := 0; k <= i; k++ {
			v[k][i+1] = 0
		}
	}
	for j := 0; j < n; j++ {
		d[j] = v[n-1][j]
		v[n-1][j] = 0
	}
	v[n-1][n-1] = 1
	e[0] = 0
}

// tql2 diagonalises the tridiagonal matrix (d, e) with implicit QL shifts,
// accumulating rotations into v, then sorts eigenpairs ascending.
func tql2(v *[n][n]float64, d, e *[n]float64) {
	for i := 1; i < n; i++ {
		e[i-1] = e[i]
	}
	e[n-1] = 0

	f, tst1 := 0.0, 0.0
	eps := math.Pow(2, -52)
	for l := 0; l < n; l++ {
		// Find a small subdiagonal element.
		tst1 = math.Max(tst1, math.Abs(d[l])+math.Abs(e[l]))
		m := l
		for m < n-1 {
			if math.Abs(e[m]) <= eps*tst1 {
				break
			}
			m++
		}

		if m > l {
			for sweep := 0; sweep < maxSweeps; sweep++ {
				g := d[l]
				p := (d[l+1] - g) / (2 * e[l])
				r := math.Hypot(p, 1)
				if p < 0 {
					r = -r
				}
				d[l] = e[l] / (p + r)
				d[l+1] = e[l] * (p + r)
				dl1 := d[l+1]
				h := g - d[l]
				for i := l + 2; i < n; i++ {
					d[i] -= h
				}
				f += h

				// Implicit QL transformation.
				p = d[m]
				c, c2, c3 := 1.0, 1.0, 1.0
				el1 := e[l+1]
				s, s2 := 0.0, 0.0
				for i := m - 1; i >= l; i-- {
					c3 = c2
					c2 = c
					s2 = s
					g = c * e[i]
					h = c * p
					r = math.Hypot(p, e[i])
					e[i+1] = s * r
					s = e[i] / r
					c = p / r
					p = c*d[i] - s*g
					d[i+1] = h + s*(c*g+s*d[i])

					for k := 0; k < n; k++ {
						h = v[k][i+1]
						v[k][i+1] = s*v[k][i] + c*h
						v[k][i] = c*v[k][i] - s*h
					}
				}
				p = -s * s2 * c3 * el1 * e[l] / dl1
				e[l] = s * p
				d[l] = c * p

				if math.Abs(e[l]) <= eps*tst1 {
					break
				}
			}
		}
		d[l] += f
		e[l] = 0
	}

	// Selection sort, ascending.
	for i := 0; i < n-1; i++ {
		k := i
		p := d[i]
		for j := i + 1; j < n; j++ {
			if d[j] < p {
				k = j
				p = d[j]
			}
		}
		if k != i {
			d[k] = d[i]
			d[i] = p
			for j := 0; j < n; j++ {
				v[j][i], v[j][k] = v[j][k], v[j][i]
			}
		}
	}
}
