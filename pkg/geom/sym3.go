package geom

// Sym3 is a row-major 3x3 matrix that callers keep symmetric. Builders
// accumulate the upper triangle with AddOuterUpper and then call Mirror.
type Sym3 [3][3]float64

// AddOuterUpper adds the upper triangle of d⊗d to m.
func (m *Sym3) AddOuterUpper(d Vec) {
	c := [3]float64{d.X, d.Y, d.Z}
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			m[i][j] += c[i] * c[j]
		}
	}
}

// Mirror copies the upper triangle into the lower one.
func (m *Sym3) Mirror() {
	for i := 0; i < 3; i++ {
		for j := 0; j < i; j++ {
			m[i][j] = m[j][i]
		}
	}
}

// Scale multiplies every entry by f.
func (m *Sym3) Scale(f float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] *= f
		}
	}
}

// MulVec returns m·v.
func (m Sym3) MulVec(v Vec) Vec {
	return Vec{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// Trace returns the sum of the diagonal.
func (m Sym3) Trace() float64 {
	return m[0][0] + m[1][1] + m[2][2]
}

// IsSymmetric reports whether m equals its transpose within tol.
func (m Sym3) IsSymmetric(tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			d := m[i][j] - m[j][i]
			if d > tol || d < -tol {
				return false
			}
		}
	}
	return true
}
