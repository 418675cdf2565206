// Public domain.

package xscell

import "math"

// Mat3 is a real 3x3 matrix stored by rows.  It is a value type so the
// prediction loop of the refinement engine runs without allocation.
// Only products, transposes and the closed form 3x3 inverse live here;
// decompositions go through gonum/mat.
type Mat3 [3][3]float64

// Identity3 returns the 3x3 identity.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Cols builds a matrix from three column vectors.
func Cols(a, b, c [3]float64) Mat3 {
	var m Mat3
	for i := 0; i < 3; i++ {
		m[i][0], m[i][1], m[i][2] = a[i], b[i], c[i]
	}
	return m
}

// Col returns column j.
func (m Mat3) Col(j int) [3]float64 {
	return [3]float64{m[0][j], m[1][j], m[2][j]}
}

// Mul returns m·n.
func (m Mat3) Mul(n Mat3) Mat3 {
	var p Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return p
}

// MulVec returns m·v.
func (m Mat3) MulVec(v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// MulIVec returns m·h for an integer vector.
func (m Mat3) MulIVec(h [3]int) [3]float64 {
	return m.MulVec([3]float64{float64(h[0]), float64(h[1]), float64(h[2])})
}

// T returns the transpose.
func (m Mat3) T() Mat3 {
	var t Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Det returns the determinant.
func (m Mat3) Det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Inverse returns the inverse of m.  The result is false if m is singular.
func (m Mat3) Inverse() (Mat3, bool) {
	d := m.Det()
	if d == 0 || math.IsNaN(d) {
		return Mat3{}, false
	}
	var inv Mat3
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / d
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / d
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / d
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / d
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / d
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / d
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / d
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / d
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / d
	return inv, true
}

// flat returns the matrix in row-major order, the layout gonum expects.
func (m Mat3) flat() []float64 {
	return []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	}
}

// RotX, RotY and RotZ return right handed rotations by t radians.
func RotX(t float64) Mat3 {
	s, c := math.Sincos(t)
	return Mat3{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func RotY(t float64) Mat3 {
	s, c := math.Sincos(t)
	return Mat3{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func RotZ(t float64) Mat3 {
	s, c := math.Sincos(t)
	return Mat3{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// Dot, Cross and Norm operate on plain 3-vectors.
func Dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func Cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func Norm(a [3]float64) float64 {
	return math.Sqrt(Dot(a, a))
}

// IMat3 is an integer 3x3 matrix stored by rows.
type IMat3 [3][3]int

// IIdentity returns the integer identity.
func IIdentity() IMat3 {
	return IMat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// ICols builds an integer matrix from three column vectors.
func ICols(a, b, c [3]int) IMat3 {
	var m IMat3
	for i := 0; i < 3; i++ {
		m[i][0], m[i][1], m[i][2] = a[i], b[i], c[i]
	}
	return m
}

// Col returns column j.
func (m IMat3) Col(j int) [3]int {
	return [3]int{m[0][j], m[1][j], m[2][j]}
}

// Mul returns m·n.
func (m IMat3) Mul(n IMat3) IMat3 {
	var p IMat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return p
}

// MulVec returns m·v.
func (m IMat3) MulVec(v [3]int) [3]int {
	return [3]int{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// T returns the transpose.
func (m IMat3) T() IMat3 {
	var t IMat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t[i][j] = m[j][i]
		}
	}
	return t
}

// Det returns the determinant.
func (m IMat3) Det() int {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// Adj returns the adjugate, so that m·Adj(m) = Det(m)·I.
func (m IMat3) Adj() IMat3 {
	var a IMat3
	a[0][0] = m[1][1]*m[2][2] - m[1][2]*m[2][1]
	a[0][1] = m[0][2]*m[2][1] - m[0][1]*m[2][2]
	a[0][2] = m[0][1]*m[1][2] - m[0][2]*m[1][1]
	a[1][0] = m[1][2]*m[2][0] - m[1][0]*m[2][2]
	a[1][1] = m[0][0]*m[2][2] - m[0][2]*m[2][0]
	a[1][2] = m[0][2]*m[1][0] - m[0][0]*m[1][2]
	a[2][0] = m[1][0]*m[2][1] - m[1][1]*m[2][0]
	a[2][1] = m[0][1]*m[2][0] - m[0][0]*m[2][1]
	a[2][2] = m[0][0]*m[1][1] - m[0][1]*m[1][0]
	return a
}

// Float converts to a real matrix.
func (m IMat3) Float() Mat3 {
	var f Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f[i][j] = float64(m[i][j])
		}
	}
	return f
}

// IsIdentity reports whether m is the identity.
func (m IMat3) IsIdentity() bool {
	return m == IIdentity()
}
