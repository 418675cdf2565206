// Public domain.

package xscell

import (
	"errors"
	"math"
)

// The two ways decomposing a reciprocal metric can fail.  Both mean the
// parameters no longer describe a lattice, typically after a refinement
// step has driven a constrained cell to a degenerate shape.
var (
	ErrSingularG0 = errors.New("g0 - astry*astry -astrz*astrz <= 0.")
	ErrSingularG1 = errors.New("g1-bstrz*bstrz <= 0.")
)

// IsDegenerate reports whether err stems from a degenerate reciprocal
// metric.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrSingularG0) || errors.Is(err, ErrSingularG1)
}

// BFromGstar returns the lower triangular B with BᵀB = G*, its columns
// being a*, b* and c* with c* along z.  The components of g are ordered
// g00, g11, g22, g01, g02, g12.
func BFromGstar(g [6]float64) (Mat3, error) {
	if !(g[2] > 0) {
		return Mat3{}, ErrSingularG1
	}
	cstrz := math.Sqrt(g[2])
	bstrz := g[5] / cstrz
	t := g[1] - bstrz*bstrz
	if !(t > 0) {
		return Mat3{}, ErrSingularG1
	}
	bstry := math.Sqrt(t)
	astrz := g[4] / cstrz
	astry := (g[3] - astrz*bstrz) / bstry
	t = g[0] - astry*astry - astrz*astrz
	if !(t > 0) {
		return Mat3{}, ErrSingularG0
	}
	astrx := math.Sqrt(t)
	return Mat3{
		{astrx, 0, 0},
		{astry, bstry, 0},
		{astrz, bstrz, cstrz},
	}, nil
}

// GstarOf returns the reciprocal metric components of B.
func GstarOf(b Mat3) [6]float64 {
	return GstarComponents(b.T().Mul(b))
}

// CellFromGstar returns the direct cell for reciprocal metric components.
func CellFromGstar(g [6]float64) (UnitCell, error) {
	gs := Mat3{
		{g[0], g[3], g[4]},
		{g[3], g[1], g[5]},
		{g[4], g[5], g[2]},
	}
	gd, ok := gs.Inverse()
	if !ok {
		return UnitCell{}, ErrInvalidCell
	}
	return FromMetric(gd)
}
