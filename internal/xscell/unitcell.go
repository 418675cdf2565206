// Public domain.

// Package xscell implements unit cells, change-of-basis operators and the
// crystal model used throughout xtalsym.
//
// Conventions: a change-of-basis matrix holds the new basis vectors as
// columns, expressed in the old basis.  Miller indices transform with the
// transpose.  The crystal setting matrix A = U·B maps Miller indices to
// reciprocal lattice vectors in the laboratory frame, with B lower
// triangular so that c* lies along z before rotation by U.
package xscell

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/unit"
)

// ErrInvalidCell is returned for parameters that do not describe a lattice.
var ErrInvalidCell = errors.New("invalid unit cell parameters")

// smallest (V/abc)² accepted, below which the cell is taken as flat
const minVolumeFactor = 1e-9

// UnitCell holds the six lattice parameters.  It is immutable, derived
// quantities are computed on demand.
type UnitCell struct {
	a, b, c            float64 // Angstrom
	alpha, beta, gamma unit.Angle
}

// NewUnitCell validates and constructs a unit cell.
func NewUnitCell(a, b, c float64, alpha, beta, gamma unit.Angle) (UnitCell, error) {
	uc := UnitCell{a, b, c, alpha, beta, gamma}
	if !(a > 0 && b > 0 && c > 0) {
		return UnitCell{}, fmt.Errorf("%w: lengths %g %g %g", ErrInvalidCell, a, b, c)
	}
	for _, t := range []unit.Angle{alpha, beta, gamma} {
		if d := t.Deg(); !(d > 0 && d < 180) {
			return UnitCell{}, fmt.Errorf("%w: angle %g", ErrInvalidCell, d)
		}
	}
	if !(uc.volumeFactor() > minVolumeFactor) {
		return UnitCell{}, fmt.Errorf("%w: zero volume", ErrInvalidCell)
	}
	return uc, nil
}

// FromParameters constructs a cell from (a, b, c, alpha, beta, gamma) with
// angles in degrees.
func FromParameters(p [6]float64) (UnitCell, error) {
	return NewUnitCell(p[0], p[1], p[2],
		unit.AngleFromDeg(p[3]), unit.AngleFromDeg(p[4]), unit.AngleFromDeg(p[5]))
}

// MustParameters is FromParameters for literals known to be valid.
func MustParameters(p [6]float64) UnitCell {
	uc, err := FromParameters(p)
	if err != nil {
		panic(err)
	}
	return uc
}

// FromMetric constructs the cell with direct metric tensor g.
func FromMetric(g Mat3) (UnitCell, error) {
	if !(g[0][0] > 0 && g[1][1] > 0 && g[2][2] > 0) {
		return UnitCell{}, fmt.Errorf("%w: metric diagonal", ErrInvalidCell)
	}
	a := math.Sqrt(g[0][0])
	b := math.Sqrt(g[1][1])
	c := math.Sqrt(g[2][2])
	return NewUnitCell(a, b, c,
		acosAngle(g[1][2]/(b*c)),
		acosAngle(g[0][2]/(a*c)),
		acosAngle(g[0][1]/(a*b)))
}

func acosAngle(x float64) unit.Angle {
	return unit.Angle(math.Acos(math.Max(-1, math.Min(1, x))))
}

// Lengths returns a, b, c.
func (uc UnitCell) Lengths() (a, b, c float64) { return uc.a, uc.b, uc.c }

// Angles returns alpha, beta, gamma.
func (uc UnitCell) Angles() (alpha, beta, gamma unit.Angle) {
	return uc.alpha, uc.beta, uc.gamma
}

// Parameters returns (a, b, c, alpha, beta, gamma) with angles in degrees.
func (uc UnitCell) Parameters() [6]float64 {
	return [6]float64{uc.a, uc.b, uc.c,
		uc.alpha.Deg(), uc.beta.Deg(), uc.gamma.Deg()}
}

func (uc UnitCell) cosines() (ca, cb, cg float64) {
	return math.Cos(uc.alpha.Rad()), math.Cos(uc.beta.Rad()), math.Cos(uc.gamma.Rad())
}

func (uc UnitCell) volumeFactor() float64 {
	ca, cb, cg := uc.cosines()
	return 1 - ca*ca - cb*cb - cg*cg + 2*ca*cb*cg
}

// Volume returns the cell volume in cubic Angstrom.
func (uc UnitCell) Volume() float64 {
	return uc.a * uc.b * uc.c * math.Sqrt(uc.volumeFactor())
}

// Metric returns the direct space metric tensor G.
func (uc UnitCell) Metric() Mat3 {
	ca, cb, cg := uc.cosines()
	ab := uc.a * uc.b * cg
	ac := uc.a * uc.c * cb
	bc := uc.b * uc.c * ca
	return Mat3{
		{uc.a * uc.a, ab, ac},
		{ab, uc.b * uc.b, bc},
		{ac, bc, uc.c * uc.c},
	}
}

// ReciprocalMetric returns G*, the inverse of the direct metric.
func (uc UnitCell) ReciprocalMetric() Mat3 {
	gs, _ := uc.Metric().Inverse()
	return gs
}

// Orthogonalization returns the matrix whose columns are a, b, c in a
// Cartesian frame with a along x and b in the xy plane.
func (uc UnitCell) Orthogonalization() Mat3 {
	ca, cb, cg := uc.cosines()
	sg := math.Sin(uc.gamma.Rad())
	v := uc.Volume()
	return Mat3{
		{uc.a, uc.b * cg, uc.c * cb},
		{0, uc.b * sg, uc.c * (ca - cb*cg) / sg},
		{0, 0, v / (uc.a * uc.b * sg)},
	}
}

// DStarSq returns 1/d² for Miller index h.
func (uc UnitCell) DStarSq(h [3]int) float64 {
	return dStarSq(uc.ReciprocalMetric(), h)
}

func dStarSq(gs Mat3, h [3]int) float64 {
	f := [3]float64{float64(h[0]), float64(h[1]), float64(h[2])}
	return Dot(f, gs.MulVec(f))
}

// D returns the resolution d in Angstrom for Miller index h.
func (uc UnitCell) D(h [3]int) float64 {
	return 1 / math.Sqrt(uc.DStarSq(h))
}

// DSpacings returns d for each index, computing G* once.
func (uc UnitCell) DSpacings(hs [][3]int) []float64 {
	gs := uc.ReciprocalMetric()
	d := make([]float64, len(hs))
	for i, h := range hs {
		d[i] = 1 / math.Sqrt(dStarSq(gs, h))
	}
	return d
}

// ChangeBasis returns the cell described by the basis vectors of op.
func (uc UnitCell) ChangeBasis(op ChangeOfBasisOp) (UnitCell, error) {
	m := op.m.Float()
	return FromMetric(m.T().Mul(uc.Metric()).Mul(m))
}

// Gstar returns the six independent components of the reciprocal metric
// in the order g00, g11, g22, g01, g02, g12.
func (uc UnitCell) Gstar() [6]float64 {
	return GstarComponents(uc.ReciprocalMetric())
}

// GstarComponents packs a symmetric matrix.
func GstarComponents(gs Mat3) [6]float64 {
	return [6]float64{gs[0][0], gs[1][1], gs[2][2], gs[0][1], gs[0][2], gs[1][2]}
}

// String formats the parameters the way reports show them.
func (uc UnitCell) String() string {
	p := uc.Parameters()
	return fmt.Sprintf("(%.3f, %.3f, %.3f, %.2f, %.2f, %.2f)",
		p[0], p[1], p[2], p[3], p[4], p[5])
}
