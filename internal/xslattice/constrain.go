// Public domain.

package xslattice

import "github.com/xtalsym/xtalsym/internal/xscell"

// Symmetrize returns uc with the metric constraints of lattice system s
// imposed: equal lengths averaged and fixed angles set exactly.  The cell
// must be in the conventional setting of s.
func Symmetrize(uc xscell.UnitCell, s LatticeSystem) (xscell.UnitCell, error) {
	p := uc.Parameters()
	switch s {
	case Monoclinic:
		p[3], p[5] = 90, 90
	case Orthorhombic:
		p[3], p[4], p[5] = 90, 90, 90
	case Tetragonal:
		m := (p[0] + p[1]) / 2
		p[0], p[1] = m, m
		p[3], p[4], p[5] = 90, 90, 90
	case Hexagonal:
		m := (p[0] + p[1]) / 2
		p[0], p[1] = m, m
		p[3], p[4], p[5] = 90, 90, 120
	case Cubic:
		m := (p[0] + p[1] + p[2]) / 3
		p[0], p[1], p[2] = m, m, m
		p[3], p[4], p[5] = 90, 90, 90
	}
	return xscell.FromParameters(p)
}

// ConstrainOrientation returns the crystal c re-described in the best
// setting of sub, with its cell symmetrized and its orientation the
// rotation bringing the symmetrized lattice closest to the original.
func ConstrainOrientation(c *xscell.Crystal, sub Subgroup) (*xscell.Crystal, error) {
	nc, err := c.ChangeBasis(sub.CBOpInpBest)
	if err != nil {
		return nil, err
	}
	uc, err := nc.UnitCell()
	if err != nil {
		return nil, err
	}
	sym, err := Symmetrize(uc, sub.System)
	if err != nil {
		return nil, err
	}
	b, err := xscell.BFromGstar(sym.Gstar())
	if err != nil {
		return nil, err
	}
	// orthogonal Procrustes: U minimizing |U·B - A|
	u, err := xscell.NearestRotation(nc.A().Mul(b.T()))
	if err != nil {
		return nil, err
	}
	return &xscell.Crystal{U: u, B: b, SpaceGroup: sub.SpaceGroup}, nil
}

// NumGstar returns the number of free reciprocal metric components of s.
func (s LatticeSystem) NumGstar() int {
	return [...]int{6, 4, 3, 2, 2, 1}[s]
}

// ReduceGstar extracts the free components of g for lattice system s.
func (s LatticeSystem) ReduceGstar(g [6]float64) []float64 {
	switch s {
	case Monoclinic:
		return []float64{g[0], g[1], g[2], g[4]}
	case Orthorhombic:
		return []float64{g[0], g[1], g[2]}
	case Tetragonal, Hexagonal:
		return []float64{(g[0] + g[1]) / 2, g[2]}
	case Cubic:
		return []float64{(g[0] + g[1] + g[2]) / 3}
	}
	return g[:]
}

// ExpandGstar is the inverse of ReduceGstar.  For hexagonal axes the
// reciprocal angle gamma* is 60 degrees, so g01 = g00/2.
func (s LatticeSystem) ExpandGstar(p []float64) [6]float64 {
	switch s {
	case Monoclinic:
		return [6]float64{p[0], p[1], p[2], 0, p[3], 0}
	case Orthorhombic:
		return [6]float64{p[0], p[1], p[2], 0, 0, 0}
	case Tetragonal:
		return [6]float64{p[0], p[0], p[1], 0, 0, 0}
	case Hexagonal:
		return [6]float64{p[0], p[0], p[1], p[0] / 2, 0, 0}
	case Cubic:
		return [6]float64{p[0], p[0], p[0], 0, 0, 0}
	}
	return [6]float64{p[0], p[1], p[2], p[3], p[4], p[5]}
}

// AngularDeviation returns the Bravais-type deviation as degrees, the unit
// reports use.
func (sub Subgroup) AngularDeviation() float64 {
	return sub.MaxAngularDifference.Deg()
}
