// Public domain.

package xslattice

import (
	"math"
	"sort"

	"github.com/soniakeys/unit"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// twofold is a lattice direction u that is, within delta, perpendicular to
// a lattice plane with normal h, making R a near symmetry of the metric.
type twofold struct {
	u, h  [3]int
	r     xscell.IMat3
	delta unit.Angle
}

// primitive integer vectors in [-n,n]³, one of each ± pair
func primitiveVectors(n int) [][3]int {
	var vs [][3]int
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			for k := -n; k <= n; k++ {
				v := [3]int{i, j, k}
				if gcd3(v) == 1 && canonicalSign(v) == v {
					vs = append(vs, v)
				}
			}
		}
	}
	return vs
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func gcd3(v [3]int) int {
	return gcd(gcd(v[0], v[1]), v[2])
}

// canonicalSign flips v so its first non-zero component is positive.
func canonicalSign(v [3]int) [3]int {
	for _, x := range v {
		if x > 0 {
			return v
		}
		if x < 0 {
			return [3]int{-v[0], -v[1], -v[2]}
		}
	}
	return v
}

func idot(a, b [3]int) int {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// twofolds performs the Le Page search on cell uc, returning near twofold
// axes with angular deviation below maxDelta, ordered by deviation.
func twofolds(uc xscell.UnitCell, maxDelta unit.Angle) []twofold {
	o := uc.Orthogonalization()
	f, _ := o.Inverse()
	ft := f.T()
	cands := primitiveVectors(2)
	var tfs []twofold
	for _, u := range cands {
		uCart := o.MulIVec(u)
		best := twofold{delta: unit.Angle(math.Pi)}
		for _, h := range cands {
			uh := idot(u, h)
			if uh < 0 {
				uh = -uh
			}
			if uh != 1 && uh != 2 {
				continue
			}
			hCart := ft.MulIVec(h)
			d := unit.Angle(math.Atan2(xscell.Norm(xscell.Cross(uCart, hCart)),
				math.Abs(xscell.Dot(uCart, hCart))))
			if d < best.delta {
				best = twofold{u: u, h: h, delta: d}
			}
		}
		if best.delta >= maxDelta {
			continue
		}
		best.r = twofoldMatrix(best.u, best.h)
		tfs = append(tfs, best)
	}
	sort.SliceStable(tfs, func(i, j int) bool { return tfs[i].delta < tfs[j].delta })
	return tfs
}

// twofoldMatrix returns R = 2·u·hᵀ/(u·h) - I, which fixes u and reverses
// every vector in the plane perpendicular to h.
func twofoldMatrix(u, h [3]int) xscell.IMat3 {
	uh := idot(u, h)
	var r xscell.IMat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = 2 * u[i] * h[j] / uh
		}
		r[i][i]--
	}
	return r
}
