// Public domain.

package xscell

import "math"

// relative tolerance on metric comparisons during reduction
const reduceEps = 1e-5

// Reduce returns the Buerger-reduced cell of uc and the operator mapping
// uc to it.  Basis vectors are shortened by Gauss steps, ordered by length
// and their signs chosen so that the three inter-axial angles are all acute
// or all non-acute.  A cell already in that form maps with the identity.
func Reduce(uc UnitCell) (UnitCell, ChangeOfBasisOp, error) {
	g0 := uc.Metric()
	m := IIdentity()
	metric := func() Mat3 {
		f := m.Float()
		return f.T().Mul(g0).Mul(f)
	}
	tol := reduceEps * (g0[0][0] + g0[1][1] + g0[2][2]) / 3
	for iter := 0; iter < 100; iter++ {
		changed := false
		g := metric()
		// order by length, moving a vector only when strictly shorter
		for i := 1; i < 3; i++ {
			for j := i; j > 0 && g[j][j] < g[j-1][j-1]-tol; j-- {
				m = swapCols(m, j, j-1)
				g = metric()
				changed = true
			}
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				if i == j || math.Abs(2*g[i][j]) <= g[j][j]+tol {
					continue
				}
				q := int(math.Round(g[i][j] / g[j][j]))
				if q == 0 {
					continue
				}
				for r := 0; r < 3; r++ {
					m[r][i] -= q * m[r][j]
				}
				g = metric()
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	m = normalizeSigns(m, metric(), tol)
	red, err := uc.ChangeBasis(ChangeOfBasisOp{m})
	if err != nil {
		return UnitCell{}, ChangeOfBasisOp{}, err
	}
	return red, ChangeOfBasisOp{m}, nil
}

func swapCols(m IMat3, i, j int) IMat3 {
	for r := 0; r < 3; r++ {
		m[r][i], m[r][j] = m[r][j], m[r][i]
	}
	return m
}

// normalizeSigns chooses a right handed sign combination making all three
// off-diagonal metric elements positive, or failing that all non-positive.
func normalizeSigns(m IMat3, g Mat3, tol float64) IMat3 {
	if m.Det() < 0 {
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				m[r][c] = -m[r][c]
			}
		}
	}
	signs := [][3]int{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}
	offdiag := func(s [3]int) (g01, g02, g12 float64) {
		return float64(s[0]*s[1]) * g[0][1],
			float64(s[0]*s[2]) * g[0][2],
			float64(s[1]*s[2]) * g[1][2]
	}
	pick := func(ok func(a, b, c float64) bool) ([3]int, bool) {
		for _, s := range signs {
			if ok(offdiag(s)) {
				return s, true
			}
		}
		return [3]int{}, false
	}
	s, ok := pick(func(a, b, c float64) bool { return a > tol && b > tol && c > tol })
	if !ok {
		s, ok = pick(func(a, b, c float64) bool { return a <= tol && b <= tol && c <= tol })
	}
	if !ok {
		return m
	}
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m[r][c] *= s[c]
		}
	}
	return m
}
