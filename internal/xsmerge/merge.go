// Public domain.

// Package xsmerge merges symmetry equivalent intensity observations and
// computes per resolution shell merging statistics.
package xsmerge

import (
	"math"
	"sort"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// Observation is one unmerged intensity measurement.
type Observation struct {
	Miller    [3]int
	Intensity float64
	Sigma     float64
}

// Merged is a unique reflection with the observations merged into it.
// Intensity and Sigma are inverse variance weighted.
type Merged struct {
	Miller    [3]int // representative in the asymmetric unit
	Intensity float64
	Sigma     float64
	Obs       []Observation
}

// Symmetry is what merging needs to know of a space group: the rotations
// generating equivalent reflections, the lattice centring, and whether
// Friedel mates are kept apart.
type Symmetry struct {
	Rotations []xscell.IMat3
	Centring  byte // P, A, B, C, I, F or R
	Anomalous bool
}

// SymmetryOf returns the merging symmetry of sg.
func SymmetryOf(sg xscell.SpaceGroup, anomalous bool) Symmetry {
	c := byte('P')
	if sg.Symbol != "" {
		c = sg.Symbol[0]
	}
	rot := sg.Rotations
	if len(rot) == 0 {
		rot = []xscell.IMat3{xscell.IIdentity()}
	}
	return Symmetry{Rotations: rot, Centring: c, Anomalous: anomalous}
}

// Asu returns the representative of the equivalents of h: the
// lexicographically greatest.
func (s Symmetry) Asu(h [3]int) [3]int {
	best := h
	for _, r := range s.Rotations {
		e := r.T().MulVec(h)
		if greater(e, best) {
			best = e
		}
		if !s.Anomalous {
			e = [3]int{-e[0], -e[1], -e[2]}
			if greater(e, best) {
				best = e
			}
		}
	}
	return best
}

func greater(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// Allowed reports whether h is not systematically absent by lattice
// centring.
func (s Symmetry) Allowed(h [3]int) bool {
	even := func(n int) bool { return n%2 == 0 }
	switch s.Centring {
	case 'A':
		return even(h[1] + h[2])
	case 'B':
		return even(h[0] + h[2])
	case 'C':
		return even(h[0] + h[1])
	case 'I':
		return even(h[0] + h[1] + h[2])
	case 'F':
		return even(h[0]+h[1]) && even(h[1]+h[2])
	case 'R':
		// obverse setting on hexagonal axes
		return (-h[0]+h[1]+h[2])%3 == 0
	}
	return true
}

// Merge groups obs by asymmetric unit representative.  The result is
// sorted by Miller index.  Observations with non-positive sigma are
// skipped.
func Merge(obs []Observation, sym Symmetry) []Merged {
	idx := map[[3]int]int{}
	var m []Merged
	for _, o := range obs {
		if !(o.Sigma > 0) {
			continue
		}
		h := sym.Asu(o.Miller)
		i, ok := idx[h]
		if !ok {
			i = len(m)
			idx[h] = i
			m = append(m, Merged{Miller: h})
		}
		m[i].Obs = append(m[i].Obs, o)
	}
	sort.Slice(m, func(i, j int) bool { return greater(m[j].Miller, m[i].Miller) })
	for i := range m {
		var sw, swi float64
		for _, o := range m[i].Obs {
			w := 1 / (o.Sigma * o.Sigma)
			sw += w
			swi += w * o.Intensity
		}
		m[i].Intensity = swi / sw
		m[i].Sigma = 1 / math.Sqrt(sw)
	}
	return m
}

// Possible returns the representatives of all reflections allowed by sym
// with dMin <= d < dMax, dMax zero meaning unbounded.
func Possible(uc xscell.UnitCell, sym Symmetry, dMin, dMax float64) [][3]int {
	a, b, c := uc.Lengths()
	// |h| <= a/d for any cell
	lim := [3]int{
		int(math.Ceil(a / dMin)), int(math.Ceil(b / dMin)), int(math.Ceil(c / dMin)),
	}
	maxSq := 1 / (dMin * dMin)
	minSq := 0.
	if dMax > 0 {
		minSq = 1 / (dMax * dMax)
	}
	seen := map[[3]int]bool{}
	var r [][3]int
	for h := -lim[0]; h <= lim[0]; h++ {
		for k := -lim[1]; k <= lim[1]; k++ {
			for l := -lim[2]; l <= lim[2]; l++ {
				m := [3]int{h, k, l}
				if m == [3]int{} || !sym.Allowed(m) {
					continue
				}
				s := uc.DStarSq(m)
				if s > maxSq || s <= minSq {
					continue
				}
				if rep := sym.Asu(m); !seen[rep] {
					seen[rep] = true
					r = append(r, rep)
				}
			}
		}
	}
	return r
}
