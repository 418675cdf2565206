// Public domain.

package xslattice

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// Subgroup describes one candidate lattice symmetry of a cell.
type Subgroup struct {
	Bravais    string
	System     LatticeSystem
	SpaceGroup xscell.SpaceGroup // lowest symmetry group, best setting

	// CBOpInpBest maps the input cell to the conventional best cell.
	CBOpInpBest xscell.ChangeOfBasisOp
	// BestCell is the input cell in the best basis, not symmetrized.
	BestCell xscell.UnitCell
	// MaxAngularDifference is the largest deviation of any twofold of the
	// lattice group from exact symmetry.
	MaxAngularDifference unit.Angle

	order int // rotations in the lattice point group
}

// Setting selects the conventional cell for centred monoclinic lattices.
type Setting int

const (
	// Reference always describes centred monoclinic lattices as C2.
	Reference Setting = iota
	// Best picks C2 or I2, whichever has beta nearer 90 degrees.
	Best
)

// MetricSubgroups returns every lattice symmetry of uc with angular
// deviation below maxDelta, highest symmetry first.  The last element is
// always the triclinic lattice.
func MetricSubgroups(uc xscell.UnitCell, maxDelta unit.Angle, setting Setting) ([]Subgroup, error) {
	red, opRed, err := xscell.Reduce(uc)
	if err != nil {
		return nil, err
	}
	tfs := twofolds(red, maxDelta)
	lv := newLatticeVectors(red)
	var subs []Subgroup
	for _, g := range latticeGroups(tfs) {
		conv, bravais, centring, ok := conventional(g, lv, setting)
		if !ok {
			continue
		}
		cop, err := xscell.NewChangeOfBasisOp(conv)
		if err != nil {
			return nil, err
		}
		op := opRed.Then(cop)
		best, err := uc.ChangeBasis(op)
		if err != nil {
			return nil, err
		}
		sys, _ := SystemOf(bravais)
		sg, err := LowestSpaceGroup(bravais, centring == "I")
		if err != nil {
			return nil, err
		}
		subs = append(subs, Subgroup{
			Bravais:              bravais,
			System:               sys,
			SpaceGroup:           sg,
			CBOpInpBest:          op,
			BestCell:             best,
			MaxAngularDifference: g.delta,
			order:                len(g.elems),
		})
	}
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].order != subs[j].order {
			return subs[i].order > subs[j].order
		}
		return subs[i].MaxAngularDifference < subs[j].MaxAngularDifference
	})
	return subs, nil
}

// lattice group: rotations plus indexes of the twofolds it contains
type lgroup struct {
	elems    []xscell.IMat3
	set      map[xscell.IMat3]bool
	twofolds []int
	delta    unit.Angle
}

// latticeGroups enumerates, breadth first from the trivial group, every
// group generated by a subset of the twofolds.  A group is kept only if
// each of its twofold rotations was itself found by the search.
func latticeGroups(tfs []twofold) []lgroup {
	byR := make(map[xscell.IMat3]int, len(tfs))
	for i, t := range tfs {
		byR[t.r] = i
	}
	id := xscell.IIdentity()
	groups := []lgroup{{elems: []xscell.IMat3{id}, set: map[xscell.IMat3]bool{id: true}}}
	seen := map[string]bool{groupKey(groups[0].elems): true}
	for gi := 0; gi < len(groups); gi++ {
		for _, t := range tfs {
			g := groups[gi]
			if g.set[t.r] {
				continue
			}
			elems, ok := closure(append(append([]xscell.IMat3{}, g.elems...), t.r))
			if !ok {
				continue
			}
			key := groupKey(elems)
			if seen[key] {
				continue
			}
			seen[key] = true
			ng := lgroup{elems: elems, set: make(map[xscell.IMat3]bool, len(elems))}
			valid := true
			for _, e := range elems {
				ng.set[e] = true
				if order(e) != 2 {
					continue
				}
				ti, found := byR[e]
				if !found {
					valid = false
					break
				}
				ng.twofolds = append(ng.twofolds, ti)
				if tfs[ti].delta > ng.delta {
					ng.delta = tfs[ti].delta
				}
			}
			if valid {
				groups = append(groups, ng)
			}
		}
	}
	return groups
}

func groupKey(elems []xscell.IMat3) string {
	ks := make([]string, len(elems))
	for i, e := range elems {
		ks[i] = fmt.Sprint(e)
	}
	sort.Strings(ks)
	return strings.Join(ks, ";")
}

// latticeVectors holds short lattice vectors of the reduced cell, shortest
// first, with their Cartesian images.
type latticeVectors struct {
	o    xscell.Mat3
	vecs [][3]int
}

func newLatticeVectors(red xscell.UnitCell) *latticeVectors {
	lv := &latticeVectors{o: red.Orthogonalization()}
	for i := -3; i <= 3; i++ {
		for j := -3; j <= 3; j++ {
			for k := -3; k <= 3; k++ {
				if i != 0 || j != 0 || k != 0 {
					lv.vecs = append(lv.vecs, [3]int{i, j, k})
				}
			}
		}
	}
	sort.SliceStable(lv.vecs, func(i, j int) bool {
		return lv.length(lv.vecs[i]) < lv.length(lv.vecs[j])-1e-9
	})
	return lv
}

func (lv *latticeVectors) cart(v [3]int) [3]float64 { return lv.o.MulIVec(v) }

func (lv *latticeVectors) length(v [3]int) float64 { return xscell.Norm(lv.cart(v)) }

func (lv *latticeVectors) cos(a, b [3]int) float64 {
	ca, cb := lv.cart(a), lv.cart(b)
	return xscell.Dot(ca, cb) / (xscell.Norm(ca) * xscell.Norm(cb))
}

// reversed returns the lattice vectors that r maps to their negatives.
func (lv *latticeVectors) reversed(r xscell.IMat3) [][3]int {
	var in [][3]int
	for _, v := range lv.vecs {
		if r.MulVec(v) == neg(v) {
			in = append(in, v)
		}
	}
	return in
}

func neg(v [3]int) [3]int { return [3]int{-v[0], -v[1], -v[2]} }

// axis returns the primitive lattice vector along the rotation axis of r.
func axis(r xscell.IMat3) [3]int {
	n := order(r)
	var s xscell.IMat3
	p := xscell.IIdentity()
	for k := 0; k < n; k++ {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				s[i][j] += p[i][j]
			}
		}
		p = p.Mul(r)
	}
	var best [3]int
	for j := 0; j < 3; j++ {
		c := s.Col(j)
		if idot(c, c) > idot(best, best) {
			best = c
		}
	}
	g := gcd3(best)
	if g == 0 {
		return best
	}
	return canonicalSign([3]int{best[0] / g, best[1] / g, best[2] / g})
}

// centring returns the centring symbol of the cell with basis columns m:
// "P", "A", "B", "C", "I", "F", "R" (obverse), "Rrev" or "" if the cell is
// not a recognised conventional cell.
func centring(m xscell.IMat3) string {
	d := m.Det()
	s := 1
	if d < 0 {
		d, s = -d, -1
	}
	switch d {
	case 0:
		return ""
	case 1:
		return "P"
	}
	adj := m.Adj()
	mod := func(x int) int { return ((x % d) + d) % d }
	// lattice translations in the new basis, in units of 1/d
	set := map[[3]int]bool{{}: true}
	for changed := true; changed; {
		changed = false
		for j := 0; j < 3; j++ {
			g := adj.Col(j)
			for t := range set {
				n := [3]int{mod(t[0] + s*g[0]), mod(t[1] + s*g[1]), mod(t[2] + s*g[2])}
				if !set[n] {
					set[n] = true
					changed = true
				}
			}
		}
	}
	if len(set) != d {
		return ""
	}
	has := func(v ...[3]int) bool {
		for _, x := range v {
			if !set[x] {
				return false
			}
		}
		return true
	}
	switch d {
	case 2:
		switch {
		case has([3]int{1, 1, 0}):
			return "C"
		case has([3]int{0, 1, 1}):
			return "A"
		case has([3]int{1, 0, 1}):
			return "B"
		case has([3]int{1, 1, 1}):
			return "I"
		}
	case 3:
		switch {
		case has([3]int{2, 1, 1}, [3]int{1, 2, 2}):
			return "R"
		case has([3]int{1, 2, 1}, [3]int{2, 1, 2}):
			return "Rrev"
		}
	case 4:
		if has([3]int{0, 2, 2}, [3]int{2, 0, 2}, [3]int{2, 2, 0}) {
			return "F"
		}
	}
	return ""
}

// basis columns a, b, c made right handed by reversing c
func rightHanded(a, b, c [3]int) xscell.IMat3 {
	m := xscell.ICols(a, b, c)
	if m.Det() < 0 {
		m = xscell.ICols(a, b, neg(c))
	}
	return m
}

// conventional builds the conventional basis for lattice group g and
// returns it with the Bravais symbol and centring.
func conventional(g lgroup, lv *latticeVectors, setting Setting) (xscell.IMat3, string, string, bool) {
	var byOrder [7][]xscell.IMat3
	for _, e := range g.elems {
		if k := order(e); k > 0 {
			byOrder[k] = append(byOrder[k], e)
		}
	}
	switch len(g.elems) {
	case 1:
		return xscell.IIdentity(), "aP", "P", true
	case 2:
		return monoclinic(byOrder[2][0], lv, setting)
	case 4:
		if len(byOrder[2]) == 3 {
			return orthorhombic(byOrder[2], lv)
		}
	case 6:
		if len(byOrder[3]) > 0 {
			return trigonal(byOrder[3][0], byOrder[2], lv)
		}
	case 8:
		if len(byOrder[4]) > 0 {
			return tetragonal(byOrder[4][0], byOrder[2])
		}
	case 12:
		if len(byOrder[6]) > 0 {
			return hexagonal(byOrder[6][0], byOrder[2], lv)
		}
	case 24:
		return cubic(byOrder[4])
	}
	return xscell.IMat3{}, "", "", false
}

func monoclinic(r xscell.IMat3, lv *latticeVectors, setting Setting) (xscell.IMat3, string, string, bool) {
	b := axis(r)
	plane := lv.reversed(r)
	if len(plane) < 2 {
		return xscell.IMat3{}, "", "", false
	}
	if len(plane) > 40 {
		plane = plane[:40]
	}
	// index of the plane lattice: 1 primitive, 2 centred
	var want int
	for _, q := range plane[1:] {
		if cr := xscell.Cross(lv.cart(plane[0]), lv.cart(q)); xscell.Norm(cr) > 1e-6 {
			want = abs(xscell.ICols(plane[0], b, q).Det())
			break
		}
	}
	var best xscell.IMat3
	var bestC string
	bestScore := math.Inf(1)
	for _, x := range plane {
		for _, y := range plane {
			m := rightHanded(x, b, y)
			if abs(m.Det()) != want {
				continue
			}
			c := centring(m)
			switch {
			case want == 1 && c == "P":
			case want == 2 && c == "C":
			case want == 2 && c == "I" && setting == Best:
			default:
				continue
			}
			// least oblique, then shortest; C preferred over I on ties
			score := math.Abs(lv.cos(x, y)) + 1e-6*(lv.length(x)+lv.length(y))
			if score < bestScore-1e-9 || (c == "C" && bestC == "I" && score < bestScore+1e-9) {
				best, bestC, bestScore = m, c, score
			}
		}
	}
	if bestC == "" {
		return xscell.IMat3{}, "", "", false
	}
	// obtuse beta, reversing b and c to keep the hand
	if lv.cos(best.Col(0), best.Col(2)) > 1e-9 {
		best = xscell.ICols(best.Col(0), neg(best.Col(1)), neg(best.Col(2)))
	}
	if want == 1 {
		return best, "mP", "P", true
	}
	return best, "mC", bestC, true
}

func orthorhombic(rs []xscell.IMat3, lv *latticeVectors) (xscell.IMat3, string, string, bool) {
	ax := [][3]int{axis(rs[0]), axis(rs[1]), axis(rs[2])}
	m := rightHanded(ax[0], ax[1], ax[2])
	c := centring(m)
	a0, b0, c0 := m.Col(0), m.Col(1), m.Col(2)
	switch c {
	case "A":
		a0, b0, c0 = b0, c0, a0
		c = "C"
	case "B":
		a0, b0, c0 = c0, a0, b0
		c = "C"
	}
	byLen := func(v ...[3]int) {
		sort.SliceStable(v, func(i, j int) bool { return lv.length(v[i]) < lv.length(v[j])-1e-9 })
	}
	switch c {
	case "C":
		v := [][3]int{a0, b0}
		byLen(v...)
		m = rightHanded(v[0], v[1], c0)
		return m, "oC", c, true
	case "P", "I", "F":
		v := [][3]int{a0, b0, c0}
		byLen(v...)
		m = rightHanded(v[0], v[1], v[2])
		return m, "o" + c, c, true
	}
	return xscell.IMat3{}, "", "", false
}

// twofold rotations reversing c
func perpendicular(rs []xscell.IMat3, c [3]int) []xscell.IMat3 {
	var p []xscell.IMat3
	for _, r := range rs {
		if r.MulVec(c) == neg(c) {
			p = append(p, r)
		}
	}
	return p
}

func tetragonal(r4 xscell.IMat3, r2 []xscell.IMat3) (xscell.IMat3, string, string, bool) {
	c := axis(r4)
	var best xscell.IMat3
	bestDet := 0
	for _, r := range perpendicular(r2, c) {
		a := axis(r)
		m := rightHanded(a, r4.MulVec(a), c)
		if d := abs(m.Det()); bestDet == 0 || d < bestDet {
			best, bestDet = m, d
		}
	}
	switch centring(best) {
	case "P":
		return best, "tP", "P", true
	case "I":
		return best, "tI", "I", true
	}
	return xscell.IMat3{}, "", "", false
}

func shortestAxis(rs []xscell.IMat3, lv *latticeVectors) ([3]int, bool) {
	var a [3]int
	found := false
	for _, r := range rs {
		v := axis(r)
		if !found || lv.length(v) < lv.length(a)-1e-9 {
			a, found = v, true
		}
	}
	return a, found
}

func hexagonal(r6 xscell.IMat3, r2 []xscell.IMat3, lv *latticeVectors) (xscell.IMat3, string, string, bool) {
	c := axis(r6)
	a, ok := shortestAxis(perpendicular(r2, c), lv)
	if !ok {
		return xscell.IMat3{}, "", "", false
	}
	m := rightHanded(a, r6.Mul(r6).MulVec(a), c)
	if centring(m) != "P" {
		return xscell.IMat3{}, "", "", false
	}
	return m, "hP", "P", true
}

// trigonal lattice groups are Bravais lattices only when rhombohedral; a
// primitive hexagonal cell with 32 symmetry is a subgroup of hP.
func trigonal(r3 xscell.IMat3, r2 []xscell.IMat3, lv *latticeVectors) (xscell.IMat3, string, string, bool) {
	c := axis(r3)
	a, ok := shortestAxis(perpendicular(r2, c), lv)
	if !ok {
		return xscell.IMat3{}, "", "", false
	}
	m := rightHanded(a, r3.MulVec(a), c)
	switch centring(m) {
	case "R":
		return m, "hR", "R", true
	case "Rrev":
		m = xscell.ICols(neg(m.Col(0)), neg(m.Col(1)), m.Col(2))
		return m, "hR", "R", true
	}
	return xscell.IMat3{}, "", "", false
}

func cubic(r4 []xscell.IMat3) (xscell.IMat3, string, string, bool) {
	var ax [][3]int
	for _, r := range r4 {
		v := axis(r)
		dup := false
		for _, w := range ax {
			dup = dup || w == v
		}
		if !dup {
			ax = append(ax, v)
		}
	}
	if len(ax) != 3 {
		return xscell.IMat3{}, "", "", false
	}
	m := rightHanded(ax[0], ax[1], ax[2])
	switch c := centring(m); c {
	case "P", "I", "F":
		return m, "c" + c, c, true
	}
	return xscell.IMat3{}, "", "", false
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
