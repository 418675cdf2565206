// Public domain.

// Package xslattice finds the Bravais lattices compatible with a unit cell
// and the conventional settings in which to describe them.
package xslattice

import (
	"fmt"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// LatticeSystem is one of the six lattice systems.  Rhombohedral lattices
// are described on hexagonal axes and so share the hexagonal system.
type LatticeSystem int

const (
	Triclinic LatticeSystem = iota
	Monoclinic
	Orthorhombic
	Tetragonal
	Hexagonal
	Cubic
)

var systemNames = []string{
	"triclinic", "monoclinic", "orthorhombic", "tetragonal", "hexagonal", "cubic",
}

func (s LatticeSystem) String() string {
	if s < 0 || int(s) >= len(systemNames) {
		return fmt.Sprintf("LatticeSystem(%d)", int(s))
	}
	return systemNames[s]
}

// SystemOf returns the lattice system of a Bravais symbol such as "oC".
func SystemOf(bravais string) (LatticeSystem, error) {
	if bravais != "" {
		switch bravais[0] {
		case 'a':
			return Triclinic, nil
		case 'm':
			return Monoclinic, nil
		case 'o':
			return Orthorhombic, nil
		case 't':
			return Tetragonal, nil
		case 'h':
			return Hexagonal, nil
		case 'c':
			return Cubic, nil
		}
	}
	return 0, fmt.Errorf("unknown Bravais symbol %q", bravais)
}

// generators of the lowest symmetry point groups, conventional settings
var (
	rot2b = xscell.IMat3{{-1, 0, 0}, {0, 1, 0}, {0, 0, -1}}
	rot2c = xscell.IMat3{{-1, 0, 0}, {0, -1, 0}, {0, 0, 1}}
	rot2a = xscell.IMat3{{1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	rot4c = xscell.IMat3{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}}
	rot3c = xscell.IMat3{{0, -1, 0}, {1, -1, 0}, {0, 0, 1}}
	rot3d = xscell.IMat3{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}
)

// BravaisTypes lists the 14 Bravais types with the lowest symmetry space
// group consistent with each.
var BravaisTypes = []struct {
	Symbol   string
	SGSymbol string
	SGNumber int
	gens     []xscell.IMat3
}{
	{"aP", "P 1", 1, nil},
	{"mP", "P 1 2 1", 3, []xscell.IMat3{rot2b}},
	{"mC", "C 1 2 1", 5, []xscell.IMat3{rot2b}},
	{"oP", "P 2 2 2", 16, []xscell.IMat3{rot2a, rot2b, rot2c}},
	{"oC", "C 2 2 2", 20, []xscell.IMat3{rot2a, rot2b, rot2c}},
	{"oF", "F 2 2 2", 22, []xscell.IMat3{rot2a, rot2b, rot2c}},
	{"oI", "I 2 2 2", 23, []xscell.IMat3{rot2a, rot2b, rot2c}},
	{"tP", "P 4", 75, []xscell.IMat3{rot4c}},
	{"tI", "I 4", 79, []xscell.IMat3{rot4c}},
	{"hP", "P 3", 143, []xscell.IMat3{rot3c}},
	{"hR", "R 3 :H", 146, []xscell.IMat3{rot3c}},
	{"cP", "P 2 3", 195, []xscell.IMat3{rot2c, rot3d}},
	{"cF", "F 2 3", 196, []xscell.IMat3{rot2c, rot3d}},
	{"cI", "I 2 3", 197, []xscell.IMat3{rot2c, rot3d}},
}

// LowestSpaceGroup returns the lowest symmetry space group of a Bravais
// type.  Monoclinic lattices in a body centred best setting are reported
// as I 1 2 1 rather than C 1 2 1.
func LowestSpaceGroup(bravais string, bodyCentred bool) (xscell.SpaceGroup, error) {
	for _, bt := range BravaisTypes {
		if bt.Symbol != bravais {
			continue
		}
		sg := xscell.SpaceGroup{
			Symbol:    bt.SGSymbol,
			Number:    bt.SGNumber,
			Rotations: generate(bt.gens),
		}
		if bravais == "mC" && bodyCentred {
			sg.Symbol = "I 1 2 1"
		}
		return sg, nil
	}
	return xscell.SpaceGroup{}, fmt.Errorf("unknown Bravais symbol %q", bravais)
}

// SpaceGroupOf returns the tabulated space group with the given symbol.
func SpaceGroupOf(symbol string) (xscell.SpaceGroup, error) {
	for _, bt := range BravaisTypes {
		if bt.SGSymbol == symbol {
			return LowestSpaceGroup(bt.Symbol, false)
		}
	}
	if symbol == "I 1 2 1" {
		return LowestSpaceGroup("mC", true)
	}
	return xscell.SpaceGroup{}, fmt.Errorf("unknown space group %q", symbol)
}

// closure returns the group generated by gens, identity first.  The
// second result is false if the closure exceeds the largest crystallographic
// point group of proper rotations.
func closure(gens []xscell.IMat3) ([]xscell.IMat3, bool) {
	id := xscell.IIdentity()
	elems := []xscell.IMat3{id}
	seen := map[xscell.IMat3]bool{id: true}
	for i := 0; i < len(elems); i++ {
		for _, g := range gens {
			p := elems[i].Mul(g)
			if seen[p] {
				continue
			}
			if len(elems) == 24 || maxAbs(p) > 12 {
				return nil, false
			}
			seen[p] = true
			elems = append(elems, p)
		}
	}
	return elems, true
}

func generate(gens []xscell.IMat3) []xscell.IMat3 {
	elems, _ := closure(gens)
	return elems
}

func maxAbs(m xscell.IMat3) int {
	x := 0
	for _, r := range m {
		for _, v := range r {
			if v < 0 {
				v = -v
			}
			if v > x {
				x = v
			}
		}
	}
	return x
}

// order returns the smallest k <= 6 with m^k = I, or 0.
func order(m xscell.IMat3) int {
	p := m
	for k := 1; k <= 6; k++ {
		if p.IsIdentity() {
			return k
		}
		p = p.Mul(m)
	}
	return 0
}

// SystemOfNumber returns the lattice system of space group number n.
func SystemOfNumber(n int) (LatticeSystem, error) {
	switch {
	case n < 1:
	case n <= 2:
		return Triclinic, nil
	case n <= 15:
		return Monoclinic, nil
	case n <= 74:
		return Orthorhombic, nil
	case n <= 142:
		return Tetragonal, nil
	case n <= 194:
		return Hexagonal, nil
	case n <= 230:
		return Cubic, nil
	}
	return 0, fmt.Errorf("invalid space group number %d", n)
}
