// Public domain.

package xslattice_test

import (
	"fmt"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
)

var maxDelta = unit.AngleFromDeg(5)

func ExampleLowestSpaceGroup() {
	for _, b := range []string{"aP", "mC", "oF", "tI", "hR", "cP"} {
		sg, _ := xslattice.LowestSpaceGroup(b, false)
		fmt.Printf("%s %-7s %3d %2d\n", b, sg.Symbol, sg.Number, len(sg.Rotations))
	}
	// Output:
	// aP P 1       1  1
	// mC C 1 2 1   5  2
	// oF F 2 2 2  22  4
	// tI I 4      79  4
	// hR R 3 :H  146  3
	// cP P 2 3   195 12
}

func bravaisCounts(subs []xslattice.Subgroup) map[string]int {
	n := map[string]int{}
	for _, s := range subs {
		n[s.Bravais]++
	}
	return n
}

func TestMetricSubgroupsCubic(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 10, 10, 90, 90, 90})
	subs, err := xslattice.MetricSubgroups(uc, maxDelta, xslattice.Best)
	require.NoError(t, err)
	require.NotEmpty(t, subs)
	assert.Equal(t, "cP", subs[0].Bravais)
	assert.Equal(t, xslattice.Cubic, subs[0].System)
	last := subs[len(subs)-1]
	assert.Equal(t, "aP", last.Bravais)
	assert.Equal(t, "a,b,c", last.CBOpInpBest.AsABC())
	assert.Equal(t, map[string]int{
		"cP": 1, "tP": 3, "hR": 4, "oP": 1, "oC": 3, "mP": 3, "mC": 6, "aP": 1,
	}, bravaisCounts(subs))
	for _, s := range subs {
		assert.Less(t, s.AngularDeviation(), 1e-6, s.Bravais)
		assert.Positive(t, s.CBOpInpBest.Det(), s.Bravais)
	}
	p := subs[0].BestCell.Parameters()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 10, p[i], 1e-9)
		assert.InDelta(t, 90, p[i+3], 1e-9)
	}
}

func TestMetricSubgroupsCentred(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cell    [6]float64
		bravais string
		conv    [6]float64
	}{
		{"body centred cubic", [6]float64{8.660254, 8.660254, 8.660254, 109.471221, 109.471221, 109.471221},
			"cI", [6]float64{10, 10, 10, 90, 90, 90}},
		{"face centred cubic", [6]float64{7.071068, 7.071068, 7.071068, 60, 60, 60},
			"cF", [6]float64{10, 10, 10, 90, 90, 90}},
		{"tetragonal", [6]float64{10, 10, 15, 90, 90, 90},
			"tP", [6]float64{10, 10, 15, 90, 90, 90}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			subs, err := xslattice.MetricSubgroups(xscell.MustParameters(tc.cell), maxDelta, xslattice.Best)
			require.NoError(t, err)
			require.NotEmpty(t, subs)
			assert.Equal(t, tc.bravais, subs[0].Bravais)
			got := subs[0].BestCell.Parameters()
			for i := range got {
				assert.InDelta(t, tc.conv[i], got[i], 1e-3, "parameter %d", i)
			}
		})
	}
}

func TestMetricSubgroupsRhombohedral(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 10, 10, 70, 70, 70})
	subs, err := xslattice.MetricSubgroups(uc, maxDelta, xslattice.Best)
	require.NoError(t, err)
	require.NotEmpty(t, subs)
	hr := subs[0]
	assert.Equal(t, "hR", hr.Bravais)
	assert.Equal(t, 3, hr.CBOpInpBest.Det())
	p := hr.BestCell.Parameters()
	assert.InDelta(t, p[0], p[1], 1e-6)
	assert.InDelta(t, 90, p[3], 1e-6)
	assert.InDelta(t, 90, p[4], 1e-6)
	assert.InDelta(t, 120, p[5], 1e-6)
	assert.InDelta(t, 3*uc.Volume(), hr.BestCell.Volume(), 1e-6)
}

func TestSymmetrizeAndConstrain(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10.02, 9.98, 10.01, 90.1, 89.95, 90.05})
	sym, err := xslattice.Symmetrize(uc, xslattice.Cubic)
	require.NoError(t, err)
	p := sym.Parameters()
	assert.InDelta(t, 10.003333, p[0], 1e-5)
	assert.Equal(t, p[0], p[2])
	assert.InDelta(t, 90, p[4], 1e-9)

	u := xscell.RotZ(0.5).Mul(xscell.RotX(0.25))
	c, err := xscell.NewCrystal(uc, u, xscell.P1())
	require.NoError(t, err)
	subs, err := xslattice.MetricSubgroups(uc, maxDelta, xslattice.Best)
	require.NoError(t, err)
	require.Equal(t, "cP", subs[0].Bravais)
	cc, err := xslattice.ConstrainOrientation(c, subs[0])
	require.NoError(t, err)
	got, err := cc.UnitCell()
	require.NoError(t, err)
	q := got.Parameters()
	assert.InDelta(t, q[0], q[1], 1e-9)
	assert.InDelta(t, q[0], q[2], 1e-9)
	assert.InDelta(t, 90, q[3], 1e-9)
	assert.Equal(t, 195, cc.SpaceGroup.Number)
	assert.InDelta(t, 1, cc.U.Det(), 1e-12)
}

func TestGstarParametrisation(t *testing.T) {
	hex := xscell.MustParameters([6]float64{12, 12, 30, 90, 90, 120})
	g := hex.Gstar()
	p := xslattice.Hexagonal.ReduceGstar(g)
	require.Len(t, p, xslattice.Hexagonal.NumGstar())
	back := xslattice.Hexagonal.ExpandGstar(p)
	for i := range g {
		assert.InDelta(t, g[i], back[i], 1e-12)
	}
	for _, s := range []xslattice.LatticeSystem{xslattice.Triclinic, xslattice.Monoclinic,
		xslattice.Orthorhombic, xslattice.Tetragonal, xslattice.Cubic} {
		assert.Len(t, s.ReduceGstar(g), s.NumGstar(), s.String())
	}
}
