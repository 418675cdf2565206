// Public domain.

package xsbin_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
)

func ExampleTable_Reindex() {
	t := &xsbin.Table{Rows: []xsbin.Reflection{
		{Miller: [3]int{1, 0, 0}},
		{Miller: [3]int{0, 1, 2}},
	}}
	op, _ := xscell.ParseABC("a+b,-a+b,c")
	t.Reindex(op)
	for _, r := range t.Rows {
		fmt.Println(r.Miller)
	}
	// Output:
	// [1 -1 0]
	// [1 1 2]
}

func TestSelect(t *testing.T) {
	tab := &xsbin.Table{HasIntensities: true, Rows: []xsbin.Reflection{
		{Miller: [3]int{1, 0, 0}, Flags: xsbin.Indexed | xsbin.UsedInRefinement},
		{Miller: [3]int{2, 0, 0}, Flags: xsbin.Indexed},
		{Miller: [3]int{3, 0, 0}, Flags: xsbin.UsedInRefinement},
	}}
	sel := tab.Flagged(xsbin.UsedInRefinement)
	assert.Equal(t, []bool{true, false, true}, sel)
	assert.Equal(t, 2, xsbin.Count(sel))
	sub := tab.Select(sel)
	require.Equal(t, 2, sub.Len())
	assert.True(t, sub.HasIntensities)
	assert.Equal(t, 3, sub.Rows[1].Miller[0])

	cp := tab.Copy()
	cp.Rows[0].Miller[0] = 9
	assert.Equal(t, 1, tab.Rows[0].Miller[0])
}

func TestFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), xsbin.Rfn)
	tab := &xsbin.Table{HasIntensities: true, Rows: []xsbin.Reflection{
		{Miller: [3]int{1, 2, 3}, XObs: 1.5, YObs: -2.5, Intensity: 100, Variance: 4},
	}}
	require.NoError(t, xsbin.WriteFile(fn, tab))
	got, err := xsbin.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, tab, got)
	assert.Equal(t, 2.0, got.Rows[0].Sigma())

	bad := filepath.Join(t.TempDir(), "bad")
	require.NoError(t, os.WriteFile(bad, []byte("not gob"), 0o644))
	_, err = xsbin.ReadFile(bad)
	assert.Error(t, err)
}

func TestExperimentsFile(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 11, 12, 90, 100, 90})
	sg, err := xslattice.SpaceGroupOf("C 1 2 1")
	require.NoError(t, err)
	c, err := xscell.NewCrystal(uc, xscell.RotY(0.3), sg)
	require.NoError(t, err)
	l := xsbin.ExperimentList{{
		Beam:     xsbin.Beam{Wavelength: 1.0},
		Detector: xsbin.Detector{Distance: 150},
		Crystal:  c,
	}}
	fn := filepath.Join(t.TempDir(), xsbin.Efn)
	require.NoError(t, xsbin.WriteExperiments(fn, l))
	got, err := xsbin.ReadExperiments(fn)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 150.0, got[0].Detector.Distance)
	assert.Equal(t, "C 1 2 1", got[0].Crystal.SpaceGroup.Symbol)
	assert.Len(t, got[0].Crystal.SpaceGroup.Rotations, 2)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, c.A()[i][j], got[0].Crystal.A()[i][j], 1e-9)
		}
	}

	cp := l.Copy()
	cp[0].Crystal.U = xscell.Identity3()
	assert.Equal(t, xscell.RotY(0.3), l[0].Crystal.U)

	bad := filepath.Join(t.TempDir(), "bad.expt")
	require.NoError(t, os.WriteFile(bad, []byte("format: other\n"), 0o644))
	_, err = xsbin.ReadExperiments(bad)
	assert.Error(t, err)
}
