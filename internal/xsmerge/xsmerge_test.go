// Public domain.

package xsmerge_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
	"github.com/xtalsym/xtalsym/internal/xsmerge"
	"github.com/xtalsym/xtalsym/internal/xssim"
)

func ExampleSymmetry_Asu() {
	sg, _ := xslattice.SpaceGroupOf("P 4")
	h := [3]int{1, 2, -3}
	fmt.Println(xsmerge.SymmetryOf(sg, false).Asu(h))
	fmt.Println(xsmerge.SymmetryOf(sg, true).Asu(h))
	// Output:
	// [2 -1 3]
	// [2 -1 -3]
}

func TestAllowed(t *testing.T) {
	for _, tc := range []struct {
		centring byte
		h        [3]int
		allowed  bool
	}{
		{'P', [3]int{1, 0, 0}, true},
		{'C', [3]int{1, 1, 0}, true},
		{'C', [3]int{1, 0, 0}, false},
		{'A', [3]int{0, 1, 1}, true},
		{'A', [3]int{0, 1, 0}, false},
		{'B', [3]int{1, 5, 1}, true},
		{'I', [3]int{1, 1, 0}, true},
		{'I', [3]int{1, 0, 0}, false},
		{'F', [3]int{1, 1, 1}, true},
		{'F', [3]int{1, 1, 0}, false},
		{'R', [3]int{1, 0, 1}, true},
		{'R', [3]int{1, 0, 0}, false},
		{'R', [3]int{-1, 0, 1}, false},
	} {
		s := xsmerge.Symmetry{Centring: tc.centring}
		assert.Equal(t, tc.allowed, s.Allowed(tc.h), "%c %v", tc.centring, tc.h)
	}
}

func TestMerge(t *testing.T) {
	obs := []xsmerge.Observation{
		{Miller: [3]int{1, 0, 0}, Intensity: 10, Sigma: 1},
		{Miller: [3]int{-1, 0, 0}, Intensity: 20, Sigma: 2},
		{Miller: [3]int{0, 0, 1}, Intensity: 5, Sigma: 1},
		{Miller: [3]int{0, 0, 1}, Intensity: 7, Sigma: 0},
	}
	m := xsmerge.Merge(obs, xsmerge.SymmetryOf(xscell.P1(), false))
	require.Len(t, m, 2)
	assert.Equal(t, [3]int{0, 0, 1}, m[0].Miller)
	assert.Equal(t, 5., m[0].Intensity)
	assert.Len(t, m[0].Obs, 1)
	assert.Equal(t, [3]int{1, 0, 0}, m[1].Miller)
	assert.InDelta(t, 12, m[1].Intensity, 1e-12)
	assert.InDelta(t, 1/math.Sqrt(1.25), m[1].Sigma, 1e-12)

	m = xsmerge.Merge(obs, xsmerge.SymmetryOf(xscell.P1(), true))
	assert.Len(t, m, 3)
}

func TestPossible(t *testing.T) {
	uc := xscell.MustParameters([6]float64{10, 10, 10, 90, 90, 90})
	p1 := xsmerge.SymmetryOf(xscell.P1(), false)
	assert.Len(t, xsmerge.Possible(uc, p1, 4.9, 0), 16)
	assert.Len(t, xsmerge.Possible(uc, p1, 4.9, 9.9), 13)
	sg, err := xslattice.LowestSpaceGroup("cP", false)
	require.NoError(t, err)
	cub := xsmerge.SymmetryOf(sg, false)
	assert.Len(t, xsmerge.Possible(uc, cub, 4.9, 0), 4)
	assert.Len(t, xsmerge.Possible(uc, cub, 4.9, 9.9), 3)
}

func unmerged(t *testing.T) ([]xsmerge.Observation, xscell.UnitCell, xscell.SpaceGroup) {
	obs, uc, sg, err := xssim.Unmerged(xssim.DefaultUnmergedParams())
	require.NoError(t, err)
	return obs, uc, sg
}

func TestCompute(t *testing.T) {
	obs, uc, sg := unmerged(t)
	st, err := xsmerge.Compute(obs, uc, sg, xsmerge.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, st.Bins, 100)

	o := st.Overall
	assert.Equal(t, len(obs), o.NObs)
	assert.InDelta(t, 4, o.Multiplicity, 1e-12)
	assert.InDelta(t, 1, o.Completeness, .01)
	assert.InDelta(t, 1.6, o.DMin, .01)

	nu, np := 0, 0
	for i, b := range st.Bins {
		assert.Greater(t, b.DMax, b.DMin)
		if i > 0 {
			assert.InDelta(t, st.Bins[i-1].DMin, b.DMax, 1e-9)
		}
		nu += b.NUnique
		np += b.NPossible
	}
	assert.Equal(t, o.NUnique, nu)
	assert.Equal(t, o.NPossible, np)

	first, last := st.Bins[0], st.Bins[len(st.Bins)-1]
	assert.Greater(t, first.CCHalf, .95)
	assert.True(t, first.CCHalfSignificance)
	assert.Greater(t, first.CCHalfSigmaTau, .95)
	assert.Less(t, last.CCHalf, first.CCHalf)
	assert.Greater(t, first.IOverSigmaMean, last.IOverSigmaMean)
	assert.Greater(t, first.UnmergedIOverSigmaMean, last.UnmergedIOverSigmaMean)
	assert.Greater(t, last.RMerge, first.RMerge)
	assert.Len(t, first.Merged(), first.NUnique)

	// same seed, same split
	again, err := xsmerge.Compute(obs, uc, sg, xsmerge.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, st.Bins[50].CCHalf, again.Bins[50].CCHalf)
}

func TestComputeVolumeBinning(t *testing.T) {
	obs, uc, sg := unmerged(t)
	opt := xsmerge.DefaultOptions()
	opt.NBins = 10
	opt.Binning = xsmerge.Volume
	st, err := xsmerge.Compute(obs, uc, sg, opt)
	require.NoError(t, err)
	require.Len(t, st.Bins, 10)
	shell := func(b xsmerge.Bin) float64 { return math.Pow(b.DMin, -3) - math.Pow(b.DMax, -3) }
	w := shell(st.Bins[0])
	for _, b := range st.Bins[1:] {
		assert.InEpsilon(t, w, shell(b), 1e-6)
	}

	opt.Binning = "nonsense"
	_, err = xsmerge.Compute(obs, uc, sg, opt)
	assert.Error(t, err)
	_, err = xsmerge.Compute(nil, uc, sg, xsmerge.DefaultOptions())
	assert.ErrorIs(t, err, xsmerge.ErrNoObservations)
}

func TestSymopCorrelations(t *testing.T) {
	obs, uc, sg := unmerged(t)
	twofoldA := xscell.IMat3{{1, 0, 0}, {0, -1, 0}, {0, 0, -1}}
	rots := append(append([]xscell.IMat3(nil), sg.Rotations...), twofoldA)
	for _, nBins := range []int{0, 5} {
		cc, n := xsmerge.SymopCorrelations(obs, uc, rots, nBins)
		require.Len(t, cc, len(rots))
		require.Len(t, n, len(rots))
		assert.InDelta(t, 1, cc[0], 1e-12)
		for i := 1; i < len(sg.Rotations); i++ {
			assert.Greater(t, cc[i], .9, "rotation %d", i)
			assert.Positive(t, n[i])
		}
		if nBins > 1 {
			// binning removes the correlation due to the fall off with
			// resolution
			assert.Less(t, cc[len(rots)-1], .3)
		} else {
			assert.Less(t, cc[len(rots)-1], cc[1])
		}
	}
}

func TestCCRef(t *testing.T) {
	obs, uc, sg := unmerged(t)
	st, err := xsmerge.Compute(obs, uc, sg, xsmerge.DefaultOptions())
	require.NoError(t, err)
	ref := xsmerge.Merge(obs, xsmerge.SymmetryOf(sg, false))
	cc := xsmerge.CCRef(st, ref)
	require.Len(t, cc, len(st.Bins))
	for _, c := range cc {
		assert.InDelta(t, 1, c, 1e-9)
	}
	assert.Equal(t, make([]float64, len(st.Bins)), xsmerge.CCRef(st, nil))
}
