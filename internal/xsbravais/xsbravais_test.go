// Public domain.

package xsbravais_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xsbravais"
	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
	"github.com/xtalsym/xtalsym/internal/xsrefine"
	"github.com/xtalsym/xtalsym/internal/xssim"
)

func cubicStill(t *testing.T) (xsbin.ExperimentList, *xsbin.Table) {
	expts, table, err := xssim.Still(xssim.DefaultStillParams())
	require.NoError(t, err)
	require.Greater(t, table.Len(), 100)
	return expts, table
}

func params(nproc int) xsbravais.Params {
	p := xsbravais.DefaultParams()
	p.NProc = nproc
	return p
}

func TestCubicStill(t *testing.T) {
	expts, table := cubicStill(t)
	l, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(0), nil, nil)
	require.NoError(t, err)

	// numbering
	n := l.Len()
	require.Equal(t, 22, n)
	assert.Equal(t, n, l.Supergroup().SettingNumber)
	assert.Equal(t, 1, l.Triclinic().SettingNumber)
	for i := 0; i < n; i++ {
		assert.Equal(t, n-i, l.At(i).SettingNumber)
	}
	assert.Equal(t, "a,b,c", l.Triclinic().CBOpInpBest.AsABC())

	cp := l.Supergroup()
	assert.True(t, strings.HasPrefix(cp.Bravais, "c"), cp.Bravais)
	require.NotNil(t, cp.Result)
	assert.True(t, cp.Recommended)
	assert.Less(t, cp.Result.RMSD, .2)
	assert.Equal(t, xslattice.Cubic, cp.System)
	uc, err := cp.Result.RefinedCrystal.UnitCell()
	require.NoError(t, err)
	p := uc.Parameters()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 10, p[i], .1)
		assert.InDelta(t, 90, p[i+3], 1e-9)
	}

	tri := l.Triclinic()
	require.NotNil(t, tri.Result)
	assert.True(t, tri.Recommended)
	assert.Less(t, tri.Result.RMSD, .2)
	for i := 0; i < n; i++ {
		s := l.At(i)
		require.NotNil(t, s.Result, s.Bravais)
		assert.True(t, s.Recommended, s.Bravais)
		assert.LessOrEqual(t, s.Result.NMatches, table.Len())
		assert.Len(t, s.Result.CC, len(s.SpaceGroup.Rotations))
	}
}

// perturbedStill returns the cubic still with the crystal in P 1, its
// cell stretched and its orientation rotated away from the truth.
func perturbedStill(t *testing.T) (xsbin.ExperimentList, *xsbin.Table) {
	expts, table := cubicStill(t)
	uc := xscell.MustParameters([6]float64{10.05, 10.05, 10.05, 90, 90, 90})
	u := xscell.RotX(.002).Mul(xscell.RotZ(-.001)).Mul(expts[0].Crystal.U)
	c, err := xscell.NewCrystal(uc, u, xscell.P1())
	require.NoError(t, err)
	expts[0].Crystal = c
	return expts, table
}

func TestPerturbedStill(t *testing.T) {
	expts, table := perturbedStill(t)
	l, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(0), nil, nil)
	require.NoError(t, err)
	require.Equal(t, 22, l.Len())

	// positions carry .05 mm of noise on each axis
	tri := l.Triclinic()
	require.NotNil(t, tri.Result)
	assert.InDelta(t, .05*math.Sqrt2, tri.Result.RMSD, .03)
	uc, err := tri.Result.RefinedCrystal.UnitCell()
	require.NoError(t, err)
	p := uc.Parameters()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 10, p[i], .03)
		assert.InDelta(t, 90, p[i+3], .3)
	}
	for i := 0; i < l.Len(); i++ {
		s := l.At(i)
		require.NotNil(t, s.Result, s.Bravais)
		assert.Less(t, s.Result.RMSD, 1.5*tri.Result.RMSD, s.Bravais)
		assert.True(t, s.Recommended, s.Bravais)
	}
}

// refineCall is what an engine was asked to do.
type refineCall struct {
	algorithm string
	tukey     float64
	rows      int
}

// spyEngine records its calls and refines with the default engine.
type spyEngine struct {
	mu    sync.Mutex
	calls []refineCall
}

func (e *spyEngine) Refine(p xsrefine.Params, tab *xsbin.Table, ex xsbin.ExperimentList, log *slog.Logger) (*xsrefine.Refinery, error) {
	e.mu.Lock()
	e.calls = append(e.calls, refineCall{p.Outlier.Algorithm, p.Outlier.TukeyIQRMultiplier, tab.Len()})
	e.mu.Unlock()
	return xsrefine.Refine(p, tab, ex, log)
}

func TestRefineSubgroupPasses(t *testing.T) {
	expts, table := cubicStill(t)
	l, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(1), nil, nil)
	require.NoError(t, err)
	cp := l.Supergroup()
	p := params(1)
	p.Refinement.Outlier.Algorithm = xsrefine.OutlierTukey

	// no reflection used before: loose Tukey against all, then configured
	spy := &spyEngine{}
	_, err = xsbravais.RefineSubgroup(cp, table, expts, p, spy, nil)
	require.NoError(t, err)
	assert.Equal(t, []refineCall{
		{xsrefine.OutlierTukey, 3, table.Len()},
		{xsrefine.OutlierTukey, 1.5, table.Len()},
	}, spy.calls)

	// reflections of the triclinic refinement: no rejection against those
	used := table.Copy()
	for i := range used.Rows {
		if i%2 == 0 {
			used.Rows[i].Flags |= xsbin.UsedInRefinement
		}
	}
	nUsed := xsbin.Count(used.Flagged(xsbin.UsedInRefinement))
	spy = &spyEngine{}
	r, err := xsbravais.RefineSubgroup(cp, used, expts, p, spy, nil)
	require.NoError(t, err)
	require.NotNil(t, r.Result)
	assert.Equal(t, []refineCall{
		{xsrefine.OutlierNull, 1.5, nUsed},
		{xsrefine.OutlierTukey, 1.5, used.Len()},
	}, spy.calls)
	// the table passed in is not modified
	assert.Equal(t, nUsed, xsbin.Count(used.Flagged(xsbin.UsedInRefinement)))
	assert.Zero(t, xsbin.Count(table.Flagged(xsbin.UsedInRefinement)))
}

func TestNProcDeterminism(t *testing.T) {
	expts, table := cubicStill(t)
	l1, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(1), nil, nil)
	require.NoError(t, err)
	l4, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(4), nil, nil)
	require.NoError(t, err)
	require.Equal(t, l1.Len(), l4.Len())
	for i := 0; i < l1.Len(); i++ {
		s1, s4 := l1.At(i), l4.At(i)
		assert.Equal(t, s1.SettingNumber, s4.SettingNumber)
		assert.Equal(t, s1.Bravais, s4.Bravais)
		require.NotNil(t, s1.Result)
		require.NotNil(t, s4.Result)
		assert.Equal(t, s1.Result.RMSD, s4.Result.RMSD, s1.Bravais)
		assert.Equal(t, s1.Result.NMatches, s4.Result.NMatches)
		assert.Equal(t, s1.Result.RefinedCrystal.A(), s4.Result.RefinedCrystal.A())
		assert.Equal(t, s1.Recommended, s4.Recommended)
	}
}

func TestDegenerateCandidates(t *testing.T) {
	expts, table := cubicStill(t)
	engine := xsbravais.EngineFunc(func(p xsrefine.Params, tab *xsbin.Table, ex xsbin.ExperimentList, log *slog.Logger) (*xsrefine.Refinery, error) {
		if ex[0].Crystal.SpaceGroup.Number != 1 {
			return nil, fmt.Errorf("step: %w", xscell.ErrSingularG0)
		}
		return xsrefine.Refine(p, tab, ex, log)
	})
	l, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(3), engine, nil)
	require.NoError(t, err)
	for i := 0; i < l.Len()-1; i++ {
		s := l.At(i)
		assert.Nil(t, s.Result, s.Bravais)
		assert.False(t, s.Recommended, s.Bravais)
	}
	assert.NotNil(t, l.Triclinic().Result)
	assert.True(t, l.Triclinic().Recommended)

	d, err := l.AsDict()
	require.NoError(t, err)
	assert.Nil(t, d[l.Len()].RMSD)
	assert.Nil(t, d[l.Len()].NSpots)
	assert.NotNil(t, d[1].RMSD)
	s := l.String()
	assert.Contains(t, s, "-/-")
}

func TestEngineError(t *testing.T) {
	expts, table := cubicStill(t)
	errBoom := errors.New("boom")
	engine := xsbravais.EngineFunc(func(xsrefine.Params, *xsbin.Table, xsbin.ExperimentList, *slog.Logger) (*xsrefine.Refinery, error) {
		return nil, errBoom
	})
	for _, nproc := range []int{1, 4} {
		_, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, params(nproc), engine, nil)
		assert.ErrorIs(t, err, errBoom)
	}
}

func TestNotIdentity(t *testing.T) {
	uc := xscell.MustParameters([6]float64{12, 10, 8, 90, 90, 90})
	c, err := xscell.NewCrystal(uc, xscell.Identity3(), xscell.P1())
	require.NoError(t, err)
	expts := xsbin.ExperimentList{{
		Beam:     xsbin.Beam{Wavelength: 1},
		Detector: xsbin.Detector{Distance: 100},
		Crystal:  c,
	}}
	_, err = xsbravais.RefinedSettingsFromRefinedTriclinic(expts, &xsbin.Table{}, params(1), nil, nil)
	assert.ErrorIs(t, err, xsbravais.ErrNotIdentity)
}

func setting(n int, bravais string, delta, rmsd float64, minCC *float64) *xsbravais.Setting {
	return &xsbravais.Setting{
		Subgroup: xslattice.Subgroup{
			Bravais:              bravais,
			BestCell:             xscell.MustParameters([6]float64{10, 10, 10, 90, 90, 90}),
			MaxAngularDifference: unit.AngleFromDeg(delta),
			CBOpInpBest:          xscell.IdentityOp(),
		},
		SettingNumber: n,
		Result:        &xsbravais.Result{RMSD: rmsd, MinCC: minCC},
	}
}

func ptr(f float64) *float64 { return &f }

func TestIdentifyLikelySolutions(t *testing.T) {
	for _, tc := range []struct {
		name      string
		delta     float64
		minCC     *float64
		threshold float64 // rmsd ratio above which the setting is excluded
	}{
		{"small delta no cc", .2, nil, 1.5},
		{"small delta weak cc", .2, ptr(.4), 1.5},
		{"small delta strong cc", .2, ptr(.6), -1},
		{"large delta no cc", 2, nil, 2},
		{"large delta weak cc", 2, ptr(.6), 2},
		{"large delta strong cc", 2, ptr(.9), 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			excluded := false
			for r := 1.; r < 4; r += .01 {
				tri := setting(1, "aP", 0, 1, nil)
				s := setting(2, "mP", tc.delta, r, tc.minCC)
				l := xsbravais.NewSettingsList([]*xsbravais.Setting{s, tri})
				require.NoError(t, xsbravais.IdentifyLikelySolutions(l))
				assert.True(t, tri.Recommended)
				if excluded {
					require.False(t, s.Recommended, "ratio %.2f", r)
					continue
				}
				if !s.Recommended {
					excluded = true
					assert.Greater(t, r, tc.threshold)
					assert.Less(t, r, tc.threshold+.02)
				}
			}
			assert.Equal(t, tc.threshold > 0, excluded)
		})
	}
}

func TestIdentifyLikelySolutionsInvariant(t *testing.T) {
	l := xsbravais.NewSettingsList([]*xsbravais.Setting{
		setting(1, "mP", 0, 1, nil),
		setting(2, "aP", 0, 1, nil),
	})
	assert.ErrorIs(t, xsbravais.IdentifyLikelySolutions(l), xsbravais.ErrSettingNumber)

	tri := setting(1, "aP", 0, 1, nil)
	tri.Result = nil
	s := setting(2, "mP", 0, 1, nil)
	l = xsbravais.NewSettingsList([]*xsbravais.Setting{s, tri})
	require.NoError(t, xsbravais.IdentifyLikelySolutions(l))
	assert.False(t, s.Recommended)
	assert.False(t, tri.Recommended)
}

func TestReport(t *testing.T) {
	cp := setting(2, "cP", 0, .061, ptr(.912))
	cp.Result.MaxCC = ptr(.987)
	cp.Result.NMatches = 321
	cp.Result.CC = []float64{1, .912, .987}
	cp.Result.CCNRefs = []int{300, 20, 30}
	cp.Recommended = true
	tri := setting(1, "aP", 0, .06, nil)
	tri.Result.NMatches = 330
	tri.Recommended = true
	l := xsbravais.NewSettingsList([]*xsbravais.Setting{cp, tri})

	s := l.String()
	lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Metric fit")
	assert.Contains(t, lines[1], "*")
	assert.Contains(t, lines[1], "0.912/0.987")
	assert.Contains(t, lines[1], "0.061")
	assert.Contains(t, lines[1], "321")
	assert.Contains(t, lines[2], "-/-")
	assert.Contains(t, lines[2], "a,b,c")
	assert.Equal(t, "* = recommended solution", lines[3])

	b, err := json.Marshal(l)
	require.NoError(t, err)
	var d map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &d))
	require.Len(t, d, 2)
	assert.Equal(t, "cP", d["2"]["bravais"])
	assert.Equal(t, .912, d["2"]["min_cc"])
	assert.Equal(t, .987, d["2"]["max_cc"])
	assert.Equal(t, true, d["2"]["recommended"])
	assert.Equal(t, []any{1., .912, .987}, d["2"]["correlation_coefficients"])
	assert.Equal(t, "a,b,c", d["1"]["cb_op"])
	assert.Nil(t, d["1"]["min_cc"])
	assert.Equal(t, []any{}, d["1"]["correlation_coefficients"])
	assert.Equal(t, 330., d["1"]["nspots"])
}
