// Public domain.

// Package xsbravais determines the likely lattice symmetry of a crystal
// indexed and refined as triclinic.
//
// Every Bravais setting compatible with the triclinic cell is refined
// against the observed reflections, the refinements running concurrently.
// Settings are then recommended or not by comparing their RMSDs with the
// triclinic RMSD, taking into account how far the cell deviates from the
// symmetry and how well intensities agree under it.
package xsbravais

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/soniakeys/unit"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
	"github.com/xtalsym/xtalsym/internal/xsmerge"
	"github.com/xtalsym/xtalsym/internal/xsrefine"
)

// ErrNotIdentity is returned when the triclinic setting is not the input
// basis, meaning the input cell was not reduced.
var ErrNotIdentity = errors.New("triclinic setting is not a,b,c")

// Engine refines a crystal against reflections.
type Engine interface {
	Refine(params xsrefine.Params, table *xsbin.Table, expts xsbin.ExperimentList, log *slog.Logger) (*xsrefine.Refinery, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(xsrefine.Params, *xsbin.Table, xsbin.ExperimentList, *slog.Logger) (*xsrefine.Refinery, error)

// Refine calls f.
func (f EngineFunc) Refine(params xsrefine.Params, table *xsbin.Table, expts xsbin.ExperimentList, log *slog.Logger) (*xsrefine.Refinery, error) {
	return f(params, table, expts, log)
}

// DefaultEngine is the stills refinement of package xsrefine.
var DefaultEngine Engine = EngineFunc(xsrefine.Refine)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RefinedSettingsFromRefinedTriclinic enumerates the Bravais settings of
// the crystal of expts, refines each against table and marks the likely
// ones.  The crystal must be triclinic in a reduced setting.  A nil engine
// uses DefaultEngine.
func RefinedSettingsFromRefinedTriclinic(expts xsbin.ExperimentList, table *xsbin.Table, params Params, engine Engine, log *slog.Logger) (*SettingsList, error) {
	if log == nil {
		log = discard()
	}
	if engine == nil {
		engine = DefaultEngine
	}
	if params.NProc <= 0 {
		params.NProc = availableProcs()
	}
	if params.Refinement.Outlier.Algorithm == xsrefine.OutlierAuto {
		params.Refinement.Outlier.Algorithm = xsrefine.OutlierTukey
	}
	if len(expts) == 0 || expts[0].Crystal == nil {
		return nil, errors.New("no crystal")
	}
	crystal := expts[0].Crystal
	uc, err := crystal.UnitCell()
	if err != nil {
		return nil, err
	}
	subs, err := xslattice.MetricSubgroups(uc, unit.AngleFromDeg(params.LepageMaxDelta), params.setting())
	if err != nil {
		return nil, err
	}
	if op := subs[len(subs)-1].CBOpInpBest; !op.IsIdentity() {
		return nil, fmt.Errorf("%w: %s", ErrNotIdentity, op.AsABC())
	}
	settings := make([]*Setting, len(subs))
	for j, sub := range subs {
		c, err := xslattice.ConstrainOrientation(crystal, sub)
		if err != nil {
			return nil, fmt.Errorf("constraining to %s: %w", sub.Bravais, err)
		}
		settings[j] = &Setting{
			Subgroup:         sub,
			SettingNumber:    len(subs) - j,
			UnrefinedCrystal: c,
		}
	}
	log.Info("refining settings", "n", len(settings), "nproc", params.NProc)
	refined, err := refineAll(settings, table, expts, params, engine, log)
	if err != nil {
		return nil, err
	}
	l := NewSettingsList(refined)
	if err := IdentifyLikelySolutions(l); err != nil {
		return nil, err
	}
	return l, nil
}

// RefineSubgroup refines setting s against table, which is in the input
// basis.  s, table and expts are not modified; the refined setting is
// returned.  Refinement that fails on degenerate geometry leaves the
// result nil.  Other errors are returned.
func RefineSubgroup(s *Setting, table *xsbin.Table, expts xsbin.ExperimentList, params Params, engine Engine, log *slog.Logger) (*Setting, error) {
	if log == nil {
		log = discard()
	}
	ns := *s
	ns.Result = nil
	ns.Recommended = false

	table = table.Copy()
	table.Reindex(s.CBOpInpBest)
	expts = expts.Copy()
	for i := range expts {
		expts[i].Crystal = s.UnrefinedCrystal.Copy()
	}
	elog := slog.New(minLevel{log.Handler(), slog.LevelError})

	// The first pass refines against reflections used in the triclinic
	// refinement if known, otherwise against all with loose outlier
	// rejection.  The second refines against all with the configured
	// rejection.
	rp := params.Refinement
	sel := table.Flagged(xsbin.UsedInRefinement)
	if xsbin.Count(sel) == 0 {
		rp.Outlier.Algorithm = xsrefine.OutlierTukey
		rp.Outlier.TukeyIQRMultiplier *= 2
		for i := range sel {
			sel[i] = true
		}
	} else {
		rp.Outlier.Algorithm = xsrefine.OutlierNull
	}
	rf, err := engine.Refine(rp, table.Select(sel), expts, elog)
	if err == nil {
		rp.Outlier = params.Refinement.Outlier
		rf, err = engine.Refine(rp, table, rf.Experiments(), elog)
	}
	if err != nil {
		if xscell.IsDegenerate(err) {
			log.Debug("refinement failed", "setting", s.SettingNumber, "bravais", s.Bravais, "err", err)
			return &ns, nil
		}
		return nil, fmt.Errorf("refining setting %d %s: %w", s.SettingNumber, s.Bravais, err)
	}
	r := &Result{
		RMSD:           rf.RMSD(),
		NMatches:       rf.NMatches(),
		RefinedCrystal: rf.Experiments()[0].Crystal,
	}
	if table.HasIntensities {
		if err := symopCCs(r, table, params.CCNBins); err != nil {
			return nil, err
		}
	}
	ns.Result = r
	log.Debug("refined", "setting", s.SettingNumber, "bravais", s.Bravais, "rmsd", r.RMSD)
	return &ns, nil
}

// symopCCs fills the correlation coefficients of r from reflections with
// positive variance.
func symopCCs(r *Result, table *xsbin.Table, nBins int) error {
	var obs []xsmerge.Observation
	for _, row := range table.Rows {
		if row.Variance > 0 {
			obs = append(obs, xsmerge.Observation{
				Miller:    row.Miller,
				Intensity: row.Intensity,
				Sigma:     row.Sigma(),
			})
		}
	}
	uc, err := r.RefinedCrystal.UnitCell()
	if err != nil {
		return err
	}
	r.CC, r.CCNRefs = xsmerge.SymopCorrelations(obs, uc, r.RefinedCrystal.SpaceGroup.Rotations, nBins)
	// identity first
	var ccs []float64
	for i := 1; i < len(r.CCNRefs); i++ {
		if r.CCNRefs[i] > 10 {
			ccs = append(ccs, r.CC[i])
		}
	}
	if len(ccs) > 0 {
		lo, hi := ccs[0], ccs[0]
		for _, c := range ccs[1:] {
			lo = min(lo, c)
			hi = max(hi, c)
		}
		r.MinCC, r.MaxCC = &lo, &hi
	}
	return nil
}

// minLevel passes on records at or above min.
type minLevel struct {
	slog.Handler
	min slog.Level
}

func (h minLevel) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.min && h.Handler.Enabled(ctx, l)
}

func (h minLevel) WithAttrs(as []slog.Attr) slog.Handler {
	return minLevel{h.Handler.WithAttrs(as), h.min}
}

func (h minLevel) WithGroup(name string) slog.Handler {
	return minLevel{h.Handler.WithGroup(name), h.min}
}
