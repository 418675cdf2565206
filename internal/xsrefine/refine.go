// Public domain.

// Package xsrefine refines a crystal model against the observed positions
// of reflections on a still shot.
//
// The beam travels along +z with wavelength λ, s0 = (0, 0, 1/λ).  The
// detector is a plane normal to the beam at distance D.  Reflection h is
// predicted along s = s0 + U·B·h, meeting the detector at
// (D·s.x/s.z, D·s.y/s.z).  Refined parameters are three small rotations
// applied to the starting orientation and the free components of the
// reciprocal metric for the lattice system of the crystal's space group.
package xsrefine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/soniakeys/coord"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
)

// ErrTooFewReflections is returned when fewer reflections remain than are
// needed to determine the parameters.
var ErrTooFewReflections = errors.New("too few reflections to refine")

// Refinery holds the outcome of a refinement.
type Refinery struct {
	experiments xsbin.ExperimentList
	table       *xsbin.Table
	rmsdX       float64
	rmsdY       float64
	nMatches    int
	nOutliers   int
	iterations  int
}

// Experiments returns the experiments with the refined crystal.
func (r *Refinery) Experiments() xsbin.ExperimentList { return r.experiments }

// RMSDs returns the root mean square x and y residuals, mm.
func (r *Refinery) RMSDs() (x, y float64) { return r.rmsdX, r.rmsdY }

// RMSD returns the positional RMSD combining both axes.
func (r *Refinery) RMSD() float64 { return math.Hypot(r.rmsdX, r.rmsdY) }

// NMatches returns the number of reflections refined against.
func (r *Refinery) NMatches() int { return r.nMatches }

// Outliers returns the number of reflections rejected as outliers.
func (r *Refinery) Outliers() int { return r.nOutliers }

// Iterations returns the number of refinement iterations done.
func (r *Refinery) Iterations() int { return r.iterations }

// Table returns the reflections with UsedInRefinement and Outlier flags
// set.
func (r *Refinery) Table() *xsbin.Table { return r.table }

// predictor predicts reflection positions for one experiment.
type predictor struct {
	s0       coord.Cart
	distance float64
}

func newPredictor(e xsbin.Experiment) predictor {
	return predictor{
		s0:       coord.Cart{Z: 1 / e.Beam.Wavelength},
		distance: e.Detector.Distance,
	}
}

// predict returns the detector position of h, false when the diffracted
// ray misses the detector plane.
func (pd *predictor) predict(a xscell.Mat3, h [3]int) (x, y float64, ok bool) {
	r := a.MulIVec(h)
	var s coord.Cart
	s.Add(&pd.s0, &coord.Cart{X: r[0], Y: r[1], Z: r[2]})
	if s.Z <= 0 {
		return 0, 0, false
	}
	return pd.distance * s.X / s.Z, pd.distance * s.Y / s.Z, true
}

// model maps refinement parameters to a setting matrix.
type model struct {
	u0     xscell.Mat3
	system xslattice.LatticeSystem
}

func (md *model) crystal(p []float64) (u, b xscell.Mat3, err error) {
	u = xscell.RotX(p[0]).Mul(xscell.RotY(p[1])).Mul(xscell.RotZ(p[2])).Mul(md.u0)
	b, err = xscell.BFromGstar(md.system.ExpandGstar(p[3:]))
	return
}

// Refine refines the crystal of the first experiment against the indexed
// reflections of table.  Neither argument is modified.
func Refine(params Params, table *xsbin.Table, expts xsbin.ExperimentList, log *slog.Logger) (*Refinery, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(expts) == 0 || expts[0].Crystal == nil {
		return nil, errors.New("no crystal to refine")
	}
	alg, err := params.Outlier.algorithm()
	if err != nil {
		return nil, err
	}
	expts = expts.Copy()
	cr := expts[0].Crystal
	system, err := xslattice.SystemOfNumber(cr.SpaceGroup.Number)
	if err != nil {
		return nil, err
	}
	md := model{u0: cr.U, system: system}
	p0 := append([]float64{0, 0, 0}, system.ReduceGstar(xscell.GstarOf(cr.B))...)
	// metric parameters share the scale of the diagonal of G*
	g0 := xscell.GstarOf(cr.B)
	gScale := math.Max(math.Abs(g0[0]), math.Max(math.Abs(g0[1]), math.Abs(g0[2])))
	scale := make([]float64, len(p0))
	for i := range scale {
		if scale[i] = 1; i >= 3 {
			scale[i] = gScale
		}
	}

	table = table.Copy()
	var use []int
	for i := range table.Rows {
		row := &table.Rows[i]
		row.Flags &^= xsbin.UsedInRefinement | xsbin.Outlier
		if row.Flags&xsbin.Indexed != 0 {
			use = append(use, i)
		}
	}
	pd := newPredictor(expts[0])
	resid := func(p []float64, use []int, dx, dy []float64) error {
		u, b, err := md.crystal(p)
		if err != nil {
			return err
		}
		a := u.Mul(b)
		for k, i := range use {
			row := &table.Rows[i]
			x, y, ok := pd.predict(a, row.Miller)
			if !ok {
				// far off the detector
				dx[k], dy[k] = pd.distance, pd.distance
				continue
			}
			dx[k], dy[k] = x-row.XObs, y-row.YObs
		}
		return nil
	}

	nOut := 0
	if alg == OutlierTukey && len(use) > 0 {
		dx := make([]float64, len(use))
		dy := make([]float64, len(use))
		if err := resid(p0, use, dx, dy); err != nil {
			return nil, fmt.Errorf("refining %s crystal: %w", system, err)
		}
		out := rejectOutliers(dx, dy, params.Outlier.TukeyIQRMultiplier)
		kept := use[:0]
		for k, i := range use {
			if out[k] {
				table.Rows[i].Flags |= xsbin.Outlier
				nOut++
			} else {
				kept = append(kept, i)
			}
		}
		use = kept
	}
	if 2*len(use) <= len(p0) {
		return nil, fmt.Errorf("%w: %d reflections for %d parameters",
			ErrTooFewReflections, len(use), len(p0))
	}
	if len(use) < 20 {
		log.Warn("few reflections in refinement", "n", len(use))
	}

	n := len(use)
	pr := lmProblem{
		f: func(p, r []float64) error {
			return resid(p, use, r[:n], r[n:])
		},
		m:       2 * n,
		scale:   scale,
		tol:     params.Tolerance,
		maxIter: params.MaxIterations,
	}
	res, err := levenbergMarquardt(pr, p0, log)
	if err != nil {
		return nil, fmt.Errorf("refining %s crystal: %w", system, err)
	}
	u, b, err := md.crystal(res.p)
	if err != nil {
		return nil, fmt.Errorf("refining %s crystal: %w", system, err)
	}
	cr.U, cr.B = u, b

	dx := make([]float64, n)
	dy := make([]float64, n)
	if err := resid(res.p, use, dx, dy); err != nil {
		return nil, err
	}
	for _, i := range use {
		table.Rows[i].Flags |= xsbin.UsedInRefinement
	}
	rf := &Refinery{
		experiments: expts,
		table:       table,
		rmsdX:       math.Sqrt(sumSq(dx) / float64(n)),
		rmsdY:       math.Sqrt(sumSq(dy) / float64(n)),
		nMatches:    n,
		nOutliers:   nOut,
		iterations:  res.iterations,
	}
	log.Info("refinement done", "system", system, "reflections", n,
		"outliers", nOut, "iterations", res.iterations, "rmsd", rf.RMSD())
	return rf, nil
}
