// Public domain.

// Package xsres estimates the resolution limit of a data set from
// merging statistics.
//
// A statistic is tabulated per resolution shell against d*², a smooth
// curve is fitted and the limit is where the fitted curve crosses a
// threshold.  The curve used depends on the statistic: tanh for CC1/2 and
// CCref, a polynomial in log(1/y) for Rmerge, a polynomial in log(y) for
// the I/σ statistics and a polynomial for completeness.
package xsres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"

	"github.com/xtalsym/xtalsym/internal/xsfit"
	"github.com/xtalsym/xtalsym/internal/xsmerge"
)

// ErrEmptyBins is returned when no shell is left to fit.
var ErrEmptyBins = errors.New("no reflections left for fitting")

// degree of the polynomial fits, also the IQR multiplier of the tanh fit
const modelDegree = 6

// Models by fit.
var (
	PolynomialModel xsfit.Model = func(x, y []float64) ([]float64, error) {
		return xsfit.PolynomialFit(x, y, modelDegree)
	}
	LogModel xsfit.Model = func(x, y []float64) ([]float64, error) {
		return xsfit.LogFit(x, y, modelDegree)
	}
	LogInvModel xsfit.Model = func(x, y []float64) ([]float64, error) {
		return xsfit.LogInvFit(x, y, modelDegree)
	}
	TanhModel xsfit.Model = func(x, y []float64) ([]float64, error) {
		return xsfit.TanhFit(x, y, modelDegree)
	}
)

// Result is the outcome of estimating one limit.  DStarSq, YObs and YFit
// are the shells fitted, from high to low resolution.
type Result struct {
	DStarSq []float64
	YObs    []float64
	YFit    []float64
	DMin    float64 // Angstrom
	// CriticalValues are the CC1/2 significance thresholds of the fitted
	// shells, nil for other metrics.
	CriticalValues []float64
}

// ResolutionFit fits model to the shells selected by sel, nil for all,
// and with positive y.  The limit is where the fit crosses limit.  If no
// observation is at or below limit the limit is the highest resolution
// shell.  If the fit does not cross limit it is the lowest resolution
// shell.
func ResolutionFit(dStarSq, yObs []float64, model xsfit.Model, limit float64, sel []bool, log *slog.Logger) (*Result, error) {
	r, _, err := resolutionFit(dStarSq, yObs, model, limit, sel, log)
	return r, err
}

// resolutionFit also returns the selection used.
func resolutionFit(dStarSq, yObs []float64, model xsfit.Model, limit float64, sel []bool, log *slog.Logger) (*Result, []bool, error) {
	if log == nil {
		log = discard()
	}
	if len(dStarSq) != len(yObs) || sel != nil && len(sel) != len(yObs) {
		return nil, nil, errors.New("shell values differ in length")
	}
	use := make([]bool, len(yObs))
	var x, y []float64
	for i, v := range yObs {
		if (sel == nil || sel[i]) && v > 0 {
			use[i] = true
			x = append(x, dStarSq[i])
			y = append(y, v)
		}
	}
	if len(y) == 0 {
		return nil, nil, ErrEmptyBins
	}
	yFit, err := model(x, y)
	if err != nil {
		return nil, nil, fmt.Errorf("fitting shells: %w", err)
	}
	if log.Enabled(context.Background(), slog.LevelDebug) {
		log.Debug("shell fit\n" + fitTable(x, y, yFit))
	}

	r := &Result{DStarSq: x, YObs: y, YFit: yFit}
	if floats.Min(y) > limit {
		r.DMin = 1 / math.Sqrt(floats.Max(x))
		return r, use, nil
	}
	s, err := xsfit.InterpolateValue(x, yFit, limit)
	if err != nil {
		log.Debug("interpolating limit", "err", err)
		r.DMin = 1 / math.Sqrt(floats.Min(x))
		return r, use, nil
	}
	r.DMin = 1 / math.Sqrt(s)
	return r, use, nil
}

func fitTable(x, y, yFit []float64) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "d*2\td\tobs\tfit\t")
	for i := range x {
		fmt.Fprintf(w, "%.4f\t%.2f\t%.4f\t%.4f\t\n", x[i], 1/math.Sqrt(x[i]), y[i], yFit[i])
	}
	w.Flush()
	return b.String()
}

// shells returns d*² at the high resolution edge of each bin of st and
// the value of f, high resolution first.
func shells(st *xsmerge.Stats, f func(*xsmerge.Bin) float64) (dStarSq, y []float64) {
	n := len(st.Bins)
	dStarSq = make([]float64, n)
	y = make([]float64, n)
	for i := range st.Bins {
		b := &st.Bins[n-1-i]
		dStarSq[i] = 1 / (b.DMin * b.DMin)
		y[i] = f(b)
	}
	return
}

// value returns the accessor of the per bin statistic of m.  CCRef has
// none, being computed against a reference.
func value(m Metric) (func(*xsmerge.Bin) float64, error) {
	switch m {
	case CCHalf:
		return func(b *xsmerge.Bin) float64 { return b.CCHalf }, nil
	case ISigma:
		return func(b *xsmerge.Bin) float64 { return b.UnmergedIOverSigmaMean }, nil
	case MISigma:
		return func(b *xsmerge.Bin) float64 { return b.IOverSigmaMean }, nil
	case IMeanOverSigmaMean:
		return func(b *xsmerge.Bin) float64 { return b.IMeanOverSigmaMean }, nil
	case RMerge:
		return func(b *xsmerge.Bin) float64 { return b.RMerge }, nil
	case Completeness:
		return func(b *xsmerge.Bin) float64 { return b.Completeness }, nil
	}
	return nil, fmt.Errorf("no per shell value for %s", m)
}

// FitFromMergingStats fits the shells of st for metric m.
func FitFromMergingStats(st *xsmerge.Stats, m Metric, model xsfit.Model, limit float64, sel []bool, log *slog.Logger) (*Result, error) {
	f, err := value(m)
	if err != nil {
		return nil, err
	}
	x, y := shells(st, f)
	return ResolutionFit(x, y, model, limit, sel, log)
}

// ResolutionCCHalf fits CC1/2 over the shells where it is significant.
// method selects the half dataset or sigma-tau statistic.
func ResolutionCCHalf(st *xsmerge.Stats, limit float64, method string, model xsfit.Model, log *slog.Logger) (*Result, error) {
	cc := func(b *xsmerge.Bin) float64 { return b.CCHalf }
	sig := func(b *xsmerge.Bin) bool { return b.CCHalfSignificance }
	crit := func(b *xsmerge.Bin) float64 { return b.CCHalfCriticalValue }
	if method == SigmaTau {
		cc = func(b *xsmerge.Bin) float64 { return b.CCHalfSigmaTau }
		sig = func(b *xsmerge.Bin) bool { return b.CCHalfSigmaTauSignificance }
		crit = func(b *xsmerge.Bin) float64 { return b.CCHalfSigmaTauCriticalValue }
	}
	x, y := shells(st, cc)
	_, cv := shells(st, crit)
	n := len(st.Bins)
	sel := make([]bool, n)
	for i := range sel {
		sel[i] = sig(&st.Bins[n-1-i])
	}
	r, use, err := resolutionFit(x, y, model, limit, sel, log)
	if err != nil {
		return nil, err
	}
	for i, u := range use {
		if u {
			r.CriticalValues = append(r.CriticalValues, cv[i])
		}
	}
	return r, nil
}
