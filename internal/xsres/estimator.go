// Public domain.

package xsres

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xsfit"
	"github.com/xtalsym/xtalsym/internal/xslattice"
	"github.com/xtalsym/xtalsym/internal/xsmerge"
)

// ErrNoReference is returned for CCref without a reference data set.
var ErrNoReference = errors.New("no reference data set")

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Estimator estimates resolution limits of one data set.
type Estimator struct {
	params    Params
	stats     *xsmerge.Stats
	reference []xsmerge.Merged
	log       *slog.Logger
}

// NewEstimator computes merging statistics of obs.  reference, if not
// nil, is merged under the same symmetry for CCref.
func NewEstimator(obs []xsmerge.Observation, uc xscell.UnitCell, sg xscell.SpaceGroup, params Params, reference []xsmerge.Observation, log *slog.Logger) (*Estimator, error) {
	if log == nil {
		log = discard()
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	if params.SpaceGroup != "" {
		var err error
		if sg, err = xslattice.SpaceGroupOf(params.SpaceGroup); err != nil {
			return nil, err
		}
	}
	st, err := xsmerge.Compute(obs, uc, sg, params.mergeOptions())
	if err != nil {
		return nil, fmt.Errorf("merging statistics: %w", err)
	}
	e := &Estimator{params: params, stats: st, log: log}
	if reference != nil {
		e.reference = xsmerge.Merge(reference, xsmerge.SymmetryOf(sg, params.Anomalous))
	}
	log.Debug("merging statistics", "bins", len(st.Bins),
		"unique", st.Overall.NUnique, "observations", st.Overall.NObs)
	return e, nil
}

// Stats returns the merging statistics.
func (e *Estimator) Stats() *xsmerge.Stats { return e.stats }

// HasReference reports whether a reference data set was given.
func (e *Estimator) HasReference() bool { return e.reference != nil }

func (e *Estimator) ccModel() xsfit.Model {
	if e.params.CCHalfFit == FitPoly {
		return PolynomialModel
	}
	return TanhModel
}

// Resolution estimates the limit at which metric m crosses limit.
func (e *Estimator) Resolution(m Metric, limit float64) (*Result, error) {
	switch m {
	case CCHalf:
		return ResolutionCCHalf(e.stats, limit, e.params.CCHalfMethod, e.ccModel(), e.log)
	case CCRef:
		return e.resolutionCCRef(limit)
	}
	var model xsfit.Model
	switch m {
	case RMerge:
		model = LogInvModel
	case Completeness:
		model = PolynomialModel
	case ISigma, MISigma, IMeanOverSigmaMean:
		model = LogModel
	default:
		return nil, fmt.Errorf("unknown metric %s", m)
	}
	return FitFromMergingStats(e.stats, m, model, limit, nil, e.log)
}

// resolutionCCRef fits the per shell correlation with the reference.
func (e *Estimator) resolutionCCRef(limit float64) (*Result, error) {
	if e.reference == nil {
		return nil, ErrNoReference
	}
	cc := xsmerge.CCRef(e.stats, e.reference)
	n := len(cc)
	x, _ := shells(e.stats, func(*xsmerge.Bin) float64 { return 0 })
	y := make([]float64, n)
	for i := range y {
		y[i] = cc[n-1-i]
	}
	return ResolutionFit(x, y, e.ccModel(), limit, nil, e.log)
}

// Estimate is a limit found by Auto.
type Estimate struct {
	Metric Metric
	Result *Result
	Plot   Plot
}

// Auto estimates the limit of every metric with a limit configured,
// CCref only with a reference.  Limits are logged at Info level.
func (e *Estimator) Auto() ([]Estimate, error) {
	var es []Estimate
	for _, m := range Metrics {
		l := e.params.Limit(m)
		if l == nil || *l == 0 || m == CCRef && e.reference == nil {
			continue
		}
		r, err := e.Resolution(m, *l)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m, err)
		}
		name := m.label()
		e.log.Info(fmt.Sprintf("Resolution %s:%*.2f", name, 18-len(name), r.DMin))
		es = append(es, Estimate{m, r, PlotResult(m, r)})
	}
	return es, nil
}

// Plots returns the plots of es keyed by metric name.
func Plots(es []Estimate) map[string]Plot {
	d := make(map[string]Plot, len(es))
	for _, e := range es {
		d[e.Metric.String()] = e.Plot
	}
	return d
}
