// Public domain.

package xsres

import (
	"fmt"

	"github.com/xtalsym/xtalsym/internal/xsmerge"
)

// Metric is a per shell statistic a resolution limit can be based on.
type Metric int

const (
	CCHalf Metric = iota
	CCRef
	ISigma  // unmerged <I/σ>
	MISigma // merged <I/σ>
	IMeanOverSigmaMean
	RMerge
	Completeness
)

var metricNames = [...]string{
	"cc_half",
	"cc_ref",
	"isigma",
	"misigma",
	"i_mean_over_sigma_mean",
	"rmerge",
	"completeness",
}

// Metrics lists all metrics in the order Auto considers them.
var Metrics = []Metric{CCHalf, CCRef, ISigma, MISigma, IMeanOverSigmaMean, RMerge, Completeness}

func (m Metric) String() string {
	if m < 0 || int(m) >= len(metricNames) {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

// ParseMetric returns the metric named s.
func ParseMetric(s string) (Metric, error) {
	for i, n := range metricNames {
		if n == s {
			return Metric(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric %q", s)
}

// label is the name used in the log line reporting a limit.
func (m Metric) label() string {
	switch m {
	case ISigma:
		return "I/sig"
	case MISigma:
		return "Mn(I/sig)"
	case IMeanOverSigmaMean:
		return "Mn(I)/Mn(sig)"
	}
	return m.String()
}

// CC1/2 methods and fits.
const (
	HalfDataset = "half_dataset"
	SigmaTau    = "sigma_tau"
	FitTanh     = "tanh"
	FitPoly     = "polynomial"
)

// Params configures resolution estimation.  A nil limit leaves the metric
// out of Auto.
type Params struct {
	RMerge             *float64 `yaml:"rmerge"`
	Completeness       *float64 `yaml:"completeness"`
	CCRef              *float64 `yaml:"cc_ref"`
	CCHalf             *float64 `yaml:"cc_half"`
	ISigma             *float64 `yaml:"isigma"`
	MISigma            *float64 `yaml:"misigma"`
	IMeanOverSigmaMean *float64 `yaml:"i_mean_over_sigma_mean"`

	CCHalfMethod            string  `yaml:"cc_half_method"`
	CCHalfSignificanceLevel float64 `yaml:"cc_half_significance_level"`
	CCHalfFit               string  `yaml:"cc_half_fit"`

	NBins             int    `yaml:"nbins"`
	ReflectionsPerBin int    `yaml:"reflections_per_bin"`
	BinningMethod     string `yaml:"binning_method"`
	Anomalous         bool   `yaml:"anomalous"`
	// SpaceGroup overrides the space group of the data when set.
	SpaceGroup string `yaml:"space_group"`
	// Seed for the random half dataset split.
	Seed uint64 `yaml:"seed"`
}

func limit(v float64) *float64 { return &v }

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		CCRef:                   limit(.1),
		CCHalf:                  limit(.3),
		ISigma:                  limit(.25),
		MISigma:                 limit(1),
		CCHalfMethod:            HalfDataset,
		CCHalfSignificanceLevel: .1,
		CCHalfFit:               FitTanh,
		NBins:                   100,
		ReflectionsPerBin:       10,
		BinningMethod:           xsmerge.CountingSorted,
	}
}

// Limit returns the configured limit of m, nil if unset.
func (p *Params) Limit(m Metric) *float64 {
	switch m {
	case CCHalf:
		return p.CCHalf
	case CCRef:
		return p.CCRef
	case ISigma:
		return p.ISigma
	case MISigma:
		return p.MISigma
	case IMeanOverSigmaMean:
		return p.IMeanOverSigmaMean
	case RMerge:
		return p.RMerge
	case Completeness:
		return p.Completeness
	}
	return nil
}

// SetLimit sets the limit of m, nil to unset.
func (p *Params) SetLimit(m Metric, v *float64) {
	switch m {
	case CCHalf:
		p.CCHalf = v
	case CCRef:
		p.CCRef = v
	case ISigma:
		p.ISigma = v
	case MISigma:
		p.MISigma = v
	case IMeanOverSigmaMean:
		p.IMeanOverSigmaMean = v
	case RMerge:
		p.RMerge = v
	case Completeness:
		p.Completeness = v
	}
}

func (p *Params) validate() error {
	switch p.CCHalfMethod {
	case HalfDataset, SigmaTau:
	default:
		return fmt.Errorf("unknown cc_half_method %q", p.CCHalfMethod)
	}
	switch p.CCHalfFit {
	case FitTanh, FitPoly:
	default:
		return fmt.Errorf("unknown cc_half_fit %q", p.CCHalfFit)
	}
	if p.CCHalfSignificanceLevel < 0 || p.CCHalfSignificanceLevel > 1 {
		return fmt.Errorf("cc_half_significance_level %g outside [0, 1]", p.CCHalfSignificanceLevel)
	}
	for _, m := range Metrics {
		if l := p.Limit(m); l != nil && *l < 0 {
			return fmt.Errorf("negative %s limit", m)
		}
	}
	return nil
}

func (p *Params) mergeOptions() xsmerge.Options {
	return xsmerge.Options{
		NBins:             p.NBins,
		ReflectionsPerBin: p.ReflectionsPerBin,
		Binning:           p.BinningMethod,
		Anomalous:         p.Anomalous,
		SignificanceLevel: p.CCHalfSignificanceLevel,
		Seed:              p.Seed,
	}
}
