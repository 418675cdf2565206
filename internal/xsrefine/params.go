// Public domain.

package xsrefine

import "fmt"

// Outlier rejection algorithms.
const (
	OutlierNull  = "null"
	OutlierTukey = "tukey"
	OutlierAuto  = "auto"
)

// OutlierParams selects outlier rejection done before refinement.
type OutlierParams struct {
	Algorithm          string  `yaml:"algorithm"`
	TukeyIQRMultiplier float64 `yaml:"tukey_iqr_multiplier"`
}

// Params controls a refinement run.
type Params struct {
	Outlier       OutlierParams `yaml:"outlier"`
	MaxIterations int           `yaml:"max_iterations"`
	Tolerance     float64       `yaml:"tolerance"`
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		Outlier: OutlierParams{
			Algorithm:          OutlierAuto,
			TukeyIQRMultiplier: 1.5,
		},
		MaxIterations: 100,
		Tolerance:     1e-10,
	}
}

// algorithm returns the concrete algorithm, auto resolved.
func (o OutlierParams) algorithm() (string, error) {
	switch o.Algorithm {
	case OutlierNull, OutlierTukey:
		return o.Algorithm, nil
	case OutlierAuto, "":
		return OutlierTukey, nil
	}
	return "", fmt.Errorf("unknown outlier algorithm %q", o.Algorithm)
}
