// Public domain.

package xsbravais

import (
	"github.com/xtalsym/xtalsym/internal/xslattice"
	"github.com/xtalsym/xtalsym/internal/xsrefine"
)

// Params controls lattice symmetry determination.
type Params struct {
	// LepageMaxDelta is the largest deviation from exact twofold symmetry
	// tolerated, degrees.
	LepageMaxDelta float64 `yaml:"lepage_max_delta"`
	// NProc is the number of candidates refined at once, 0 for the number
	// of processors available.
	NProc int `yaml:"nproc"`
	// CCNBins is the number of resolution bins for symmetry operator
	// correlation coefficients, 0 for none.
	CCNBins int `yaml:"cc_n_bins"`
	// BestMonoclinicBeta allows I2 for centred monoclinic lattices when
	// it gives the less oblique cell.  Otherwise C2 is always used.
	BestMonoclinicBeta bool            `yaml:"best_monoclinic_beta"`
	Refinement         xsrefine.Params `yaml:"refinement"`
}

// DefaultParams returns the parameters used when none are configured.
func DefaultParams() Params {
	return Params{
		LepageMaxDelta:     5,
		BestMonoclinicBeta: true,
		Refinement:         xsrefine.DefaultParams(),
	}
}

func (p *Params) setting() xslattice.Setting {
	if p.BestMonoclinicBeta {
		return xslattice.Best
	}
	return xslattice.Reference
}
