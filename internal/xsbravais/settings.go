// Public domain.

package xsbravais

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
)

// Result is the outcome of refining a candidate setting.
type Result struct {
	RMSD           float64 // mm
	NMatches       int
	RefinedCrystal *xscell.Crystal

	// Correlation coefficients of I/σ under each rotation of the space
	// group, identity first, and the number of pairs behind each.
	CC      []float64
	CCNRefs []int
	// MinCC and MaxCC are over non-identity rotations with more than ten
	// pairs, nil when there are none.
	MinCC, MaxCC *float64
}

// Setting is a candidate Bravais setting.
type Setting struct {
	xslattice.Subgroup
	// SettingNumber ranks the settings, 1 for triclinic.
	SettingNumber    int
	UnrefinedCrystal *xscell.Crystal
	// Result is nil before refinement and after a refinement that failed
	// on degenerate geometry.
	Result      *Result
	Recommended bool
}

// SettingsList holds candidate settings, highest symmetry first and
// triclinic last.
type SettingsList struct {
	settings []*Setting
}

// NewSettingsList returns a list of s in the order given.
func NewSettingsList(s []*Setting) *SettingsList {
	return &SettingsList{settings: s}
}

// Len returns the number of settings.
func (l *SettingsList) Len() int { return len(l.settings) }

// At returns setting i, 0 being the highest symmetry.
func (l *SettingsList) At(i int) *Setting { return l.settings[i] }

// Supergroup returns the highest symmetry setting.
func (l *SettingsList) Supergroup() *Setting { return l.settings[0] }

// Triclinic returns the triclinic setting.
func (l *SettingsList) Triclinic() *Setting { return l.settings[len(l.settings)-1] }

// SettingDict is the report of one setting.
type SettingDict struct {
	MaxAngularDifference    float64    `json:"max_angular_difference"`
	RMSD                    *float64   `json:"rmsd"`
	NSpots                  *int       `json:"nspots"`
	Bravais                 string     `json:"bravais"`
	UnitCell                [6]float64 `json:"unit_cell"`
	CBOp                    string     `json:"cb_op"`
	MaxCC                   *float64   `json:"max_cc"`
	MinCC                   *float64   `json:"min_cc"`
	CorrelationCoefficients []float64  `json:"correlation_coefficients"`
	CCNRefs                 []int      `json:"cc_nrefs"`
	Recommended             bool       `json:"recommended"`
}

// cell returns the refined cell, or the unrefined one if there is no
// refinement result.
func (s *Setting) cell() (xscell.UnitCell, error) {
	c := s.UnrefinedCrystal
	if s.Result != nil {
		c = s.Result.RefinedCrystal
	}
	if c == nil {
		return s.BestCell, nil
	}
	return c.UnitCell()
}

// AsDict returns the reports of all settings by setting number.
func (l *SettingsList) AsDict() (map[int]SettingDict, error) {
	d := make(map[int]SettingDict, len(l.settings))
	for _, s := range l.settings {
		uc, err := s.cell()
		if err != nil {
			return nil, err
		}
		sd := SettingDict{
			MaxAngularDifference:    s.AngularDeviation(),
			Bravais:                 s.Bravais,
			UnitCell:                uc.Parameters(),
			CBOp:                    s.CBOpInpBest.AsABC(),
			CorrelationCoefficients: []float64{},
			CCNRefs:                 []int{},
			Recommended:             s.Recommended,
		}
		if r := s.Result; r != nil {
			rmsd, n := r.RMSD, r.NMatches
			sd.RMSD = &rmsd
			sd.NSpots = &n
			sd.MinCC = r.MinCC
			sd.MaxCC = r.MaxCC
			if r.CC != nil {
				sd.CorrelationCoefficients = r.CC
				sd.CCNRefs = r.CCNRefs
			}
		}
		d[s.SettingNumber] = sd
	}
	return d, nil
}

// MarshalJSON encodes AsDict.
func (l *SettingsList) MarshalJSON() ([]byte, error) {
	d, err := l.AsDict()
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// String formats the list as a table, recommended settings starred.
func (l *SettingsList) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Solution\tMetric fit\trmsd\tmin/max cc\t#spots\tlattice\tunit_cell\tvolume\tcb_op\t")
	for _, s := range l.settings {
		status := ""
		if s.Recommended {
			status = "*"
		}
		rmsd, nspots, cc := "-", "-", "-/-"
		if r := s.Result; r != nil {
			rmsd = fmt.Sprintf("%5.3f", r.RMSD)
			nspots = fmt.Sprint(r.NMatches)
			if r.MinCC != nil && r.MaxCC != nil {
				cc = fmt.Sprintf("%.3f/%.3f", *r.MinCC, *r.MaxCC)
			}
		}
		cell, vol := "-", "-"
		if uc, err := s.cell(); err == nil {
			p := uc.Parameters()
			cell = fmt.Sprintf("%6.2f %6.2f %6.2f %6.2f %6.2f %6.2f",
				p[0], p[1], p[2], p[3], p[4], p[5])
			vol = fmt.Sprintf("%.0f", uc.Volume())
		}
		fmt.Fprintf(w, "%1s%7d\t%6.4f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			status, s.SettingNumber, s.AngularDeviation(), rmsd, cc, nspots,
			s.Bravais, cell, vol, s.CBOpInpBest.AsABC())
	}
	w.Flush()
	b.WriteString("* = recommended solution\n")
	return b.String()
}
