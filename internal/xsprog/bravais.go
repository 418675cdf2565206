// Public domain.

package xsprog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xsbravais"
)

func bravaisCommand(o *options) *cobra.Command {
	var (
		jsonFile    string
		settingsDir string
		nproc       int
		maxDelta    float64
		ccBins      int
		reference   bool
		outlier     string
	)
	ov := overlay{
		"nproc":            func(c *Config) error { c.Bravais.NProc = nproc; return nil },
		"lepage-max-delta": func(c *Config) error { c.Bravais.LepageMaxDelta = maxDelta; return nil },
		"cc-n-bins":        func(c *Config) error { c.Bravais.CCNBins = ccBins; return nil },
		"reference-monoclinic": func(c *Config) error {
			c.Bravais.BestMonoclinicBeta = !reference
			return nil
		},
		"outlier": func(c *Config) error { c.Bravais.Refinement.Outlier.Algorithm = outlier; return nil },
	}
	cmd := &cobra.Command{
		Use:   "bravais [experiments] [reflections]",
		Short: "Determine the lattice symmetry of an indexed still",
		Long: `Bravais enumerates the lattices compatible with the triclinic cell of the
experiment, refines the crystal in each and recommends the likely ones.

The crystal must be triclinic in its reduced setting.  Files default to
` + xsbin.Efn + ` and ` + xsbin.Rfn + ` in the current directory.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := o.load(cmd, ov)
			if err != nil {
				return err
			}
			efn, rfn := files(args)
			expts, err := xsbin.ReadExperiments(efn)
			if err != nil {
				return err
			}
			table, err := xsbin.ReadFile(rfn)
			if err != nil {
				return err
			}
			l, err := xsbravais.RefinedSettingsFromRefinedTriclinic(expts, table, c.Bravais, nil, log)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), l)
			if jsonFile != "" {
				b, err := json.MarshalIndent(l, "", "  ")
				if err != nil {
					return err
				}
				if err = os.WriteFile(jsonFile, b, 0o644); err != nil {
					return err
				}
			}
			if settingsDir != "" {
				return writeSettings(settingsDir, l, expts)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&jsonFile, "json", "", "write the settings as JSON to this file")
	f.StringVar(&settingsDir, "settings-dir", "", "write bravais_setting_N.expt files to this directory")
	f.IntVar(&nproc, "nproc", 0, "settings refined at once, 0 for all processors")
	f.Float64Var(&maxDelta, "lepage-max-delta", 0, "largest twofold deviation tolerated, degrees")
	f.IntVar(&ccBins, "cc-n-bins", 0, "resolution bins for symmetry operator correlations")
	f.BoolVar(&reference, "reference-monoclinic", false, "always use C2 for centred monoclinic lattices")
	f.StringVar(&outlier, "outlier", "", "outlier rejection: null, tukey or auto")
	return cmd
}

// writeSettings writes the refined crystal of each setting with the beam
// and detector of the first experiment.
func writeSettings(dir string, l *xsbravais.SettingsList, expts xsbin.ExperimentList) error {
	for i := 0; i < l.Len(); i++ {
		s := l.At(i)
		if s.Result == nil {
			continue
		}
		e := xsbin.ExperimentList{expts[0]}
		e[0].Crystal = s.Result.RefinedCrystal
		fn := filepath.Join(dir, fmt.Sprintf("bravais_setting_%d.expt", s.SettingNumber))
		if err := xsbin.WriteExperiments(fn, e); err != nil {
			return err
		}
	}
	return nil
}
