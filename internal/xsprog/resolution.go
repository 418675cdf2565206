// Public domain.

package xsprog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xsmerge"
	"github.com/xtalsym/xtalsym/internal/xsres"
)

// observations returns the rows of t as unmerged observations.
func observations(t *xsbin.Table) ([]xsmerge.Observation, error) {
	if !t.HasIntensities {
		return nil, errors.New("reflections have no intensities")
	}
	obs := make([]xsmerge.Observation, len(t.Rows))
	for i := range t.Rows {
		r := &t.Rows[i]
		obs[i] = xsmerge.Observation{Miller: r.Miller, Intensity: r.Intensity, Sigma: r.Sigma()}
	}
	return obs, nil
}

func flagName(m xsres.Metric) string {
	return strings.ReplaceAll(m.String(), "_", "-")
}

func resolutionCommand(o *options) *cobra.Command {
	var (
		refFile, plotFile string
		limits            = make(map[xsres.Metric]*float64)
		p                 xsres.Params
	)
	ov := overlay{
		"nbins":               func(c *Config) error { c.Resolution.NBins = p.NBins; return nil },
		"reflections-per-bin": func(c *Config) error { c.Resolution.ReflectionsPerBin = p.ReflectionsPerBin; return nil },
		"binning":             func(c *Config) error { c.Resolution.BinningMethod = p.BinningMethod; return nil },
		"anomalous":           func(c *Config) error { c.Resolution.Anomalous = p.Anomalous; return nil },
		"space-group":         func(c *Config) error { c.Resolution.SpaceGroup = p.SpaceGroup; return nil },
		"cc-half-method":      func(c *Config) error { c.Resolution.CCHalfMethod = p.CCHalfMethod; return nil },
		"cc-half-fit":         func(c *Config) error { c.Resolution.CCHalfFit = p.CCHalfFit; return nil },
		"seed":                func(c *Config) error { c.Resolution.Seed = p.Seed; return nil },
		"cc-half-significance-level": func(c *Config) error {
			c.Resolution.CCHalfSignificanceLevel = p.CCHalfSignificanceLevel
			return nil
		},
	}
	cmd := &cobra.Command{
		Use:   "resolution [experiments] [reflections]",
		Short: "Estimate resolution limits of unmerged intensities",
		Long: `Resolution merges the intensities under the space group of the first
experiment and reports, for each statistic with a limit, the resolution at
which a curve fitted to the statistic in resolution shells crosses the
limit.  A limit of 0 leaves the statistic out.  CCref needs --reference.`,
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
			if len(expts) == 0 {
				return fmt.Errorf("%s: no experiments", efn)
			}
			uc, err := expts[0].Crystal.UnitCell()
			if err != nil {
				return err
			}
			table, err := xsbin.ReadFile(rfn)
			if err != nil {
				return err
			}
			obs, err := observations(table)
			if err != nil {
				return fmt.Errorf("%s: %w", rfn, err)
			}
			var ref []xsmerge.Observation
			if refFile != "" {
				t, err := xsbin.ReadFile(refFile)
				if err != nil {
					return err
				}
				if ref, err = observations(t); err != nil {
					return fmt.Errorf("%s: %w", refFile, err)
				}
			}
			e, err := xsres.NewEstimator(obs, uc, expts[0].Crystal.SpaceGroup, c.Resolution, ref, log)
			if err != nil {
				return err
			}
			es, err := e.Auto()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "metric\tlimit\td_min")
			for _, est := range es {
				fmt.Fprintf(w, "%s\t%g\t%.2f\n", est.Metric, *c.Resolution.Limit(est.Metric), est.Result.DMin)
			}
			w.Flush()
			if plotFile != "" {
				b, err := json.Marshal(xsres.Plots(es))
				if err != nil {
					return err
				}
				return os.WriteFile(plotFile, b, 0o644)
			}
			return nil
		},
	}
	f := cmd.Flags()
	for _, m := range xsres.Metrics {
		m := m
		limits[m] = f.Float64(flagName(m), 0, fmt.Sprintf("%s limit, 0 to leave out", m))
		ov[flagName(m)] = func(c *Config) error {
			v := *limits[m]
			c.Resolution.SetLimit(m, &v)
			return nil
		}
	}
	f.StringVar(&refFile, "reference", "", "reflection file of a reference data set for cc_ref")
	f.StringVar(&plotFile, "plot-json", "", "write plots of the fits as JSON to this file")
	f.IntVar(&p.NBins, "nbins", 0, "number of resolution shells")
	f.IntVar(&p.ReflectionsPerBin, "reflections-per-bin", 0, "fewest unique reflections in a shell")
	f.StringVar(&p.BinningMethod, "binning", "", "counting_sorted or volume")
	f.BoolVar(&p.Anomalous, "anomalous", false, "keep Friedel mates apart")
	f.StringVar(&p.SpaceGroup, "space-group", "", "merge under this space group instead")
	f.StringVar(&p.CCHalfMethod, "cc-half-method", "", "half_dataset or sigma_tau")
	f.StringVar(&p.CCHalfFit, "cc-half-fit", "", "tanh or polynomial")
	f.Float64Var(&p.CCHalfSignificanceLevel, "cc-half-significance-level", 0, "significance level of CC1/2")
	f.Uint64Var(&p.Seed, "seed", 0, "seed of the random half dataset split")
	return cmd
}
