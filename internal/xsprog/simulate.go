// Public domain.

package xsprog

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xssim"
)

func simulateCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write synthetic data sets",
	}
	cmd.AddCommand(stillCommand(o), unmergedCommand(o))
	return cmd
}

func stillCommand(o *options) *cobra.Command {
	var (
		cell []float64
		p    xssim.StillParams
	)
	ov := overlay{
		"unit-cell": func(c *Config) (err error) {
			c.Still.UnitCell, err = cellParameters(cell)
			return
		},
		"d-min": func(c *Config) error { c.Still.DMin = p.DMin; return nil },
		"seed":  func(c *Config) error { c.Still.Seed = p.Seed; return nil },
	}
	cmd := &cobra.Command{
		Use:   "still [experiments] [reflections]",
		Short: "Simulate an indexed still shot",
		Long: `Still writes a randomly oriented crystal and the indexed spot positions of
reflections close to the Ewald sphere.  The crystal is written triclinic,
ready for bravais.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := o.load(cmd, ov)
			if err != nil {
				return err
			}
			expts, table, err := xssim.Still(c.Still)
			if err != nil {
				return err
			}
			efn, rfn := files(args)
			if err = xsbin.WriteExperiments(efn, expts); err != nil {
				return err
			}
			if err = xsbin.WriteFile(rfn, table); err != nil {
				return err
			}
			log.Info("simulated still", "reflections", table.Len(), "experiments", efn, "reflection_file", rfn)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64SliceVar(&cell, "unit-cell", nil, "a,b,c,alpha,beta,gamma")
	f.Float64Var(&p.DMin, "d-min", 0, "resolution limit, Angstrom")
	f.Uint64Var(&p.Seed, "seed", 0, "random seed")
	return cmd
}

func unmergedCommand(o *options) *cobra.Command {
	var (
		cell []float64
		p    xssim.UnmergedParams
	)
	ov := overlay{
		"unit-cell": func(c *Config) (err error) {
			c.Unmerged.UnitCell, err = cellParameters(cell)
			return
		},
		"space-group":  func(c *Config) error { c.Unmerged.SpaceGroup = p.SpaceGroup; return nil },
		"d-min":        func(c *Config) error { c.Unmerged.DMin = p.DMin; return nil },
		"multiplicity": func(c *Config) error { c.Unmerged.Multiplicity = p.Multiplicity; return nil },
		"b-factor":     func(c *Config) error { c.Unmerged.BFactor = p.BFactor; return nil },
		"seed":         func(c *Config) error { c.Unmerged.Seed = p.Seed; return nil },
	}
	cmd := &cobra.Command{
		Use:   "unmerged [experiments] [reflections]",
		Short: "Simulate unmerged intensities",
		Long: `Unmerged writes a crystal in the given space group and repeated
observations of every reflection to the resolution limit, with intensities
falling off by the B factor.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := o.load(cmd, ov)
			if err != nil {
				return err
			}
			obs, uc, sg, err := xssim.Unmerged(c.Unmerged)
			if err != nil {
				return err
			}
			crystal, err := xscell.NewCrystal(uc, xscell.Identity3(), sg)
			if err != nil {
				return err
			}
			table := &xsbin.Table{Rows: make([]xsbin.Reflection, len(obs)), HasIntensities: true}
			for i, ob := range obs {
				table.Rows[i] = xsbin.Reflection{
					Miller:    ob.Miller,
					Intensity: ob.Intensity,
					Variance:  ob.Sigma * ob.Sigma,
					Flags:     xsbin.Indexed,
				}
			}
			expts := xsbin.ExperimentList{{
				Beam:     xsbin.Beam{Wavelength: 1},
				Detector: xsbin.Detector{Distance: 100},
				Crystal:  crystal,
			}}
			efn, rfn := files(args)
			if err = xsbin.WriteExperiments(efn, expts); err != nil {
				return err
			}
			if err = xsbin.WriteFile(rfn, table); err != nil {
				return fmt.Errorf("writing %s: %w", rfn, err)
			}
			log.Info("simulated unmerged data", "observations", len(obs), "space_group", sg.Symbol)
			return nil
		},
	}
	f := cmd.Flags()
	f.Float64SliceVar(&cell, "unit-cell", nil, "a,b,c,alpha,beta,gamma")
	f.StringVar(&p.SpaceGroup, "space-group", "", "space group symbol")
	f.Float64Var(&p.DMin, "d-min", 0, "resolution limit, Angstrom")
	f.IntVar(&p.Multiplicity, "multiplicity", 0, "observations of each reflection")
	f.Float64Var(&p.BFactor, "b-factor", 0, "overall B factor, square Angstrom")
	f.Uint64Var(&p.Seed, "seed", 0, "random seed")
	return cmd
}
