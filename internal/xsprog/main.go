// Public domain.

// Package xsprog implements the xtalsym command.
package xsprog

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"

	"github.com/xtalsym/xtalsym/internal/xsbin"
)

const versionString = "xtalsym version 0.1 Go source."
const copyrightString = "Public domain."

// Main runs the command line in os.Args.  Errors are fatal.
func Main() {
	defer exit.Handler()
	if err := NewCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		exit.Log(err)
	}
}

// options are the flags shared by all commands.
type options struct {
	config  string
	verbose bool
}

// NewCommand returns the root command writing results to stdout and
// logging to stderr.
func NewCommand(stdout, stderr io.Writer) *cobra.Command {
	o := new(options)
	root := &cobra.Command{
		Use:   "xtalsym",
		Short: "Lattice symmetry and resolution limits of diffraction data",
		Long: `xtalsym determines the Bravais lattice of an indexed still shot and
estimates resolution limits of unmerged intensities.

Parameters come from built in defaults, then the YAML file given with
--config, then command line flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	pf := root.PersistentFlags()
	pf.StringVarP(&o.config, "config", "c", "", "YAML configuration file")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "log debugging detail")
	root.AddCommand(
		bravaisCommand(o),
		resolutionCommand(o),
		simulateCommand(o),
		versionCommand(),
	)
	return root
}

// load returns the configuration of cmd and a logger to its error stream.
func (o *options) load(cmd *cobra.Command, ov overlay) (*Config, *slog.Logger, error) {
	c := DefaultConfig()
	if o.config != "" {
		if err := c.readFile(o.config); err != nil {
			return nil, nil, err
		}
	}
	if err := ov.apply(cmd, c); err != nil {
		return nil, nil, err
	}
	return c, newLogger(cmd.ErrOrStderr(), o.verbose), nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// files returns the experiment and reflection file names from args,
// defaulting to the standard names.
func files(args []string) (efn, rfn string) {
	efn, rfn = xsbin.Efn, xsbin.Rfn
	if len(args) > 0 {
		efn = args[0]
	}
	if len(args) > 1 {
		rfn = args[1]
	}
	return
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version and copyright",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
		},
	}
}
