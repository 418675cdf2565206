// Public domain.

package xsprog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xtalsym/xtalsym/internal/xsbravais"
	"github.com/xtalsym/xtalsym/internal/xsres"
	"github.com/xtalsym/xtalsym/internal/xssim"
)

// Config holds the parameters of all commands.  Defaults are set first,
// a configuration file overlays them and command line flags come last.
type Config struct {
	Bravais    xsbravais.Params     `yaml:"bravais"`
	Resolution xsres.Params         `yaml:"resolution"`
	Still      xssim.StillParams    `yaml:"still"`
	Unmerged   xssim.UnmergedParams `yaml:"unmerged"`
}

// DefaultConfig returns the configuration used without a file or flags.
func DefaultConfig() *Config {
	return &Config{
		Bravais:    xsbravais.DefaultParams(),
		Resolution: xsres.DefaultParams(),
		Still:      xssim.DefaultStillParams(),
		Unmerged:   xssim.DefaultUnmergedParams(),
	}
}

// readFile overlays the YAML file fn on c.  Keys absent from the file keep
// their values; unknown keys are an error.
func (c *Config) readFile(fn string) error {
	b, err := os.ReadFile(fn)
	if err != nil {
		return err
	}
	d := yaml.NewDecoder(bytes.NewReader(b))
	d.KnownFields(true)
	if err = d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", fn, err)
	}
	return nil
}

// overlay maps flag names to functions copying the flag value into a
// Config.  Only flags set on the command line are applied.
type overlay map[string]func(*Config) error

func (ov overlay) apply(cmd *cobra.Command, c *Config) error {
	fs := cmd.Flags()
	for name, set := range ov {
		if !fs.Changed(name) {
			continue
		}
		if err := set(c); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}

func cellParameters(v []float64) ([6]float64, error) {
	var p [6]float64
	if len(v) != 6 {
		return p, fmt.Errorf("want 6 unit cell parameters, got %d", len(v))
	}
	copy(p[:], v)
	return p, nil
}
