// Public domain.

package xsbin

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
)

// Efn, the default experiment file name.
const Efn = "xtalsym.expt"

// Beam is a monochromatic beam travelling along +z.
type Beam struct {
	Wavelength float64 // Angstrom
}

// Detector is a flat detector normal to the beam.
type Detector struct {
	Distance float64 // mm
}

// Experiment is one still shot: beam, detector and the crystal in it.
type Experiment struct {
	Beam     Beam
	Detector Detector
	Crystal  *xscell.Crystal
}

// ExperimentList is a sequence of experiments sharing a reflection table.
type ExperimentList []Experiment

// Copy returns a deep copy, crystals included.
func (l ExperimentList) Copy() ExperimentList {
	c := make(ExperimentList, len(l))
	for i, e := range l {
		c[i] = e
		if e.Crystal != nil {
			c[i].Crystal = e.Crystal.Copy()
		}
	}
	return c
}

type experimentDoc struct {
	Format      string           `yaml:"format"`
	Experiments []experimentYAML `yaml:"experiments"`
}

type experimentYAML struct {
	Wavelength float64     `yaml:"wavelength"`
	Distance   float64     `yaml:"distance"`
	SpaceGroup string      `yaml:"space_group"`
	UnitCell   []float64   `yaml:"unit_cell,flow"`
	U          [][]float64 `yaml:"u,flow"`
}

const experimentFormat = "xtalsym experiments 1"

// ReadExperiments reads an experiment list written by WriteExperiments.
func ReadExperiments(fn string) (ExperimentList, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	var doc experimentDoc
	if err = yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if doc.Format != experimentFormat {
		return nil, fmt.Errorf("%s: %w", fn, errors.New("not an experiment file"))
	}
	l := make(ExperimentList, len(doc.Experiments))
	for i, y := range doc.Experiments {
		if l[i], err = y.experiment(); err != nil {
			return nil, fmt.Errorf("%s: experiment %d: %w", fn, i, err)
		}
	}
	return l, nil
}

func (y experimentYAML) experiment() (e Experiment, err error) {
	if !(y.Wavelength > 0) || !(y.Distance > 0) {
		return e, errors.New("wavelength and distance must be positive")
	}
	if len(y.UnitCell) != 6 {
		return e, errors.New("unit_cell needs six parameters")
	}
	if len(y.U) != 3 {
		return e, errors.New("u must be 3x3")
	}
	var u xscell.Mat3
	for i, r := range y.U {
		if len(r) != 3 {
			return e, errors.New("u must be 3x3")
		}
		copy(u[i][:], r)
	}
	sym := y.SpaceGroup
	if sym == "" {
		sym = "P 1"
	}
	sg, err := xslattice.SpaceGroupOf(sym)
	if err != nil {
		return e, err
	}
	uc, err := xscell.FromParameters([6]float64(y.UnitCell))
	if err != nil {
		return e, err
	}
	c, err := xscell.NewCrystal(uc, u, sg)
	if err != nil {
		return e, err
	}
	return Experiment{
		Beam:     Beam{Wavelength: y.Wavelength},
		Detector: Detector{Distance: y.Distance},
		Crystal:  c,
	}, nil
}

// WriteExperiments writes l to file fn as YAML.
func WriteExperiments(fn string, l ExperimentList) error {
	doc := experimentDoc{Format: experimentFormat}
	for i, e := range l {
		if e.Crystal == nil {
			return fmt.Errorf("experiment %d has no crystal", i)
		}
		uc, err := e.Crystal.UnitCell()
		if err != nil {
			return fmt.Errorf("experiment %d: %w", i, err)
		}
		p := uc.Parameters()
		y := experimentYAML{
			Wavelength: e.Beam.Wavelength,
			Distance:   e.Detector.Distance,
			SpaceGroup: e.Crystal.SpaceGroup.Symbol,
			UnitCell:   p[:],
		}
		for _, r := range e.Crystal.U {
			y.U = append(y.U, append([]float64(nil), r[:]...))
		}
		doc.Experiments = append(doc.Experiments, y)
	}
	b, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	return os.WriteFile(fn, b, 0o644)
}
