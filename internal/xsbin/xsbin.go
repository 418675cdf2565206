// Public domain.

// Package xsbin defines the reflection table shared by the xtalsym
// packages and the binary file holding it.
package xsbin

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// Rfn, the default reflection file name.
const Rfn = "xtalsym.refl"

// format tag written at the head of reflection files
const fileFormat = "xtalsym reflections 1"

// Flag marks the processing state of a reflection.
type Flag uint32

const (
	Indexed Flag = 1 << iota
	UsedInRefinement
	Outlier
)

// Reflection is one observed diffraction spot.  Positions are millimetres
// on the detector, intensities are in arbitrary units.
type Reflection struct {
	Miller     [3]int
	XObs, YObs float64
	Intensity  float64
	Variance   float64
	Flags      Flag
}

// Sigma returns the standard deviation of the intensity.
func (r *Reflection) Sigma() float64 { return math.Sqrt(r.Variance) }

// Table holds reflections.  HasIntensities reports whether the intensity
// columns carry data.
type Table struct {
	Rows           []Reflection
	HasIntensities bool
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Copy returns a deep copy.
func (t *Table) Copy() *Table {
	return &Table{
		Rows:           append([]Reflection(nil), t.Rows...),
		HasIntensities: t.HasIntensities,
	}
}

// Select returns a new table of the rows where sel is true.
func (t *Table) Select(sel []bool) *Table {
	n := &Table{HasIntensities: t.HasIntensities}
	for i, s := range sel {
		if s {
			n.Rows = append(n.Rows, t.Rows[i])
		}
	}
	return n
}

// Flagged returns a selection of the rows with all of the flags f set.
func (t *Table) Flagged(f Flag) []bool {
	sel := make([]bool, len(t.Rows))
	for i := range t.Rows {
		sel[i] = t.Rows[i].Flags&f == f
	}
	return sel
}

// Count returns the number of true values in sel.
func Count(sel []bool) (n int) {
	for _, s := range sel {
		if s {
			n++
		}
	}
	return
}

// Reindex transforms all Miller indices into the basis of op.
func (t *Table) Reindex(op xscell.ChangeOfBasisOp) {
	for i := range t.Rows {
		t.Rows[i].Miller = op.ApplyMiller(t.Rows[i].Miller)
	}
}

// ReadFile reads a reflection table written by WriteFile.
func ReadFile(fn string) (*Table, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec := gob.NewDecoder(f)
	var format string
	if err = dec.Decode(&format); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	if format != fileFormat {
		return nil, fmt.Errorf("%s: %w", fn, errors.New("not a reflection file"))
	}
	var t Table
	if err = dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return &t, nil
}

// WriteFile writes t to file fn.
func WriteFile(fn string, t *Table) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	enc := gob.NewEncoder(f)
	if err = enc.Encode(fileFormat); err == nil {
		err = enc.Encode(t)
	}
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	return err
}
