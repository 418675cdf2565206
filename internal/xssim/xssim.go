// Public domain.

// Package xssim generates synthetic data: indexed still shots for lattice
// symmetry determination and unmerged intensity sets for resolution
// analysis.
package xssim

import (
	"math"

	"github.com/soniakeys/coord"
	xrand "golang.org/x/exp/rand"

	"github.com/xtalsym/xtalsym/internal/xsbin"
	"github.com/xtalsym/xtalsym/internal/xscell"
	"github.com/xtalsym/xtalsym/internal/xslattice"
	"github.com/xtalsym/xtalsym/internal/xsmerge"
)

// Rand is the random source used by the generators.  *xrand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	NormFloat64() float64
	Intn(int) int
}

// NewRand returns a generator seeded for repeatable output.
func NewRand(seed uint64) *xrand.Rand {
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(seed)
	return rnd
}

// StillParams describes a simulated still shot.
type StillParams struct {
	UnitCell      [6]float64 `yaml:"unit_cell,flow"`
	Wavelength    float64    `yaml:"wavelength"`     // Angstrom
	Distance      float64    `yaml:"distance"`       // mm
	DetectorSize  float64    `yaml:"detector_size"`  // half width, mm
	DMin          float64    `yaml:"d_min"`          // Angstrom
	Band          float64    `yaml:"band"`           // excitation error, 1/Angstrom
	PositionSigma float64    `yaml:"position_sigma"` // mm
	Seed          uint64     `yaml:"seed"`
}

// DefaultStillParams returns a 10 Angstrom cubic cell on a 100 mm
// detector.
func DefaultStillParams() StillParams {
	return StillParams{
		UnitCell:      [6]float64{10, 10, 10, 90, 90, 90},
		Wavelength:    1,
		Distance:      100,
		DetectorSize:  150,
		DMin:          1.2,
		Band:          .08,
		PositionSigma: .05,
		Seed:          1,
	}
}

// RandomRotation returns a rotation uniformly distributed over SO(3).
func RandomRotation(rnd Rand) xscell.Mat3 {
	// normalized gaussian quaternion
	var q [4]float64
	n := 0.
	for n < 1e-12 {
		n = 0
		for i := range q {
			q[i] = rnd.NormFloat64()
			n += q[i] * q[i]
		}
	}
	n = math.Sqrt(n)
	w, x, y, z := q[0]/n, q[1]/n, q[2]/n, q[3]/n
	return xscell.Mat3{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

// Still simulates one still shot of a randomly oriented crystal.  The
// crystal is reported in P 1 and the reflections are indexed.
// Intensities depend on resolution only, so they carry the full symmetry
// of the lattice.
func Still(p StillParams) (xsbin.ExperimentList, *xsbin.Table, error) {
	rnd := NewRand(p.Seed)
	uc, err := xscell.FromParameters(p.UnitCell)
	if err != nil {
		return nil, nil, err
	}
	c, err := xscell.NewCrystal(uc, RandomRotation(rnd), xscell.P1())
	if err != nil {
		return nil, nil, err
	}
	a := c.A()
	k := 1 / p.Wavelength
	s0 := coord.Cart{Z: k}
	t := &xsbin.Table{HasIntensities: true}
	forIndices(uc, p.DMin, func(h [3]int) {
		r := a.MulIVec(h)
		var s coord.Cart
		s.Add(&s0, &coord.Cart{X: r[0], Y: r[1], Z: r[2]})
		if s.Z <= 0 || math.Abs(math.Sqrt(s.Square())-k) > p.Band {
			return
		}
		x := p.Distance * s.X / s.Z
		y := p.Distance * s.Y / s.Z
		if math.Abs(x) > p.DetectorSize || math.Abs(y) > p.DetectorSize {
			return
		}
		i0 := metricIntensity(uc.DStarSq(h), p.Seed)
		v := i0 + 10
		t.Rows = append(t.Rows, xsbin.Reflection{
			Miller:    h,
			XObs:      x + p.PositionSigma*rnd.NormFloat64(),
			YObs:      y + p.PositionSigma*rnd.NormFloat64(),
			Intensity: i0 + math.Sqrt(v)*rnd.NormFloat64(),
			Variance:  v,
			Flags:     xsbin.Indexed,
		})
	})
	e := xsbin.Experiment{
		Beam:     xsbin.Beam{Wavelength: p.Wavelength},
		Detector: xsbin.Detector{Distance: p.Distance},
		Crystal:  c,
	}
	return xsbin.ExperimentList{e}, t, nil
}

// forIndices calls f for each non-zero h with d >= dMin, in a fixed order.
func forIndices(uc xscell.UnitCell, dMin float64, f func([3]int)) {
	a, b, c := uc.Lengths()
	lh, lk, ll := int(a/dMin), int(b/dMin), int(c/dMin)
	maxSq := 1 / (dMin * dMin)
	for h := -lh; h <= lh; h++ {
		for k := -lk; k <= lk; k++ {
			for l := -ll; l <= ll; l++ {
				m := [3]int{h, k, l}
				if m != [3]int{} && uc.DStarSq(m) <= maxSq {
					f(m)
				}
			}
		}
	}
}

// metricIntensity is a pseudo random intensity that is a function of d*²
// only, falling off with a B factor of 20.
func metricIntensity(dStarSq float64, seed uint64) float64 {
	key := uint64(math.Round(dStarSq * 1e6))
	return 1000 * math.Exp(-5*dStarSq) * (.2 + unitHash(key^seed*0x9e3779b97f4a7c15))
}

// unitHash maps x to [0,1) with the splitmix64 finalizer.
func unitHash(x uint64) float64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return float64(x>>11) / (1 << 53)
}

// UnmergedParams describes a simulated multi-image intensity data set.
type UnmergedParams struct {
	UnitCell     [6]float64 `yaml:"unit_cell,flow"`
	SpaceGroup   string     `yaml:"space_group"`
	DMin         float64    `yaml:"d_min"`
	Multiplicity int        `yaml:"multiplicity"`
	Scale        float64    `yaml:"scale"`
	BFactor      float64    `yaml:"b_factor"`
	Background   float64    `yaml:"background"` // variance added to every observation
	Seed         uint64     `yaml:"seed"`
}

// DefaultUnmergedParams returns a data set whose I/σ falls to about one
// at the edge.
func DefaultUnmergedParams() UnmergedParams {
	return UnmergedParams{
		UnitCell:     [6]float64{40, 40, 60, 90, 90, 90},
		SpaceGroup:   "P 4",
		DMin:         1.6,
		Multiplicity: 4,
		Scale:        1e4,
		BFactor:      30,
		Background:   200,
		Seed:         1,
	}
}

// Unmerged simulates unmerged observations of every reflection to DMin.
// Each observation is of a random symmetry equivalent.  Intensities follow
// Wilson statistics with an overall B factor.
func Unmerged(p UnmergedParams) ([]xsmerge.Observation, xscell.UnitCell, xscell.SpaceGroup, error) {
	uc, err := xscell.FromParameters(p.UnitCell)
	if err != nil {
		return nil, uc, xscell.SpaceGroup{}, err
	}
	sg, err := xslattice.SpaceGroupOf(p.SpaceGroup)
	if err != nil {
		return nil, uc, sg, err
	}
	rnd := NewRand(p.Seed)
	sym := xsmerge.SymmetryOf(sg, false)
	var obs []xsmerge.Observation
	for _, h := range xsmerge.Possible(uc, sym, p.DMin, 0) {
		s := uc.DStarSq(h)
		i0 := p.Scale * math.Exp(-p.BFactor*s/2) * -math.Log(1-rnd.Float64())
		sigma := math.Sqrt(i0 + p.Background)
		for k := 0; k < p.Multiplicity; k++ {
			e := sg.Rotations[rnd.Intn(len(sg.Rotations))].T().MulVec(h)
			if rnd.Intn(2) == 1 {
				e = [3]int{-e[0], -e[1], -e[2]}
			}
			obs = append(obs, xsmerge.Observation{
				Miller:    e,
				Intensity: i0 + sigma*rnd.NormFloat64(),
				Sigma:     sigma,
			})
		}
	}
	return obs, uc, sg, nil
}
