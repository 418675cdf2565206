// Public domain.

package xsmerge

import (
	"errors"
	"fmt"
	"math"
	"sort"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// Binning methods.
const (
	CountingSorted = "counting_sorted"
	Volume         = "volume"
)

// Options controls merging statistics.
type Options struct {
	NBins             int
	ReflectionsPerBin int
	Binning           string
	Anomalous         bool
	SignificanceLevel float64 // of the one sided CC1/2 t-test
	Seed              uint64  // for the random half dataset split
}

// DefaultOptions returns options matching the resolution estimator
// defaults.
func DefaultOptions() Options {
	return Options{
		NBins:             100,
		ReflectionsPerBin: 10,
		Binning:           CountingSorted,
		SignificanceLevel: .1,
	}
}

// ErrNoObservations is returned when there is nothing to merge.
var ErrNoObservations = errors.New("no observations to merge")

// Bin holds merging statistics of a resolution shell.
type Bin struct {
	DMin, DMax   float64
	NObs         int
	NUnique      int
	NPossible    int
	Completeness float64
	Multiplicity float64

	CCHalf                      float64
	CCHalfSignificance          bool
	CCHalfCriticalValue         float64
	CCHalfSigmaTau              float64
	CCHalfSigmaTauSignificance  bool
	CCHalfSigmaTauCriticalValue float64

	RMerge                 float64
	IOverSigmaMean         float64 // merged
	UnmergedIOverSigmaMean float64
	IMeanOverSigmaMean     float64

	merged []Merged
}

// Merged returns the unique reflections of the bin.
func (b *Bin) Merged() []Merged { return b.merged }

// Stats holds per shell and overall statistics.  Bins run from low to
// high resolution, that is by decreasing DMin.
type Stats struct {
	Bins    []Bin
	Overall Bin
}

// Compute merges obs under sg and computes statistics in resolution
// shells.
func Compute(obs []Observation, uc xscell.UnitCell, sg xscell.SpaceGroup, opt Options) (*Stats, error) {
	sym := SymmetryOf(sg, opt.Anomalous)
	m := Merge(obs, sym)
	if len(m) == 0 {
		return nil, ErrNoObservations
	}
	ds := make([]float64, len(m))
	for i := range m {
		ds[i] = uc.DStarSq(m[i].Miller)
	}
	order := make([]int, len(m))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return ds[order[i]] < ds[order[j]] })

	edges, err := binEdges(ds, order, opt)
	if err != nil {
		return nil, err
	}
	rnd := xrand.New(&xrand.PCGSource{})
	rnd.Seed(opt.Seed)

	last := edges[len(edges)-1]
	var pds []float64
	for _, h := range Possible(uc, sym, dOf(last)*(1-1e-9), 0) {
		pds = append(pds, uc.DStarSq(h))
	}
	sort.Float64s(pds)
	// possible reflections with lo < d*² <= hi
	possible := func(lo, hi float64) int {
		return sort.Search(len(pds), func(i int) bool { return pds[i] > hi }) -
			sort.Search(len(pds), func(i int) bool { return pds[i] > lo })
	}

	st := &Stats{Bins: make([]Bin, len(edges)-1)}
	k := 0
	for b := range st.Bins {
		lo, hi := edges[b], edges[b+1]
		var sel []Merged
		for ; k < len(order) && (ds[order[k]] <= hi || b == len(st.Bins)-1); k++ {
			sel = append(sel, m[order[k]])
		}
		st.Bins[b] = binStats(sel, dOf(lo), dOf(hi), possible(lo, hi), opt, rnd)
	}
	st.Overall = binStats(m, dOf(edges[0]), dOf(last), possible(edges[0], last), opt, rnd)
	return st, nil
}

func dOf(dStarSq float64) float64 {
	if dStarSq <= 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(dStarSq)
}

// binEdges returns d*² bin edges, first at or below the lowest resolution
// reflection and last at the highest.
func binEdges(ds []float64, order []int, opt Options) ([]float64, error) {
	n := len(order)
	nb := opt.NBins
	if opt.ReflectionsPerBin > 0 && n/opt.ReflectionsPerBin < nb {
		nb = n / opt.ReflectionsPerBin
	}
	if nb < 1 {
		nb = 1
	}
	lo, hi := ds[order[0]], ds[order[n-1]]
	edges := make([]float64, nb+1)
	switch opt.Binning {
	case CountingSorted, "":
		// edges fall between reflections, as equal counts as ties allow
		edges[0] = lo * (1 - 1e-9)
		for b := 1; b < nb; b++ {
			edges[b] = ds[order[b*n/nb-1]]
		}
	case Volume:
		// equal shells in d*³
		l3 := math.Pow(lo, 1.5)
		h3 := math.Pow(hi, 1.5)
		edges[0] = lo * (1 - 1e-9)
		for b := 1; b < nb; b++ {
			edges[b] = math.Pow(l3+(h3-l3)*float64(b)/float64(nb), 2./3)
		}
	default:
		return nil, fmt.Errorf("unknown binning method %q", opt.Binning)
	}
	edges[nb] = hi
	return edges, nil
}

func binStats(sel []Merged, dMax, dMin float64, nPossible int, opt Options, rnd *xrand.Rand) Bin {
	b := Bin{DMin: dMin, DMax: dMax, NUnique: len(sel), NPossible: nPossible, merged: sel}
	if b.NPossible > 0 {
		b.Completeness = float64(b.NUnique) / float64(b.NPossible)
	}
	var sumIS, sumMIS, sumI, sumSig float64
	var rNum, rDen float64
	var h1, h2, means []float64
	var eps float64
	nEps := 0
	for _, m := range sel {
		b.NObs += len(m.Obs)
		sumMIS += m.Intensity / m.Sigma
		sumI += m.Intensity
		sumSig += m.Sigma
		mean := 0.
		for _, o := range m.Obs {
			sumIS += o.Intensity / o.Sigma
			mean += o.Intensity
		}
		n := len(m.Obs)
		mean /= float64(n)
		if n < 2 {
			continue
		}
		vals := make([]float64, n)
		for i, o := range m.Obs {
			vals[i] = o.Intensity
			rNum += math.Abs(o.Intensity - mean)
			rDen += o.Intensity
		}
		p := rnd.Perm(n)
		var a, c float64
		for i, j := range p {
			if i < n/2 {
				a += vals[j]
			} else {
				c += vals[j]
			}
		}
		h1 = append(h1, a/float64(n/2))
		h2 = append(h2, c/float64(n-n/2))
		means = append(means, mean)
		eps += stat.Variance(vals, nil) / float64(n)
		nEps++
	}
	if b.NUnique > 0 {
		b.Multiplicity = float64(b.NObs) / float64(b.NUnique)
		b.IOverSigmaMean = sumMIS / float64(b.NUnique)
		if sumSig > 0 {
			b.IMeanOverSigmaMean = sumI / sumSig
		}
	}
	if b.NObs > 0 {
		b.UnmergedIOverSigmaMean = sumIS / float64(b.NObs)
	}
	if rDen != 0 {
		b.RMerge = rNum / rDen
	}
	if len(h1) > 1 {
		b.CCHalf = correlation(h1, h2)
	}
	if nEps > 1 {
		eps /= float64(nEps)
		vy := stat.Variance(means, nil)
		if vy+eps > 0 {
			b.CCHalfSigmaTau = (vy - eps) / (vy + eps)
		}
	}
	b.CCHalfCriticalValue, b.CCHalfSignificance =
		significance(b.CCHalf, len(h1), opt.SignificanceLevel)
	b.CCHalfSigmaTauCriticalValue, b.CCHalfSigmaTauSignificance =
		significance(b.CCHalfSigmaTau, len(means), opt.SignificanceLevel)
	return b
}

// significance is the one sided test of a correlation coefficient from n
// pairs against zero.
func significance(cc float64, n int, alpha float64) (crit float64, sig bool) {
	if n <= 2 || alpha <= 0 || alpha >= 1 {
		return math.NaN(), false
	}
	nu := float64(n - 2)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nu}.Quantile(1 - alpha)
	crit = t / math.Sqrt(nu+t*t)
	return crit, cc > crit
}

// correlation is the Pearson coefficient, zero when undefined.
func correlation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	c := stat.Correlation(x, y, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}
