// Public domain.

package xsmerge

import (
	"sort"

	"github.com/xtalsym/xtalsym/internal/xscell"
)

// SymopCorrelations returns, for each rotation, the correlation of I/σ
// between reflections and their images under the rotation, Friedel mates
// included, and the number of pairs it is based on.  Repeated
// observations of an index are averaged first.  With nBins > 1 the
// reflections are divided into resolution shells of equal counts and the
// correlation is the pair-weighted mean of the shell correlations.
func SymopCorrelations(obs []Observation, uc xscell.UnitCell, rotations []xscell.IMat3, nBins int) (cc []float64, nRefs []int) {
	type acc struct {
		sum float64
		n   int
	}
	m := map[[3]int]*acc{}
	var hs [][3]int
	for _, o := range obs {
		if !(o.Sigma > 0) {
			continue
		}
		a := m[o.Miller]
		if a == nil {
			a = &acc{}
			m[o.Miller] = a
			hs = append(hs, o.Miller)
		}
		a.sum += o.Intensity / o.Sigma
		a.n++
	}
	sort.SliceStable(hs, func(i, j int) bool { return uc.DStarSq(hs[i]) < uc.DStarSq(hs[j]) })
	if nBins < 1 {
		nBins = 1
	}
	if nBins > len(hs) {
		nBins = len(hs)
	}
	val := func(h [3]int) (float64, bool) {
		if a := m[h]; a != nil {
			return a.sum / float64(a.n), true
		}
		if a := m[[3]int{-h[0], -h[1], -h[2]}]; a != nil {
			return a.sum / float64(a.n), true
		}
		return 0, false
	}
	cc = make([]float64, len(rotations))
	nRefs = make([]int, len(rotations))
	for i, r := range rotations {
		rt := r.T()
		var wsum, wn float64
		for b := 0; b < nBins; b++ {
			var x, y []float64
			for _, h := range hs[b*len(hs)/nBins : (b+1)*len(hs)/nBins] {
				v, _ := val(h)
				if w, ok := val(rt.MulVec(h)); ok {
					x = append(x, v)
					y = append(y, w)
				}
			}
			nRefs[i] += len(x)
			if len(x) > 1 {
				wsum += float64(len(x)) * correlation(x, y)
				wn += float64(len(x))
			}
		}
		if wn > 0 {
			cc[i] = wsum / wn
		}
	}
	return cc, nRefs
}

// CCRef returns per bin of st the correlation of merged intensities with
// those of a reference set merged under the same symmetry.
func CCRef(st *Stats, reference []Merged) []float64 {
	ref := make(map[[3]int]float64, len(reference))
	for _, r := range reference {
		ref[r.Miller] = r.Intensity
	}
	cc := make([]float64, len(st.Bins))
	for b := range st.Bins {
		var x, y []float64
		for _, m := range st.Bins[b].merged {
			if r, ok := ref[m.Miller]; ok {
				x = append(x, m.Intensity)
				y = append(y, r)
			}
		}
		cc[b] = correlation(x, y)
	}
	return cc
}
