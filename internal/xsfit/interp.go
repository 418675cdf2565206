// Public domain.

package xsfit

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ErrNoCrossing is returned by InterpolateValue when the target is not
// attained by the samples.
var ErrNoCrossing = errors.New("no crossing")

// InterpolateValue returns x such that y(x) = t by linear interpolation
// between samples.  Samples are scanned in index order and the first
// crossing found is returned, so for non-monotonic y it is the crossing of
// lowest index.  A sample equal to t returns its own x.
func InterpolateValue(x, y []float64, t float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.New("x and y differ in length")
	}
	if len(y) == 0 {
		return 0, ErrNoCrossing
	}
	lo, hi := y[0], y[0]
	for _, v := range y[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if t > hi || t < lo {
		return 0, fmt.Errorf("%w: t outside of [%f, %f]", ErrNoCrossing, lo, hi)
	}
	for j := range x {
		if y[j] == t {
			return x[j], nil
		}
		if j+1 < len(x) && (y[j]-t)*(y[j+1]-t) < 0 {
			return x[j] + (t-y[j])*(x[j+1]-x[j])/(y[j+1]-y[j]), nil
		}
	}
	return 0, ErrNoCrossing
}

// FiveNumberSummary returns the minimum, lower quartile, median, upper
// quartile and maximum of x.  x is not modified.
func FiveNumberSummary(x []float64) (min, q1, med, q3, max float64) {
	if len(x) == 0 {
		nan := math.NaN()
		return nan, nan, nan, nan, nan
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	q := func(p float64) float64 { return stat.Quantile(p, stat.Empirical, s, nil) }
	return s[0], q(.25), q(.5), q(.75), s[len(s)-1]
}
