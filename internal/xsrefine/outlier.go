// Public domain.

package xsrefine

import "github.com/xtalsym/xtalsym/internal/xsfit"

// tukey returns a selection of residuals lying more than k interquartile
// ranges below the lower or above the upper quartile.
func tukey(r []float64, k float64) []bool {
	_, q1, _, q3, _ := xsfit.FiveNumberSummary(r)
	cut := k * (q3 - q1)
	out := make([]bool, len(r))
	for i, v := range r {
		out[i] = v < q1-cut || v > q3+cut
	}
	return out
}

// rejectOutliers flags as outliers reflections whose x or y residual is an
// outlier by tukey's rule.
func rejectOutliers(dx, dy []float64, k float64) []bool {
	ox := tukey(dx, k)
	oy := tukey(dy, k)
	for i := range ox {
		ox[i] = ox[i] || oy[i]
	}
	return ox
}
