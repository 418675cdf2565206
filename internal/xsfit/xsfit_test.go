// Public domain.

package xsfit_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalsym/xtalsym/internal/xsfit"
)

func ExampleInterpolateValue() {
	x := []float64{0, 1, 2, 3}
	y := []float64{1, .75, .25, 0}
	v, err := xsfit.InterpolateValue(x, y, .5)
	fmt.Println(v, err)
	_, err = xsfit.InterpolateValue(x, y, 2)
	fmt.Println(errors.Is(err, xsfit.ErrNoCrossing))
	// Output:
	// 1.5 <nil>
	// true
}

func hundredths() []float64 {
	x := make([]float64, 100)
	for i := range x {
		x[i] = float64(i) * .01
	}
	return x
}

func TestPolynomialFit(t *testing.T) {
	var x, y []float64
	for i := -50; i < 50; i++ {
		v := float64(i)
		x = append(x, v)
		y = append(y, 2+3*v+5*v*v)
	}
	f, err := xsfit.PolynomialFit(x, y, 2)
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i], f[i], 1e-8)
	}
	// more parameters than points
	f, err = xsfit.PolynomialFit([]float64{1, 2}, []float64{3, 5}, 6)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 5}, f, 1e-12)

	_, err = xsfit.PolynomialFit(nil, nil, 2)
	assert.ErrorIs(t, err, xsfit.ErrNoData)
}

func TestLogFit(t *testing.T) {
	x := hundredths()
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = math.Exp(1) + math.Exp(2*v)
	}
	f, err := xsfit.LogFit(x, y, 2)
	require.NoError(t, err)
	for i := range y {
		assert.InEpsilon(t, y[i], f[i], 1e-2)
	}
	_, err = xsfit.LogFit([]float64{1}, []float64{0}, 2)
	assert.Error(t, err)
}

func TestLogInvFit(t *testing.T) {
	x := hundredths()
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 1/math.Exp(1) + 1/math.Exp(2*v)
	}
	f, err := xsfit.LogInvFit(x, y, 2)
	require.NoError(t, err)
	for i := range y {
		assert.InEpsilon(t, y[i], f[i], 1e-2)
	}
}

func TestTanhFit(t *testing.T) {
	x := hundredths()
	y := xsfit.TanhCurve{R: .5, F: 1.5}.EvalAll(x)
	f, err := xsfit.TanhFit(x, y, 0)
	require.NoError(t, err)
	for i := range y {
		assert.InDelta(t, y[i], f[i], 1e-5)
	}
}

func TestTanhFitOutlier(t *testing.T) {
	var x []float64
	for i := 0; i < 40; i++ {
		x = append(x, float64(i)*.025)
	}
	want := xsfit.TanhCurve{R: .6, F: .15}
	y := want.EvalAll(x)
	y[5] = 0 // a wild point
	c, err := xsfit.FitTanh(x, y)
	require.NoError(t, err)
	f, err := xsfit.TanhFit(x, y, 6)
	require.NoError(t, err)
	clean := want.EvalAll(x)
	// rejecting the point brings the fit back onto the curve
	assert.InDelta(t, clean[10], f[10], 1e-4)
	assert.Greater(t, math.Abs(c.Eval(x[10])-clean[10]), math.Abs(f[10]-clean[10]))
}

func TestInterpolateValue(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{.9, .7, .5, .2}
	for _, tc := range []struct {
		name string
		t    float64
		want float64
	}{
		{"first endpoint", .9, 1},
		{"last endpoint", .2, 4},
		{"sample", .5, 3},
		{"between", .6, 2.5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := xsfit.InterpolateValue(x, y, tc.t)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
	for _, v := range []float64{.95, .1} {
		_, err := xsfit.InterpolateValue(x, y, v)
		assert.ErrorIs(t, err, xsfit.ErrNoCrossing)
	}
	// non-monotonic: the crossing of lowest index wins
	got, err := xsfit.InterpolateValue([]float64{0, 1, 2, 3}, []float64{1, 0, 1, 0}, .5)
	require.NoError(t, err)
	assert.Equal(t, .5, got)
}

func TestFiveNumberSummary(t *testing.T) {
	x := []float64{7, 1, 5, 3, 9, 2, 8, 4, 6}
	min, q1, med, q3, max := xsfit.FiveNumberSummary(x)
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 3.0, q1)
	assert.Equal(t, 5.0, med)
	assert.Equal(t, 7.0, q3)
	assert.Equal(t, 9.0, max)
	assert.Equal(t, 7.0, x[0], "input reordered")
}
