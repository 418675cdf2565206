// Public domain.

package xsfit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// TanhCurve is the falling step y = (1 - tanh((x-R)/F)) / 2.  It falls
// through 1/2 at x = R with width F.
type TanhCurve struct {
	R, F float64
}

// Eval returns the curve value at x.
func (c TanhCurve) Eval(x float64) float64 {
	return .5 * (1 - math.Tanh((x-c.R)/c.F))
}

// EvalAll returns the curve values at each x.
func (c TanhCurve) EvalAll(x []float64) []float64 {
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = c.Eval(xi)
	}
	return y
}

// FitTanh returns the least squares TanhCurve through the points.
func FitTanh(x, y []float64) (TanhCurve, error) {
	if err := checkXY(x, y); err != nil {
		return TanhCurve{}, err
	}
	r0, f0 := tanhStart(x, y)
	// p[1] is log F, keeping the width positive.
	obj := func(p []float64) float64 {
		c := TanhCurve{p[0], math.Exp(p[1])}
		s := 0.
		for i, xi := range x {
			d := c.Eval(xi) - y[i]
			s += d * d
		}
		return s
	}
	grad := func(g, p []float64) {
		f := math.Exp(p[1])
		g[0], g[1] = 0, 0
		for i, xi := range x {
			z := (xi - p[0]) / f
			t := math.Tanh(z)
			d := .5*(1-t) - y[i]
			w := d * (1 - t*t)
			g[0] += w / f
			g[1] += w * z
		}
	}
	res, err := optimize.Minimize(optimize.Problem{Func: obj, Grad: grad},
		[]float64{r0, math.Log(f0)}, tanhSettings(), &optimize.LBFGS{})
	if res == nil {
		return TanhCurve{}, err
	}
	// A line search failure close to the minimum still leaves a usable X.
	c := TanhCurve{res.X[0], math.Exp(res.X[1])}
	if math.IsNaN(c.R) || math.IsNaN(c.F) || math.IsInf(c.F, 0) || c.F == 0 {
		if err == nil {
			err = errors.New("tanh fit diverged")
		}
		return TanhCurve{}, err
	}
	return c, nil
}

func tanhSettings() *optimize.Settings {
	return &optimize.Settings{
		GradientThreshold: 1e-14,
		MajorIterations:   1000,
		Converger:         &optimize.FunctionConverge{Absolute: 1e-16, Iterations: 50},
	}
}

// tanhStart takes a starting point from the straight line through the
// data, whose slope at the midpoint of the curve is -1/(2F).
func tanhStart(x, y []float64) (r, f float64) {
	c, s := scaling(x)
	if len(x) > 1 {
		alpha, beta := stat.LinearRegression(x, y, nil, false)
		if beta < 0 {
			r = (.5 - alpha) / beta
			f = -.5 / beta
			if r > c-2*s && r < c+2*s {
				return r, f
			}
		}
	}
	return c, s / 2
}

// TanhFit fits a TanhCurve and returns its values at x.  If iqrMultiplier
// is positive, points whose residuals lie more than iqrMultiplier
// interquartile ranges outside the quartiles are dropped and the curve is
// fitted once more.
func TanhFit(x, y []float64, iqrMultiplier float64) ([]float64, error) {
	c, err := FitTanh(x, y)
	if err != nil {
		return nil, err
	}
	if iqrMultiplier > 0 {
		fit := c.EvalAll(x)
		dy := make([]float64, len(y))
		for i := range y {
			dy[i] = y[i] - fit[i]
		}
		_, q1, _, q3, _ := FiveNumberSummary(dy)
		cut := iqrMultiplier * (q3 - q1)
		var xo, yo []float64
		for i, d := range dy {
			if d <= q3+cut && d >= q1-cut {
				xo = append(xo, x[i])
				yo = append(yo, y[i])
			}
		}
		if len(xo) < len(x) && len(xo) > 1 {
			if c, err = FitTanh(xo, yo); err != nil {
				return nil, err
			}
		}
	}
	return c.EvalAll(x), nil
}
