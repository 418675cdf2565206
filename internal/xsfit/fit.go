// Public domain.

// Package xsfit fits smooth curves to per-shell statistics and finds where
// a fitted curve crosses a threshold.
//
// All fits take parallel slices x and y and return the fitted y at each x.
package xsfit

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNoData is returned when there are no points to fit.
var ErrNoData = errors.New("no data to fit")

// Model is a fit bound to its parameters, as selected per metric by
// callers.
type Model func(x, y []float64) ([]float64, error)

func checkXY(x, y []float64) error {
	if len(x) != len(y) {
		return errors.New("x and y differ in length")
	}
	if len(x) == 0 {
		return ErrNoData
	}
	return nil
}

// PolynomialFit is the least squares polynomial of the given degree.  The
// degree is reduced when there are too few points to determine it.
func PolynomialFit(x, y []float64, degree int) ([]float64, error) {
	if err := checkXY(x, y); err != nil {
		return nil, err
	}
	if degree > len(x)-1 {
		degree = len(x) - 1
	}
	if degree < 0 {
		degree = 0
	}
	// x is centred and scaled to [-1,1] to keep the Vandermonde matrix
	// well conditioned.
	c, s := scaling(x)
	n := degree + 1
	v := mat.NewDense(len(x), n, nil)
	for i, xi := range x {
		t := (xi - c) / s
		p := 1.
		for j := 0; j < n; j++ {
			v.Set(i, j, p)
			p *= t
		}
	}
	var qr mat.QR
	qr.Factorize(v)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return nil, err
	}
	fit := make([]float64, len(x))
	for i, xi := range x {
		t := (xi - c) / s
		// Horner
		f := 0.
		for j := n - 1; j >= 0; j-- {
			f = f*t + coef.AtVec(j)
		}
		fit[i] = f
	}
	return fit, nil
}

func scaling(x []float64) (c, s float64) {
	lo, hi := x[0], x[0]
	for _, v := range x[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	c = (lo + hi) / 2
	if s = (hi - lo) / 2; s == 0 {
		s = 1
	}
	return
}

// LogFit fits a polynomial to log(y) and returns exp of the fit.  All y
// must be positive.
func LogFit(x, y []float64, degree int) ([]float64, error) {
	ly, err := logs(y, false)
	if err != nil {
		return nil, err
	}
	f, err := PolynomialFit(x, ly, degree)
	if err != nil {
		return nil, err
	}
	for i := range f {
		f[i] = math.Exp(f[i])
	}
	return f, nil
}

// LogInvFit fits a polynomial to log(1/y) and returns the inverse of exp
// of the fit, suiting statistics that decay with resolution.
func LogInvFit(x, y []float64, degree int) ([]float64, error) {
	ly, err := logs(y, true)
	if err != nil {
		return nil, err
	}
	f, err := PolynomialFit(x, ly, degree)
	if err != nil {
		return nil, err
	}
	for i := range f {
		f[i] = 1 / math.Exp(f[i])
	}
	return f, nil
}

func logs(y []float64, inv bool) ([]float64, error) {
	l := make([]float64, len(y))
	for i, v := range y {
		if !(v > 0) {
			return nil, errors.New("log fit of non-positive value")
		}
		if inv {
			v = 1 / v
		}
		l[i] = math.Log(v)
	}
	return l, nil
}
