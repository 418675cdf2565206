// Public domain.

package xsrefine

import (
	"errors"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"
)

// residuals evaluates the residual vector r at parameters p.
type residuals func(p, r []float64) error

// lmProblem is a least squares problem for levenbergMarquardt.
type lmProblem struct {
	f       residuals
	m       int       // number of residuals
	scale   []float64 // typical magnitude of each parameter
	tol     float64
	maxIter int
}

// relative damping floor of levenbergMarquardt
const dampFloor = 1e-9

type lmResult struct {
	p          []float64
	cost       float64
	iterations int
}

// levenbergMarquardt minimizes the sum of squared residuals starting from
// p0.  Errors evaluating the start point or the Jacobian are returned.  An
// error evaluating a trial step rejects the step.
func levenbergMarquardt(pr lmProblem, p0 []float64, log *slog.Logger) (lmResult, error) {
	n := len(p0)
	m := pr.m
	p := append([]float64(nil), p0...)
	r := make([]float64, m)
	if err := pr.f(p, r); err != nil {
		return lmResult{}, err
	}
	cost := sumSq(r)

	jac := mat.NewDense(m, n, nil)
	if err := jacobian(pr, p, r, jac); err != nil {
		return lmResult{}, err
	}
	lambda := 1e-3
	nu := 2.

	pNew := make([]float64, n)
	rNew := make([]float64, m)
	var jtj mat.SymDense
	var g, dx mat.VecDense
	a := mat.NewSymDense(n, nil)
	iter := 0
	for ; iter < pr.maxIter; iter++ {
		if cost == 0 {
			break
		}
		jtj.SymOuterK(1, jac.T())
		g.MulVec(jac.T(), mat.NewVecDense(m, r))
		if mat.Norm(&g, 2) < pr.tol*cost {
			break
		}
		// damping floor relative to the largest curvature
		floor := 0.
		for i := 0; i < n; i++ {
			floor = math.Max(floor, jtj.At(i, i))
		}
		floor = math.Max(floor*dampFloor, math.SmallestNonzeroFloat64)
		accepted := false
		for tries := 0; tries < 20; tries++ {
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					a.SetSym(i, j, jtj.At(i, j))
				}
				a.SetSym(i, i, jtj.At(i, i)+lambda*math.Max(jtj.At(i, i), floor))
			}
			var ch mat.Cholesky
			if !ch.Factorize(a) {
				lambda *= nu
				continue
			}
			if err := ch.SolveVecTo(&dx, &g); err != nil {
				lambda *= nu
				continue
			}
			for j := range pNew {
				pNew[j] = p[j] - dx.AtVec(j)
			}
			if err := pr.f(pNew, rNew); err == nil {
				if costNew := sumSq(rNew); costNew < cost {
					improvement := (cost - costNew) / cost
					copy(p, pNew)
					copy(r, rNew)
					cost = costNew
					lambda = math.Max(lambda/3, 1e-15)
					nu = 2
					accepted = true
					log.Debug("refinement step", "iteration", iter+1,
						"rmsd", math.Sqrt(cost/float64(m)), "lambda", lambda)
					if improvement < pr.tol {
						return lmResult{p, cost, iter + 1}, nil
					}
					break
				}
			}
			lambda *= nu
			nu *= 2
			if lambda > 1e16 {
				return lmResult{p, cost, iter + 1}, nil
			}
		}
		if !accepted {
			break
		}
		if err := jacobian(pr, p, r, jac); err != nil {
			return lmResult{}, err
		}
	}
	return lmResult{p, cost, iter}, nil
}

var errStep = errors.New("zero step")

// jacobian fills jac with forward differences about p, where r holds the
// residuals at p.
func jacobian(pr lmProblem, p, r []float64, jac *mat.Dense) error {
	n := len(p)
	q := append([]float64(nil), p...)
	rq := make([]float64, len(r))
	for j := 0; j < n; j++ {
		h := 1e-6 * math.Max(math.Abs(p[j]), pr.scale[j])
		if h == 0 {
			return errStep
		}
		q[j] = p[j] + h
		if err := pr.f(q, rq); err != nil {
			return err
		}
		for i := range r {
			jac.Set(i, j, (rq[i]-r[i])/h)
		}
		q[j] = p[j]
	}
	return nil
}

func sumSq(r []float64) float64 {
	s := 0.
	for _, v := range r {
		s += v * v
	}
	return s
}
