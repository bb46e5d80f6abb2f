package calibration

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/meenmo/g2lib/model"
)

const (
	// relative forward-difference step of the Jacobian
	jacobianStep = 1e-4
	// initial damping relative to the diagonal of J^T J
	initialDamping = 1e-3
)

// Iteration is passed to an Observer after every trial step. A rejected
// trial that could not be priced carries Infeasible when it left the model's
// domain, or Err when pricing failed inside it.
type Iteration struct {
	N          int
	Cost       float64
	Params     model.Params
	Accepted   bool
	Infeasible bool
	Err        error
}

// Observer is notified of optimizer progress.
type Observer func(Iteration)

type runResult struct {
	x          []float64
	cost       float64
	iterations int
	end        EndType
	infeasible int
	failed     int
}

// levenbergMarquardt minimizes 0.5*|r(x)|^2 with Marquardt diagonal scaling.
// Trial points outside the model's domain, and trials that fail to price, are
// rejected steps. A vanishing step reached while steps are being rejected is
// a stall, not a stationary point.
func levenbergMarquardt(ctx context.Context, obj *objective, x0 []float64, ec EndCriteria, observe Observer) (runResult, error) {
	n, k := obj.size(), len(x0)
	x := append([]float64(nil), x0...)
	r := make([]float64, n)
	if err := obj.residuals(model.ParamsFromVector(x), r); err != nil {
		return runResult{}, fmt.Errorf("levenbergMarquardt: initial point: %w", err)
	}
	c := cost(r)

	jac, err := jacobian(ctx, obj, x, r)
	if err != nil {
		return runResult{}, err
	}

	mu, nu := initialDamping, 2.0
	stalled := 0
	var infeasibleTrials, failedTrials int
	result := func(iterations int, end EndType) runResult {
		return runResult{x, c, iterations, end, infeasibleTrials, failedTrials}
	}
	trial := make([]float64, k)
	rTrial := make([]float64, n)

	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return result(iter-1, EndNone), err
		}
		if c == 0 {
			return result(iter-1, EndStationaryFunctionValue), nil
		}

		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var g mat.VecDense
		g.MulVec(jac.T(), mat.NewVecDense(n, r))

		if scaledGradient(jac, g.RawVector().Data, r) <= ec.GradientTolerance {
			return result(iter-1, EndZeroGradientNorm), nil
		}
		if iter > ec.MaxIterations {
			return result(iter-1, EndMaxIterations), nil
		}

		diag := make([]float64, k)
		maxDiag := 0.0
		for j := 0; j < k; j++ {
			maxDiag = math.Max(maxDiag, jtj.At(j, j))
		}
		for j := 0; j < k; j++ {
			diag[j] = math.Max(jtj.At(j, j), 1e-12*maxDiag)
		}

		step, err := solveDamped(&jtj, &g, mu, diag)
		if err != nil {
			return runResult{}, fmt.Errorf("levenbergMarquardt: iteration %d: %w", iter, err)
		}
		dx := step.RawVector().Data
		if floats.Norm(dx, 2) <= ec.ParamTolerance*(floats.Norm(x, 2)+ec.ParamTolerance) {
			if stalled > 0 {
				return result(iter-1, EndMaxStalledSteps), nil
			}
			return result(iter-1, EndStationaryPoint), nil
		}

		floats.AddTo(trial, x, dx)
		accepted := false
		trialErr := obj.residuals(model.ParamsFromVector(trial), rTrial)
		if trialErr == nil {
			cTrial := cost(rTrial)
			// predicted reduction 0.5 * dx^T (mu D dx - g)
			pred := 0.0
			for j := 0; j < k; j++ {
				pred += 0.5 * dx[j] * (mu*diag[j]*dx[j] - g.AtVec(j))
			}
			actual := c - cTrial
			rho := actual / pred
			if pred > 0 && rho > 0 {
				accepted = true
				copy(x, trial)
				copy(r, rTrial)
				c = cTrial
				mu *= math.Max(1.0/3.0, 1-math.Pow(2*rho-1, 3))
				nu = 2
				stalled = 0
				if observe != nil {
					observe(Iteration{N: iter, Cost: c, Params: model.ParamsFromVector(x), Accepted: true})
				}
				if actual <= ec.RootTolerance*(c+actual) && pred <= ec.RootTolerance*(c+actual) && rho <= 2 {
					return result(iter, EndStationaryFunctionValue), nil
				}
				if jac, err = jacobian(ctx, obj, x, r); err != nil {
					return runResult{}, err
				}
			}
		}
		if !accepted {
			mu *= nu
			nu *= 2
			stalled++
			it := Iteration{N: iter, Cost: c, Params: model.ParamsFromVector(x)}
			switch {
			case trialErr == nil:
			case infeasible(trialErr):
				infeasibleTrials++
				it.Infeasible = true
			default:
				failedTrials++
				it.Err = trialErr
			}
			if observe != nil {
				observe(it)
			}
			if ec.MaxStalledSteps > 0 && stalled >= ec.MaxStalledSteps {
				return result(iter, EndMaxStalledSteps), nil
			}
		}
	}
}

// jacobian evaluates forward differences, one goroutine per parameter. A step
// that fails is taken backwards instead.
func jacobian(ctx context.Context, obj *objective, x, r []float64) (*mat.Dense, error) {
	n, k := len(r), len(x)
	cols := make([][]float64, k)
	g, ctx := errgroup.WithContext(ctx)
	for j := 0; j < k; j++ {
		j := j // per-iteration copy (pre-Go 1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			xp := append([]float64(nil), x...)
			h := jacobianStep * math.Max(math.Abs(x[j]), 1e-4)
			col := make([]float64, n)
			xp[j] = x[j] + h
			err := obj.residuals(model.ParamsFromVector(xp), col)
			if err != nil {
				h = -h
				xp[j] = x[j] + h
				err = obj.residuals(model.ParamsFromVector(xp), col)
			}
			if err != nil {
				return fmt.Errorf("jacobian column %d: %w", j, err)
			}
			for i := range col {
				col[i] = (col[i] - r[i]) / h
			}
			cols[j] = col
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	jac := mat.NewDense(n, k, nil)
	for j, col := range cols {
		jac.SetCol(j, col)
	}
	return jac, nil
}

// solveDamped solves (J^T J + mu D) dx = -g by Cholesky, falling back to LU.
func solveDamped(jtj *mat.SymDense, g *mat.VecDense, mu float64, diag []float64) (*mat.VecDense, error) {
	k := len(diag)
	a := mat.NewSymDense(k, nil)
	a.CopySym(jtj)
	for j := 0; j < k; j++ {
		a.SetSym(j, j, jtj.At(j, j)+mu*diag[j])
	}
	var rhs mat.VecDense
	rhs.ScaleVec(-1, g)

	var step mat.VecDense
	var chol mat.Cholesky
	if chol.Factorize(a) {
		if err := chol.SolveVecTo(&step, &rhs); err == nil {
			return &step, nil
		}
	}
	var lu mat.LU
	lu.Factorize(a)
	if err := lu.SolveVecTo(&step, false, &rhs); err != nil {
		return nil, fmt.Errorf("damped normal equations: %w", err)
	}
	return &step, nil
}

// scaledGradient is max_j |g_j| / (|J_j| |r|), the cosine test of MINPACK.
func scaledGradient(jac *mat.Dense, g, r []float64) float64 {
	rn := floats.Norm(r, 2)
	if rn == 0 {
		return 0
	}
	n, k := jac.Dims()
	col := make([]float64, n)
	out := 0.0
	for j := 0; j < k; j++ {
		mat.Col(col, j, jac)
		cn := floats.Norm(col, 2)
		if cn == 0 {
			continue
		}
		out = math.Max(out, math.Abs(g[j])/(cn*rn))
	}
	return out
}
