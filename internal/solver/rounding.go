package solver

import (
	"context"
	"math"

	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

const feasTol = 1e-6

// rounding is the last-resort backend: solve the root LP relaxation, round
// the integer variables, and accept only if the rounded point is feasible.
// Cheap, and exact whenever the relaxation happens to land integral.
type rounding struct {
	log *logger.Logger
}

func newRounding(log *logger.Logger) *rounding {
	return &rounding{log: log.With("backend", "lp-rounding")}
}

func (r *rounding) Name() string { return "lp-rounding" }

func (r *rounding) Available() bool { return true }

func (r *rounding) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, x, err := solveRelaxation(p, p.Lo, p.Hi)
	if err != nil {
		return nil, err
	}

	rounded := snapIntegers(p, x)
	if !Feasible(p, rounded, feasTol) {
		r.log.Warn("rounded relaxation infeasible")
		return &Solution{Status: StatusInfeasible}, nil
	}

	status := StatusOptimalTol
	if pickBranchVar(p, x) < 0 {
		// Relaxation was already integral: this is the true optimum.
		status = StatusOptimal
	}
	return &Solution{Status: status, Objective: Objective(p, rounded), X: rounded}, nil
}

// Objective evaluates C·x.
func Objective(p *Problem, x []float64) float64 {
	total := 0.0
	for i, c := range p.C {
		total += c * x[i]
	}
	return total
}

// Feasible checks a point against every row and bound of p.
func Feasible(p *Problem, x []float64, tol float64) bool {
	if len(x) != p.NumVars() {
		return false
	}
	for i, v := range x {
		if v < p.Lo[i]-tol || v > p.Hi[i]+tol {
			return false
		}
		if p.Integer[i] && math.Abs(v-math.Round(v)) > tol {
			return false
		}
	}
	for r, row := range p.AUb {
		sum := 0.0
		for i, a := range row {
			sum += a * x[i]
		}
		if sum > p.BUb[r]+tol {
			return false
		}
	}
	for r, row := range p.AEq {
		sum := 0.0
		for i, a := range row {
			sum += a * x[i]
		}
		if math.Abs(sum-p.BEq[r]) > tol {
			return false
		}
	}
	return true
}
