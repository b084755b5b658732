package solver

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

const (
	intTol   = 1e-6
	boundTol = 1e-9
)

var errNoIncumbent = errors.New("search interrupted before any integral solution")

// branchBound is the primary backend: depth-first branch and bound with an
// LP-relaxation bound from gonum's simplex.
type branchBound struct {
	log *logger.Logger
}

func newBranchBound(log *logger.Logger) *branchBound {
	return &branchBound{log: log.With("backend", "branch-and-bound")}
}

func (b *branchBound) Name() string { return "branch-and-bound" }

// Available is always true: the simplex is compiled in.
func (b *branchBound) Available() bool { return true }

type bbNode struct {
	lo, hi []float64
}

func (b *branchBound) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	root := bbNode{lo: append([]float64{}, p.Lo...), hi: append([]float64{}, p.Hi...)}
	stack := []bbNode{root}

	best := math.Inf(-1)
	var bestX []float64
	nodes := 0

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			if bestX != nil {
				// Out of time with an incumbent in hand
				b.log.Warn("search cut short, returning incumbent", "nodes", nodes, "objective", best)
				return &Solution{Status: StatusOptimalTol, Objective: best, X: bestX}, nil
			}
			return nil, errNoIncumbent
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		obj, x, err := solveRelaxation(p, node.lo, node.hi)
		if err != nil {
			// Infeasible or degenerate subtree
			continue
		}
		if obj <= best+boundTol {
			continue
		}

		branch := pickBranchVar(p, x)
		if branch < 0 {
			best = obj
			bestX = snapIntegers(p, x)
			continue
		}

		down := bbNode{lo: append([]float64{}, node.lo...), hi: append([]float64{}, node.hi...)}
		down.hi[branch] = math.Floor(x[branch])
		up := bbNode{lo: append([]float64{}, node.lo...), hi: append([]float64{}, node.hi...)}
		up.lo[branch] = math.Ceil(x[branch])

		// Explore the round-up child first; transfer plans are usually
		// improved by taking a move rather than refusing it.
		stack = append(stack, down, up)
	}

	if bestX == nil {
		return &Solution{Status: StatusInfeasible}, nil
	}
	b.log.Debug("search exhausted", "nodes", nodes, "objective", best)
	return &Solution{Status: StatusOptimal, Objective: best, X: bestX}, nil
}

// pickBranchVar returns the most fractional integer variable, -1 when the
// point is integral.
func pickBranchVar(p *Problem, x []float64) int {
	branch := -1
	worst := intTol
	for i, isInt := range p.Integer {
		if !isInt {
			continue
		}
		frac := math.Abs(x[i] - math.Round(x[i]))
		if frac > worst {
			worst = frac
			branch = i
		}
	}
	return branch
}

func snapIntegers(p *Problem, x []float64) []float64 {
	out := append([]float64{}, x...)
	for i, isInt := range p.Integer {
		if isInt {
			out[i] = math.Round(out[i])
		}
	}
	return out
}

// solveRelaxation solves the LP relaxation of p with node bounds lo/hi.
// Returns the objective in the maximize sense.
//
// The general form is assembled into simplex standard form
// (min c·x, A x = b, x ≥ 0): every inequality and finite bound gains a
// slack column, and rows are sign-normalized so b ≥ 0.
func solveRelaxation(p *Problem, lo, hi []float64) (float64, []float64, error) {
	n := p.NumVars()

	type row struct {
		coeffs map[int]float64
		rhs    float64
		eq     bool
	}
	rows := make([]row, 0, len(p.AUb)+len(p.AEq)+2*n)

	for r, a := range p.AUb {
		coeffs := make(map[int]float64)
		for i, v := range a {
			if v != 0 {
				coeffs[i] = v
			}
		}
		rows = append(rows, row{coeffs: coeffs, rhs: p.BUb[r]})
	}
	for r, a := range p.AEq {
		coeffs := make(map[int]float64)
		for i, v := range a {
			if v != 0 {
				coeffs[i] = v
			}
		}
		rows = append(rows, row{coeffs: coeffs, rhs: p.BEq[r], eq: true})
	}
	for i := 0; i < n; i++ {
		if !math.IsInf(hi[i], 1) {
			rows = append(rows, row{coeffs: map[int]float64{i: 1}, rhs: hi[i]})
		}
		if lo[i] > 0 {
			rows = append(rows, row{coeffs: map[int]float64{i: -1}, rhs: -lo[i]})
		}
	}

	slacks := 0
	for _, r := range rows {
		if !r.eq {
			slacks++
		}
	}

	cols := n + slacks
	a := mat.NewDense(len(rows), cols, nil)
	b := make([]float64, len(rows))
	c := make([]float64, cols)
	for i := 0; i < n; i++ {
		c[i] = -p.C[i] // maximize -> minimize
	}

	slack := n
	for ri, r := range rows {
		sign := 1.0
		if !r.eq {
			a.Set(ri, slack, 1)
		}
		if r.rhs < 0 {
			sign = -1
			if !r.eq {
				a.Set(ri, slack, -1)
			}
		}
		if !r.eq {
			slack++
		}
		for col, v := range r.coeffs {
			a.Set(ri, col, sign*v)
		}
		b[ri] = sign * r.rhs
	}

	optF, optX, err := lp.Simplex(c, a, b, 0, nil)
	if err != nil {
		return 0, nil, err
	}
	return -optF, optX[:n], nil
}
