package solver

import (
	"context"
	"errors"
	"time"

	"github.com/nickbutler25/FPLOptimizer/internal/config"
	"github.com/nickbutler25/FPLOptimizer/internal/fplerr"
	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

// Backend is one MIP solver implementation.
type Backend interface {
	Name() string
	Available() bool
	Solve(ctx context.Context, p *Problem) (*Solution, error)
}

// Adapter presents a single solve operation over a prioritized backend
// list. Unavailable backends are skipped; a backend's answer is accepted
// only with an optimal or optimal-within-tolerance status. When every
// backend fails the caller gets SolverUnavailable, never a partial result.
type Adapter struct {
	backends  []Backend
	timeLimit time.Duration
	log       *logger.Logger
}

// NewAdapter wires the default backend priority list.
func NewAdapter(cfg config.Solver, log *logger.Logger) *Adapter {
	return &Adapter{
		backends: []Backend{
			newBranchBound(log),
			newRounding(log),
		},
		timeLimit: cfg.TimeLimit,
		log:       log.With("component", "solver_adapter"),
	}
}

// NewAdapterWithBackends builds an adapter over an explicit backend list,
// used by tests.
func NewAdapterWithBackends(timeLimit time.Duration, log *logger.Logger, backends ...Backend) *Adapter {
	return &Adapter{backends: backends, timeLimit: timeLimit, log: log.With("component", "solver_adapter")}
}

// Solve tries each backend in priority order under the wall-clock limit.
func (a *Adapter) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	solveCtx := ctx
	var cancel context.CancelFunc
	if a.timeLimit > 0 {
		solveCtx, cancel = context.WithTimeout(ctx, a.timeLimit)
		defer cancel()
	}

	var lastErr error
	for _, backend := range a.backends {
		if !backend.Available() {
			a.log.Debug("backend unavailable, skipping", "backend", backend.Name())
			continue
		}

		start := time.Now()
		sol, err := backend.Solve(solveCtx, p)

		if ctx.Err() != nil {
			// The caller went away; abort regardless of what the backend
			// managed to produce.
			return nil, fplerr.Cancelled(ctx.Err())
		}

		if err != nil {
			a.log.Warn("backend failed", "backend", backend.Name(), "error", err.Error())
			lastErr = err
			continue
		}
		if !sol.Status.Accepted() {
			a.log.Warn("backend finished without an accepted status",
				"backend", backend.Name(), "status", sol.Status.String())
			lastErr = errors.New("status " + sol.Status.String())
			continue
		}

		a.log.Info("solved",
			"backend", backend.Name(),
			"status", sol.Status.String(),
			"objective", sol.Objective,
			"elapsed_ms", time.Since(start).Milliseconds())
		return sol, nil
	}

	return nil, fplerr.SolverUnavailable(lastErr, "no backend produced a usable solution")
}
