package netopt

import (
	"context"
	"fmt"
	"time"

	"github.com/decision-spot/net-opt/internal/geo"
	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
)

// Result is the outcome of one optimization run.
type Result struct {
	Status      milp.Status
	Objective   float64
	OpenPlants  []string
	Assignments []model.Assignment
	Lanes       []model.Lane
	KPIs        model.KPIs
	SolveMs     int64
	Vars        int
}

// Engine runs the full pipeline: distance matrix, formulation, delegated
// solve, decode, KPIs.
type Engine struct {
	Solver milp.Solver
}

// NewEngine creates an engine around a solver backend.
func NewEngine(s milp.Solver) *Engine {
	return &Engine{Solver: s}
}

// Optimize solves a scenario. A non-nil error means the pipeline itself
// failed; infeasibility and unboundedness come back in Result.Status.
func (e *Engine) Optimize(ctx context.Context, sc model.Scenario) (Result, error) {
	ApplyDefaults(&sc.Params)
	mx := geo.BuildMatrix(sc.Plants, sc.Customers, sc.Params)
	fm, err := Build(sc, mx)
	if err != nil {
		return Result{}, err
	}
	start := time.Now()
	nvars := fm.B.NumVars()
	sol, err := e.Solver.Solve(ctx, fm.B, milp.Options{
		TimeLimitSec: sc.Params.TimeLimitSec,
		MIPGap:       sc.Params.MIPGap,
		Log:          sc.Params.SolverLog,
	})
	if err != nil {
		return Result{}, fmt.Errorf("solve scenario %s: %w", sc.ID, err)
	}
	res := Result{Status: sol.Status, SolveMs: time.Since(start).Milliseconds(), Vars: nvars}
	if !sol.HasSolution() {
		return res, nil
	}
	res.Objective = sol.Objective
	res.OpenPlants, res.Assignments = fm.Decode(sc, mx, sol)
	res.Lanes = BuildLanes(sc, res.Assignments)
	res.KPIs = ComputeKPIs(sol.Objective, res.OpenPlants, res.Assignments)
	return res, nil
}

// RunStatus maps a solver status onto the run status taxonomy.
func RunStatus(s milp.Status) string {
	switch s {
	case milp.StatusOptimal:
		return model.RunStatusOptimal
	case milp.StatusFeasible:
		return model.RunStatusFeasible
	case milp.StatusInfeasible:
		return model.RunStatusInfeasible
	case milp.StatusUnbounded:
		return model.RunStatusUnbounded
	default:
		return model.RunStatusError
	}
}
