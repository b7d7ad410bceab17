package milp

import (
	"context"
	"fmt"
	"time"

	"github.com/bartolsthoorn/gohighs/highs"
)

// Options controls a single solve.
type Options struct {
	TimeLimitSec float64
	MIPGap       float64
	Log          bool // solver console output
}

// Solver turns a built model into a solution. The production backend wraps
// the HiGHS solver; tests can substitute a stub.
type Solver interface {
	Solve(ctx context.Context, b *Builder, opts Options) (Solution, error)
}

// HiGHS delegates solving to the HiGHS solver through its Go bindings.
// All branch-and-bound work happens inside the solver library.
type HiGHS struct{}

// NewHiGHS returns the HiGHS-backed solver.
func NewHiGHS() *HiGHS { return &HiGHS{} }

// Solve lowers the builder into the solver's column/row form, runs it, and
// maps the solver status back onto our taxonomy.
func (h *HiGHS) Solve(ctx context.Context, b *Builder, opts Options) (Solution, error) {
	if b.obj.Terms() == 0 {
		return Solution{}, ErrNoObjective
	}
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}

	m := highs.Model{Maximize: b.maximize, Offset: b.obj.offset}
	m.ColCosts = make([]float64, len(b.vars))
	for _, vc := range b.obj.varCoeffs {
		m.ColCosts[vc.ind] += vc.coeff
	}
	m.ColLower = make([]float64, len(b.vars))
	m.ColUpper = make([]float64, len(b.vars))
	m.VarTypes = make([]highs.VariableType, len(b.vars))
	for i, v := range b.vars {
		m.ColLower[i] = v.lower
		m.ColUpper[i] = v.upper
		if v.typ == Binary || v.typ == Integer {
			m.VarTypes[i] = highs.Integer
		} else {
			m.VarTypes[i] = highs.Continuous
		}
	}
	for _, c := range b.cons {
		cols := make([]int, 0, len(c.expr.varCoeffs))
		vals := make([]float64, 0, len(c.expr.varCoeffs))
		for _, vc := range c.expr.varCoeffs {
			cols = append(cols, int(vc.ind))
			vals = append(vals, vc.coeff)
		}
		m.AddSparseRow(c.lower, cols, vals, c.upper)
	}

	sopts := []highs.SolveOption{highs.WithOutput(opts.Log)}
	if opts.TimeLimitSec > 0 {
		sopts = append(sopts, highs.WithTimeLimit(opts.TimeLimitSec))
	}
	if opts.MIPGap > 0 {
		sopts = append(sopts, highs.WithMIPRelGap(opts.MIPGap))
	}
	// Respect a context deadline tighter than the configured limit.
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl).Seconds(); rem > 0 && (opts.TimeLimitSec <= 0 || rem < opts.TimeLimitSec) {
			sopts = append(sopts, highs.WithTimeLimit(rem))
		}
	}

	sol, err := m.Solve(sopts...)
	if err != nil {
		return Solution{}, fmt.Errorf("highs solve: %w", err)
	}
	out := Solution{Objective: sol.Objective, values: sol.ColValues}
	switch {
	case sol.IsOptimal():
		out.Status = StatusOptimal
	case sol.IsInfeasible():
		out.Status = StatusInfeasible
	case sol.IsUnbounded():
		out.Status = StatusUnbounded
	case sol.IsTimeLimit() && len(sol.ColValues) > 0:
		out.Status = StatusFeasible
	default:
		out.Status = StatusUnknown
	}
	return out, nil
}
