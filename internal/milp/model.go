// Package milp offers a small builder API for mixed-integer linear
// programs. The builder only assembles variables, linear constraints, and
// an objective; solving is delegated to a third-party solver backend (see
// solver.go). Models can also be exported in CPLEX LP text format.
package milp

import (
	"fmt"
	"math"
)

// VarIndex is the index of a variable in the model.
type VarIndex int32

// VarType describes a variable's domain.
type VarType int

const (
	Continuous VarType = iota
	Binary
	Integer
)

type variable struct {
	name  string
	lower float64
	upper float64
	typ   VarType
}

type constraint struct {
	name  string
	lower float64
	upper float64
	expr  *LinearExpr
}

// Builder accumulates a MILP. It is not safe for concurrent use.
type Builder struct {
	name     string
	vars     []variable
	cons     []constraint
	obj      *LinearExpr
	maximize bool
}

// NewBuilder creates an empty model with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, obj: NewLinearExpr()}
}

// Name returns the model name.
func (b *Builder) Name() string { return b.name }

// NewVar adds a continuous variable with the given bounds.
func (b *Builder) NewVar(name string, lower, upper float64) VarIndex {
	b.vars = append(b.vars, variable{name: name, lower: lower, upper: upper, typ: Continuous})
	return VarIndex(len(b.vars) - 1)
}

// NewBinary adds a binary variable.
func (b *Builder) NewBinary(name string) VarIndex {
	b.vars = append(b.vars, variable{name: name, lower: 0, upper: 1, typ: Binary})
	return VarIndex(len(b.vars) - 1)
}

// NewIntVar adds an integer variable with the given bounds.
func (b *Builder) NewIntVar(name string, lower, upper float64) VarIndex {
	b.vars = append(b.vars, variable{name: name, lower: lower, upper: upper, typ: Integer})
	return VarIndex(len(b.vars) - 1)
}

// Fix pins a variable to a single value by collapsing its bounds.
func (b *Builder) Fix(v VarIndex, value float64) {
	b.vars[v].lower = value
	b.vars[v].upper = value
}

// AddConstraint adds lower <= expr <= upper. The constant offset of the
// expression is folded into both bounds.
func (b *Builder) AddConstraint(name string, expr *LinearExpr, lower, upper float64) {
	if expr.offset != 0 {
		if !math.IsInf(lower, -1) {
			lower -= expr.offset
		}
		if !math.IsInf(upper, 1) {
			upper -= expr.offset
		}
		expr.offset = 0
	}
	b.cons = append(b.cons, constraint{name: name, lower: lower, upper: upper, expr: expr})
}

// AddEq adds expr == rhs.
func (b *Builder) AddEq(name string, expr *LinearExpr, rhs float64) {
	b.AddConstraint(name, expr, rhs, rhs)
}

// AddLe adds expr <= rhs.
func (b *Builder) AddLe(name string, expr *LinearExpr, rhs float64) {
	b.AddConstraint(name, expr, math.Inf(-1), rhs)
}

// AddGe adds expr >= rhs.
func (b *Builder) AddGe(name string, expr *LinearExpr, rhs float64) {
	b.AddConstraint(name, expr, rhs, math.Inf(1))
}

// Minimize sets the objective to minimize expr.
func (b *Builder) Minimize(expr *LinearExpr) {
	b.obj = expr
	b.maximize = false
}

// Maximize sets the objective to maximize expr.
func (b *Builder) Maximize(expr *LinearExpr) {
	b.obj = expr
	b.maximize = true
}

// NumVars returns the number of variables added so far.
func (b *Builder) NumVars() int { return len(b.vars) }

// NumConstraints returns the number of constraints added so far.
func (b *Builder) NumConstraints() int { return len(b.cons) }

// VarName returns the name of a variable.
func (b *Builder) VarName(v VarIndex) string { return b.vars[v].name }

// LinearExpr is a container for a linear expression sum(coeff*var) + offset.
type LinearExpr struct {
	varCoeffs []varCoeff
	offset    float64
}

type varCoeff struct {
	ind   VarIndex
	coeff float64
}

// NewLinearExpr creates a new empty LinearExpr.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// AddTerm adds coeff*v to the expression and returns itself.
func (l *LinearExpr) AddTerm(v VarIndex, coeff float64) *LinearExpr {
	l.varCoeffs = append(l.varCoeffs, varCoeff{ind: v, coeff: coeff})
	return l
}

// AddSum adds every variable with coefficient 1 and returns itself.
func (l *LinearExpr) AddSum(vs ...VarIndex) *LinearExpr {
	for _, v := range vs {
		l.AddTerm(v, 1)
	}
	return l
}

// AddConstant adds a constant to the expression and returns itself.
func (l *LinearExpr) AddConstant(c float64) *LinearExpr {
	l.offset += c
	return l
}

// Terms returns the number of variable terms in the expression.
func (l *LinearExpr) Terms() int { return len(l.varCoeffs) }

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible // stopped early (e.g. time limit) with an incumbent
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// Solution holds primal values for a solved model.
type Solution struct {
	Status    Status
	Objective float64
	values    []float64
}

// NewSolution builds a Solution from raw column values, indexed by VarIndex.
func NewSolution(status Status, objective float64, values []float64) Solution {
	return Solution{Status: status, Objective: objective, values: values}
}

// Value returns the solution value of v, or 0 when out of range.
func (s Solution) Value(v VarIndex) float64 {
	if int(v) < 0 || int(v) >= len(s.values) {
		return 0
	}
	return s.values[int(v)]
}

// BoolValue reports whether a binary variable is set, using the usual 0.5
// threshold to absorb solver tolerances.
func (s Solution) BoolValue(v VarIndex) bool {
	return s.Value(v) > 0.5
}

// HasSolution reports whether primal values are available.
func (s Solution) HasSolution() bool {
	return s.Status == StatusOptimal || s.Status == StatusFeasible
}

// ErrNoObjective is returned when solving a model without an objective term.
var ErrNoObjective = fmt.Errorf("milp: model has no objective")
