// Package netopt formulates the two-echelon facility-location problem as a
// MILP and post-processes solver output into lanes and KPIs. It builds the
// model only; all optimization happens in the delegated solver backend.
package netopt

import (
	"fmt"
	"strings"

	"github.com/decision-spot/net-opt/internal/geo"
	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
)

// FormulatedModel is the built MILP plus the variable handles needed to
// decode a solution back into the domain.
type FormulatedModel struct {
	B *milp.Builder
	X []milp.VarIndex   // X[i]: plant i opens as warehouse
	Y [][]milp.VarIndex // Y[i][j]: customer j served from plant i
}

// ApplyDefaults fills in the parameter defaults used throughout.
func ApplyDefaults(p *model.Params) {
	if p.Units == "" {
		p.Units = "miles"
	}
	if p.RoadFactor <= 0 {
		p.RoadFactor = 1
	}
	if p.Objective == "" {
		p.Objective = model.ObjectiveWeightedDistance
	}
}

// Validate checks a scenario for structural problems before any model is
// built. Solver-level infeasibility (e.g. more must-use plants than the
// warehouse cap) is intentionally left to the solver.
func Validate(sc model.Scenario) error {
	if len(sc.Plants) == 0 {
		return fmt.Errorf("scenario has no plants")
	}
	if len(sc.Customers) == 0 {
		return fmt.Errorf("scenario has no customers")
	}
	if sc.Params.MaxWarehouses <= 0 {
		return fmt.Errorf("maxWarehouses must be > 0")
	}
	switch sc.Params.Objective {
	case "", model.ObjectiveWeightedDistance, model.ObjectiveTransportCost:
	default:
		return fmt.Errorf("unknown objective: %s", sc.Params.Objective)
	}
	seen := map[string]bool{}
	for _, p := range sc.Plants {
		if p.ID == "" {
			return fmt.Errorf("plant with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate plant id: %s", p.ID)
		}
		seen[p.ID] = true
		if p.MustUse && !p.CanUse {
			return fmt.Errorf("plant %s is both must-use and unavailable", p.ID)
		}
	}
	seen = map[string]bool{}
	for _, c := range sc.Customers {
		if c.ID == "" {
			return fmt.Errorf("customer with empty id")
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate customer id: %s", c.ID)
		}
		seen[c.ID] = true
		if c.Demand < 0 {
			return fmt.Errorf("customer %s has negative demand", c.ID)
		}
	}
	return nil
}

// Build assembles the MILP for a scenario over a precomputed distance/cost
// matrix:
//
//	sum_i y_ij = 1          for all customers j
//	sum_i x_i <= P
//	y_ij <= x_i             for all i, j
//	x_i = 1                 for must-use plants
//	x_i = 0                 for unavailable plants
//	sum_j d_j y_ij <= cap_i x_i   when plant i is capacitated
//
// minimizing either weighted distance or transport plus fixed cost.
func Build(sc model.Scenario, mx geo.Matrix) (*FormulatedModel, error) {
	if err := Validate(sc); err != nil {
		return nil, err
	}
	b := milp.NewBuilder("net_optimization")
	fm := &FormulatedModel{B: b}

	fm.X = make([]milp.VarIndex, len(sc.Plants))
	for i, p := range sc.Plants {
		fm.X[i] = b.NewBinary("x_" + lpName(p.ID))
	}
	fm.Y = make([][]milp.VarIndex, len(sc.Plants))
	for i, p := range sc.Plants {
		fm.Y[i] = make([]milp.VarIndex, len(sc.Customers))
		for j, c := range sc.Customers {
			fm.Y[i][j] = b.NewBinary("y_" + lpName(p.ID) + "_" + lpName(c.ID))
		}
	}

	// Every customer is served by exactly one warehouse.
	for j, c := range sc.Customers {
		cov := milp.NewLinearExpr()
		for i := range sc.Plants {
			cov.AddTerm(fm.Y[i][j], 1)
		}
		b.AddEq("cover_"+lpName(c.ID), cov, 1)
	}

	// At most P warehouses open.
	open := milp.NewLinearExpr().AddSum(fm.X...)
	b.AddLe("max_num_plants", open, float64(sc.Params.MaxWarehouses))

	// A customer can only be served from an open warehouse.
	for i, p := range sc.Plants {
		for j, c := range sc.Customers {
			link := milp.NewLinearExpr().AddTerm(fm.Y[i][j], 1).AddTerm(fm.X[i], -1)
			b.AddLe("link_"+lpName(p.ID)+"_"+lpName(c.ID), link, 0)
		}
	}

	// Forced-open and forced-closed sites.
	for i, p := range sc.Plants {
		if p.MustUse {
			b.Fix(fm.X[i], 1)
		}
		if !p.CanUse {
			b.Fix(fm.X[i], 0)
		}
	}

	// Capacity, only for plants that declare one.
	for i, p := range sc.Plants {
		if p.Capacity <= 0 {
			continue
		}
		cap := milp.NewLinearExpr()
		for j, c := range sc.Customers {
			cap.AddTerm(fm.Y[i][j], c.Demand)
		}
		cap.AddTerm(fm.X[i], -p.Capacity)
		b.AddLe("cap_"+lpName(p.ID), cap, 0)
	}

	obj := milp.NewLinearExpr()
	switch sc.Params.Objective {
	case model.ObjectiveTransportCost:
		for i := range sc.Plants {
			for j := range sc.Customers {
				obj.AddTerm(fm.Y[i][j], mx.Cost[i][j])
			}
		}
		for i, p := range sc.Plants {
			if p.FixedCost != 0 {
				obj.AddTerm(fm.X[i], p.FixedCost)
			}
		}
	default: // weighted distance
		for i := range sc.Plants {
			for j, c := range sc.Customers {
				obj.AddTerm(fm.Y[i][j], mx.Dist[i][j]*c.Demand)
			}
		}
	}
	b.Minimize(obj)
	return fm, nil
}

// Decode extracts open plants and customer assignments from a solution.
func (fm *FormulatedModel) Decode(sc model.Scenario, mx geo.Matrix, sol milp.Solution) ([]string, []model.Assignment) {
	var open []string
	for i, p := range sc.Plants {
		if sol.BoolValue(fm.X[i]) {
			open = append(open, p.ID)
		}
	}
	var assignments []model.Assignment
	for j, c := range sc.Customers {
		for i, p := range sc.Plants {
			if sol.BoolValue(fm.Y[i][j]) {
				assignments = append(assignments, model.Assignment{
					PlantID:    p.ID,
					CustomerID: c.ID,
					Distance:   mx.Dist[i][j],
					Demand:     c.Demand,
				})
				break
			}
		}
	}
	return open, assignments
}

// lpName makes an identifier safe for LP file output.
func lpName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
