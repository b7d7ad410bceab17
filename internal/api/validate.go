package api

import (
	"fmt"

	"github.com/decision-spot/net-opt/internal/model"
)

func validateParams(p *model.Params) error {
	if p.MaxWarehouses < 0 {
		return fmt.Errorf("maxWarehouses must be >= 0")
	}
	if p.CostPerMile < 0 {
		return fmt.Errorf("costPerMile must be >= 0")
	}
	if p.MinLaneCost < 0 {
		return fmt.Errorf("minLaneCost must be >= 0")
	}
	if p.Units != "" && p.Units != "miles" && p.Units != "km" {
		return fmt.Errorf("units must be miles or km, got %q", p.Units)
	}
	if p.RoadFactor < 0 {
		return fmt.Errorf("roadFactor must be >= 0")
	}
	if p.Objective != "" && p.Objective != model.ObjectiveWeightedDistance && p.Objective != model.ObjectiveTransportCost {
		return fmt.Errorf("unknown objective: %s", p.Objective)
	}
	if p.TimeLimitSec < 0 {
		return fmt.Errorf("timeLimitSec must be >= 0")
	}
	if p.MIPGap < 0 || p.MIPGap >= 1 {
		return fmt.Errorf("mipGap must be in [0,1)")
	}
	return nil
}

func validateScenarioIn(in *model.ScenarioIn) error {
	if in.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(in.Plants) == 0 {
		return fmt.Errorf("at least one plant is required")
	}
	if len(in.Customers) == 0 {
		return fmt.Errorf("at least one customer is required")
	}
	if in.Params.MaxWarehouses < 1 {
		return fmt.Errorf("params.maxWarehouses must be >= 1")
	}
	return validateParams(&in.Params)
}

func validateSolveRequest(req *model.SolveRequest) error {
	if req.ScenarioID == "" {
		return fmt.Errorf("scenarioId is required")
	}
	if req.Overrides != nil {
		return validateParams(req.Overrides)
	}
	return nil
}
