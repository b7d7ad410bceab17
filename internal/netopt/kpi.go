package netopt

import (
	"github.com/decision-spot/net-opt/internal/model"
)

// ServiceRadii are the distance bands reported as percent-of-demand-within
// KPIs, in the scenario's distance units.
var ServiceRadii = []int{400, 800, 1200}

// ComputeKPIs derives the reporting KPIs from a decoded assignment.
func ComputeKPIs(objective float64, open []string, assignments []model.Assignment) model.KPIs {
	k := model.KPIs{
		Objective:         objective,
		OpenWarehouses:    len(open),
		AssignedCustomers: len(assignments),
		PctDemandWithin:   map[int]float64{},
	}
	weighted := 0.0
	within := map[int]float64{}
	for _, a := range assignments {
		k.TotalDemand += a.Demand
		weighted += a.Distance * a.Demand
		for _, r := range ServiceRadii {
			if a.Distance <= float64(r) {
				within[r] += a.Demand
			}
		}
	}
	if k.TotalDemand > 0 {
		k.WeightedAvgDist = weighted / k.TotalDemand
		for _, r := range ServiceRadii {
			k.PctDemandWithin[r] = within[r] / k.TotalDemand
		}
	} else {
		for _, r := range ServiceRadii {
			k.PctDemandWithin[r] = 0
		}
	}
	return k
}

// BuildLanes joins assignments with plant and customer records into the
// origin/destination rows used by exports and map rendering.
func BuildLanes(sc model.Scenario, assignments []model.Assignment) []model.Lane {
	plants := map[string]model.Plant{}
	for _, p := range sc.Plants {
		plants[p.ID] = p
	}
	customers := map[string]model.Customer{}
	for _, c := range sc.Customers {
		customers[c.ID] = c
	}
	lanes := make([]model.Lane, 0, len(assignments))
	for _, a := range assignments {
		p, ok := plants[a.PlantID]
		if !ok {
			continue
		}
		c, ok := customers[a.CustomerID]
		if !ok {
			continue
		}
		lanes = append(lanes, model.Lane{
			Lane:        a.PlantID + "-" + a.CustomerID,
			Origin:      p.Name,
			Destination: c.Name,
			Demand:      c.Demand,
			PlantID:     p.ID,
			OriginLat:   p.Latitude,
			OriginLon:   p.Longitude,
			CustomerID:  c.ID,
			DestLat:     c.Latitude,
			DestLon:     c.Longitude,
		})
	}
	return lanes
}
