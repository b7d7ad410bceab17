package netopt_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-spot/net-opt/internal/geo"
	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
	"github.com/decision-spot/net-opt/internal/netopt"
)

// twoByTwo is a scenario small enough to reason about by hand: two plant
// sites, two customers, each customer colocated with one plant.
func twoByTwo() model.Scenario {
	return model.Scenario{
		ID:   "sc_test",
		Name: "two by two",
		Plants: []model.Plant{
			{ID: "P1", Name: "Chicago", Latitude: 41.8781, Longitude: -87.6298, CanUse: true},
			{ID: "P2", Name: "Detroit", Latitude: 42.3314, Longitude: -83.0458, CanUse: true},
		},
		Customers: []model.Customer{
			{ID: "C1", Name: "Chicago DC", Latitude: 41.8781, Longitude: -87.6298, Demand: 100},
			{ID: "C2", Name: "Detroit DC", Latitude: 42.3314, Longitude: -83.0458, Demand: 50},
		},
		Params: model.Params{MaxWarehouses: 2},
	}
}

func buildScenario(t *testing.T, sc model.Scenario) (*netopt.FormulatedModel, geo.Matrix) {
	t.Helper()
	netopt.ApplyDefaults(&sc.Params)
	mx := geo.BuildMatrix(sc.Plants, sc.Customers, sc.Params)
	fm, err := netopt.Build(sc, mx)
	require.NoError(t, err)
	return fm, mx
}

func TestApplyDefaults(t *testing.T) {
	p := model.Params{MaxWarehouses: 3}
	netopt.ApplyDefaults(&p)
	require.Equal(t, "miles", p.Units)
	require.Equal(t, 1.0, p.RoadFactor)
	require.Equal(t, model.ObjectiveWeightedDistance, p.Objective)

	// Explicit values survive.
	p = model.Params{MaxWarehouses: 3, Units: "km", RoadFactor: 1.2, Objective: model.ObjectiveTransportCost}
	netopt.ApplyDefaults(&p)
	require.Equal(t, "km", p.Units)
	require.Equal(t, 1.2, p.RoadFactor)
	require.Equal(t, model.ObjectiveTransportCost, p.Objective)
}

func TestValidate(t *testing.T) {
	ok := twoByTwo()
	require.NoError(t, netopt.Validate(ok))

	cases := []struct {
		name   string
		mutate func(*model.Scenario)
	}{
		{"no plants", func(sc *model.Scenario) { sc.Plants = nil }},
		{"no customers", func(sc *model.Scenario) { sc.Customers = nil }},
		{"zero warehouses", func(sc *model.Scenario) { sc.Params.MaxWarehouses = 0 }},
		{"bad objective", func(sc *model.Scenario) { sc.Params.Objective = "shortest_path" }},
		{"empty plant id", func(sc *model.Scenario) { sc.Plants[0].ID = "" }},
		{"duplicate plant id", func(sc *model.Scenario) { sc.Plants[1].ID = "P1" }},
		{"must-use but unavailable", func(sc *model.Scenario) { sc.Plants[0].MustUse = true; sc.Plants[0].CanUse = false }},
		{"empty customer id", func(sc *model.Scenario) { sc.Customers[0].ID = "" }},
		{"duplicate customer id", func(sc *model.Scenario) { sc.Customers[1].ID = "C1" }},
		{"negative demand", func(sc *model.Scenario) { sc.Customers[0].Demand = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := twoByTwo()
			tc.mutate(&sc)
			require.Error(t, netopt.Validate(sc))
		})
	}
}

func TestBuildDimensions(t *testing.T) {
	fm, _ := buildScenario(t, twoByTwo())

	// 2 x vars + 4 y vars.
	require.Equal(t, 6, fm.B.NumVars())
	// 2 cover + 1 max_num_plants + 4 link; no capacities declared.
	require.Equal(t, 7, fm.B.NumConstraints())

	require.Equal(t, "x_P1", fm.B.VarName(fm.X[0]))
	require.Equal(t, "x_P2", fm.B.VarName(fm.X[1]))
	require.Equal(t, "y_P1_C2", fm.B.VarName(fm.Y[0][1]))
	require.Equal(t, "y_P2_C1", fm.B.VarName(fm.Y[1][0]))
}

func TestBuildCapacityRows(t *testing.T) {
	sc := twoByTwo()
	sc.Plants[0].Capacity = 120
	fm, _ := buildScenario(t, sc)
	// One extra cap_ row for the single capacitated plant.
	require.Equal(t, 8, fm.B.NumConstraints())
}

func TestBuildFixesForcedSites(t *testing.T) {
	sc := twoByTwo()
	sc.Plants[0].MustUse = true
	sc.Plants[1].CanUse = false
	fm, _ := buildScenario(t, sc)

	var buf bytes.Buffer
	require.NoError(t, fm.B.WriteLP(&buf))
	lp := buf.String()
	require.Contains(t, lp, " x_P1 = 1")
	require.Contains(t, lp, " x_P2 = 0")
}

func TestBuildSanitizesLPNames(t *testing.T) {
	sc := twoByTwo()
	sc.Plants[0].ID = "P-1.a"
	fm, _ := buildScenario(t, sc)
	require.Equal(t, "x_P_1_a", fm.B.VarName(fm.X[0]))
}

func TestDecode(t *testing.T) {
	sc := twoByTwo()
	netopt.ApplyDefaults(&sc.Params)
	fm, mx := buildScenario(t, sc)

	// Columns are x_P1, x_P2, then y plant-major. Open both plants and
	// serve each customer from its colocated site.
	//            x_P1 x_P2 y_P1_C1 y_P1_C2 y_P2_C1 y_P2_C2
	vals := []float64{1, 1, 1, 0, 0, 1}
	sol := milp.NewSolution(milp.StatusOptimal, 0, vals)

	open, assignments := fm.Decode(sc, mx, sol)
	require.Equal(t, []string{"P1", "P2"}, open)
	require.Len(t, assignments, 2)
	require.Equal(t, "P1", assignments[0].PlantID)
	require.Equal(t, "C1", assignments[0].CustomerID)
	require.Zero(t, assignments[0].Distance)
	require.Equal(t, 100.0, assignments[0].Demand)
	require.Equal(t, "P2", assignments[1].PlantID)
	require.Equal(t, "C2", assignments[1].CustomerID)
}

func TestDecodeSinglePlantServesAll(t *testing.T) {
	sc := twoByTwo()
	sc.Params.MaxWarehouses = 1
	netopt.ApplyDefaults(&sc.Params)
	fm, mx := buildScenario(t, sc)

	// Only P1 open; both customers assigned to it.
	vals := []float64{1, 0, 1, 1, 0, 0}
	sol := milp.NewSolution(milp.StatusOptimal, 0, vals)

	open, assignments := fm.Decode(sc, mx, sol)
	require.Equal(t, []string{"P1"}, open)
	require.Len(t, assignments, 2)
	require.Equal(t, "P1", assignments[1].PlantID)
	// C2 rides the Chicago->Detroit lane.
	require.InDelta(t, 237.03, assignments[1].Distance, 0.05)
}

func TestBuildTransportCostObjective(t *testing.T) {
	sc := twoByTwo()
	sc.Params.Objective = model.ObjectiveTransportCost
	sc.Params.CostPerMile = 2
	sc.Plants[0].FixedCost = 50000
	fm, _ := buildScenario(t, sc)

	var buf bytes.Buffer
	require.NoError(t, fm.B.WriteLP(&buf))
	require.Contains(t, buf.String(), " + 50000 x_P1")
}
