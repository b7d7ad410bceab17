//go:build highs_integration

package netopt_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
	"github.com/decision-spot/net-opt/internal/netopt"
)

// Needs the HiGHS shared library installed; run with -tags highs_integration.

func TestHiGHSPicksNearestSite(t *testing.T) {
	sc := twoByTwo()
	sc.Params.MaxWarehouses = 2
	e := netopt.NewEngine(milp.NewHiGHS())

	res, err := e.Optimize(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	// Each customer is colocated with one site, so the optimum opens both
	// and every lane has zero length.
	require.Equal(t, []string{"P1", "P2"}, res.OpenPlants)
	require.Zero(t, res.KPIs.WeightedAvgDist)
}

func TestHiGHSRespectsCardinality(t *testing.T) {
	sc := twoByTwo()
	sc.Params.MaxWarehouses = 1
	e := netopt.NewEngine(milp.NewHiGHS())

	res, err := e.Optimize(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	require.Len(t, res.OpenPlants, 1)
	// C1 carries twice the demand of C2, so the single warehouse sits in
	// Chicago.
	require.Equal(t, []string{"P1"}, res.OpenPlants)
	require.Len(t, res.Assignments, 2)
}

func TestHiGHSForcedSites(t *testing.T) {
	sc := twoByTwo()
	sc.Params.MaxWarehouses = 2
	sc.Plants[0].CanUse = false
	sc.Plants[1].MustUse = true
	e := netopt.NewEngine(milp.NewHiGHS())

	res, err := e.Optimize(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	require.Equal(t, []string{"P2"}, res.OpenPlants)
}

func TestHiGHSInfeasibleCapacity(t *testing.T) {
	sc := twoByTwo()
	// Total demand 150 cannot fit anywhere.
	for i := range sc.Plants {
		sc.Plants[i].Capacity = 10
	}
	e := netopt.NewEngine(milp.NewHiGHS())

	res, err := e.Optimize(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, milp.StatusInfeasible, res.Status)
}

func TestHiGHSTransportCostObjective(t *testing.T) {
	sc := twoByTwo()
	sc.Params.MaxWarehouses = 2
	sc.Params.Objective = model.ObjectiveTransportCost
	sc.Params.CostPerMile = 2
	sc.Params.MinLaneCost = 50
	// A large fixed cost on P2 makes the single-site plan cheaper even
	// though it lengthens the Detroit lane.
	sc.Plants[1].FixedCost = 1e6
	e := netopt.NewEngine(milp.NewHiGHS())

	res, err := e.Optimize(context.Background(), sc)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	require.Equal(t, []string{"P1"}, res.OpenPlants)
}
