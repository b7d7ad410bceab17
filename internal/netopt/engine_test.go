package netopt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
	"github.com/decision-spot/net-opt/internal/netopt"
)

// fixedSolver hands back a canned solution, standing in for the HiGHS
// backend.
type fixedSolver struct {
	sol milp.Solution
	err error
}

func (f fixedSolver) Solve(_ context.Context, _ *milp.Builder, _ milp.Options) (milp.Solution, error) {
	return f.sol, f.err
}

func TestEngineOptimize(t *testing.T) {
	// Open both sites, serve each customer locally.
	sol := milp.NewSolution(milp.StatusOptimal, 0, []float64{1, 1, 1, 0, 0, 1})
	e := netopt.NewEngine(fixedSolver{sol: sol})

	res, err := e.Optimize(context.Background(), twoByTwo())
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	require.Equal(t, 6, res.Vars)
	require.Equal(t, []string{"P1", "P2"}, res.OpenPlants)
	require.Len(t, res.Assignments, 2)
	require.Len(t, res.Lanes, 2)
	require.Equal(t, 2, res.KPIs.OpenWarehouses)
	require.Equal(t, 150.0, res.KPIs.TotalDemand)
	require.Zero(t, res.KPIs.WeightedAvgDist)
	require.Equal(t, 1.0, res.KPIs.PctDemandWithin[400])
}

func TestEngineInfeasible(t *testing.T) {
	e := netopt.NewEngine(fixedSolver{sol: milp.NewSolution(milp.StatusInfeasible, 0, nil)})
	res, err := e.Optimize(context.Background(), twoByTwo())
	require.NoError(t, err)
	require.Equal(t, milp.StatusInfeasible, res.Status)
	require.Empty(t, res.OpenPlants)
	require.Empty(t, res.Assignments)
}

func TestEngineBuildError(t *testing.T) {
	sc := twoByTwo()
	sc.Customers = nil
	e := netopt.NewEngine(fixedSolver{})
	_, err := e.Optimize(context.Background(), sc)
	require.Error(t, err)
}

func TestEngineSolverError(t *testing.T) {
	boom := errors.New("backend unavailable")
	e := netopt.NewEngine(fixedSolver{err: boom})
	_, err := e.Optimize(context.Background(), twoByTwo())
	require.ErrorIs(t, err, boom)
}

func TestRunStatus(t *testing.T) {
	require.Equal(t, model.RunStatusOptimal, netopt.RunStatus(milp.StatusOptimal))
	require.Equal(t, model.RunStatusFeasible, netopt.RunStatus(milp.StatusFeasible))
	require.Equal(t, model.RunStatusInfeasible, netopt.RunStatus(milp.StatusInfeasible))
	require.Equal(t, model.RunStatusUnbounded, netopt.RunStatus(milp.StatusUnbounded))
	require.Equal(t, model.RunStatusError, netopt.RunStatus(milp.StatusUnknown))
}
