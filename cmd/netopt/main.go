// Command netopt solves a network design case from the command line: read a
// workbook, optimize, print KPIs, and write the input and solution maps.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/decision-spot/net-opt/internal/dataio"
	"github.com/decision-spot/net-opt/internal/geo"
	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
	"github.com/decision-spot/net-opt/internal/netopt"
	"github.com/decision-spot/net-opt/internal/plot"
)

func main() {
	var (
		input      = flag.String("input", "", "xlsx workbook with Plants and Customers sheets")
		plantsCSV  = flag.String("plants", "", "plants CSV (alternative to -input)")
		custCSV    = flag.String("customers", "", "customers CSV (alternative to -input)")
		paramsFile = flag.String("params", "", "YAML parameters file")
		maxWH      = flag.Int("max-warehouses", 0, "override max open warehouses")
		objective  = flag.String("objective", "", "weighted_distance or transport_cost")
		outDir     = flag.String("out", ".", "output directory for map HTML files")
		lpFile     = flag.String("lp", "", "also export the model in LP format to this path")
		solverLog  = flag.Bool("solver-log", false, "enable solver output")
		timeLimit  = flag.Float64("time-limit", 0, "solver time limit in seconds")
		mipGap     = flag.Float64("mip-gap", 0, "relative MIP gap tolerance")
	)
	flag.Parse()

	sc, err := loadScenario(*input, *plantsCSV, *custCSV, *paramsFile)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	if *maxWH > 0 {
		sc.Params.MaxWarehouses = *maxWH
	}
	if *objective != "" {
		sc.Params.Objective = model.Objective(*objective)
	}
	sc.Params.SolverLog = *solverLog
	if *timeLimit > 0 {
		sc.Params.TimeLimitSec = *timeLimit
	}
	if *mipGap > 0 {
		sc.Params.MIPGap = *mipGap
	}
	netopt.ApplyDefaults(&sc.Params)
	if err := netopt.Validate(sc); err != nil {
		log.Fatalf("validate: %v", err)
	}

	fmt.Printf("plants: %d  customers: %d  max warehouses: %d  objective: %s\n",
		len(sc.Plants), len(sc.Customers), sc.Params.MaxWarehouses, sc.Params.Objective)

	inputMap, err := plot.InputMapHTML("Input", sc)
	if err != nil {
		log.Fatalf("input map: %v", err)
	}
	if err := plot.WriteHTMLFile(filepath.Join(*outDir, "Input Map.html"), inputMap); err != nil {
		log.Fatalf("write input map: %v", err)
	}

	if *lpFile != "" {
		mx := geo.BuildMatrix(sc.Plants, sc.Customers, sc.Params)
		fm, err := netopt.Build(sc, mx)
		if err != nil {
			log.Fatalf("build model: %v", err)
		}
		if err := fm.B.WriteLPFile(*lpFile); err != nil {
			log.Fatalf("write lp: %v", err)
		}
	}

	engine := netopt.NewEngine(milp.NewHiGHS())
	res, err := engine.Optimize(context.Background(), sc)
	if err != nil {
		log.Fatalf("optimize: %v", err)
	}
	fmt.Printf("status: %s  (%d ms)\n", res.Status, res.SolveMs)
	if res.Status != milp.StatusOptimal && res.Status != milp.StatusFeasible {
		os.Exit(1)
	}

	printSummary(sc, res)

	solMap, err := plot.SolutionMapHTML("Solution", res.Lanes)
	if err != nil {
		log.Fatalf("solution map: %v", err)
	}
	if err := plot.WriteHTMLFile(filepath.Join(*outDir, "Solution Map.html"), solMap); err != nil {
		log.Fatalf("write solution map: %v", err)
	}
}

func loadScenario(input, plantsCSV, custCSV, paramsFile string) (model.Scenario, error) {
	var sc model.Scenario
	sc.Name = "cli"
	sc.Params = model.Params{MaxWarehouses: 3}
	if paramsFile != "" {
		p, err := dataio.ReadParamsFile(paramsFile)
		if err != nil {
			return sc, err
		}
		sc.Params = p
	}
	switch {
	case input != "":
		plants, customers, err := dataio.ReadWorkbookFile(input)
		if err != nil {
			return sc, err
		}
		sc.Plants, sc.Customers = plants, customers
	case plantsCSV != "" && custCSV != "":
		pf, err := os.Open(plantsCSV)
		if err != nil {
			return sc, err
		}
		defer func() { _ = pf.Close() }()
		plants, err := dataio.ReadPlantsCSV(pf)
		if err != nil {
			return sc, err
		}
		cf, err := os.Open(custCSV)
		if err != nil {
			return sc, err
		}
		defer func() { _ = cf.Close() }()
		customers, err := dataio.ReadCustomersCSV(cf)
		if err != nil {
			return sc, err
		}
		sc.Plants, sc.Customers = plants, customers
	default:
		return sc, fmt.Errorf("either -input or both -plants and -customers are required")
	}
	return sc, nil
}

func printSummary(sc model.Scenario, res netopt.Result) {
	names := map[string]string{}
	for _, p := range sc.Plants {
		names[p.ID] = p.Name
	}
	fmt.Printf("objective: %.2f\n", res.Objective)
	fmt.Printf("open warehouses (%d):\n", len(res.OpenPlants))
	open := append([]string(nil), res.OpenPlants...)
	sort.Strings(open)
	for _, id := range open {
		fmt.Printf("  %s  %s\n", id, names[id])
	}
	fmt.Printf("total demand: %.0f\n", res.KPIs.TotalDemand)
	fmt.Printf("weighted avg distance: %.1f\n", res.KPIs.WeightedAvgDist)
	radii := append([]int(nil), netopt.ServiceRadii...)
	sort.Ints(radii)
	for _, rad := range radii {
		fmt.Printf("demand within %d: %.1f%%\n", rad, res.KPIs.PctDemandWithin[rad]*100)
	}
}
