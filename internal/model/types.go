package model

// Core domain types for two-echelon network design scenarios.

// Plant is a production site whose location is a candidate warehouse.
type Plant struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	FixedCost float64 `json:"fixedCost,omitempty"` // one-time cost if the site is opened as a warehouse
	Capacity  float64 `json:"capacity,omitempty"`  // max demand the site can absorb; 0 means uncapacitated
	MustUse   bool    `json:"mustUse,omitempty"`
	CanUse    bool    `json:"canUse"`
}

// Customer is a demand point served by exactly one open warehouse.
type Customer struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Demand    float64 `json:"demand"`
}

// Objective selects what the MILP minimizes.
type Objective string

const (
	// ObjectiveWeightedDistance minimizes sum of distance * demand over assignments.
	ObjectiveWeightedDistance Objective = "weighted_distance"
	// ObjectiveTransportCost minimizes lane transport costs plus warehouse fixed costs.
	ObjectiveTransportCost Objective = "transport_cost"
)

// Params holds the tunables of a network optimization run.
type Params struct {
	MaxWarehouses int       `json:"maxWarehouses" yaml:"maxWarehouses"`
	CostPerMile   float64   `json:"costPerMile,omitempty" yaml:"costPerMile"`
	MinLaneCost   float64   `json:"minLaneCost,omitempty" yaml:"minLaneCost"`
	Units         string    `json:"units,omitempty" yaml:"units"` // miles (default) or km
	RoadFactor    float64   `json:"roadFactor,omitempty" yaml:"roadFactor"`
	Objective     Objective `json:"objective,omitempty" yaml:"objective"`
	TimeLimitSec  float64   `json:"timeLimitSec,omitempty" yaml:"timeLimitSec"`
	MIPGap        float64   `json:"mipGap,omitempty" yaml:"mipGap"`
	SolverLog     bool      `json:"solverLog,omitempty" yaml:"solverLog"`
}

// Scenario bundles the locations and parameters of one planning case.
type Scenario struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	Name      string     `json:"name"`
	Plants    []Plant    `json:"plants"`
	Customers []Customer `json:"customers"`
	Params    Params     `json:"params"`
	CreatedAt string     `json:"createdAt,omitempty"`
}

// ScenarioIn is the write model for scenario creation.
type ScenarioIn struct {
	Name      string     `json:"name"`
	Plants    []Plant    `json:"plants"`
	Customers []Customer `json:"customers"`
	Params    Params     `json:"params"`
}

// SolveRequest asks for a scenario to be optimized. Override params are
// merged over the scenario's stored params.
type SolveRequest struct {
	TenantID   string  `json:"tenantId,omitempty"`
	ScenarioID string  `json:"scenarioId"`
	Overrides  *Params `json:"overrides,omitempty"`
}

// Assignment maps one customer to the warehouse serving it.
type Assignment struct {
	PlantID    string  `json:"plantId"`
	CustomerID string  `json:"customerId"`
	Distance   float64 `json:"distance"`
	Demand     float64 `json:"demand"`
}

// Lane is the denormalized origin/destination view of an assignment, shaped
// for map rendering and exports.
type Lane struct {
	Lane        string  `json:"lane"` // "<plantId>-<customerId>"
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Demand      float64 `json:"demand"`
	PlantID     string  `json:"plantId"`
	OriginLat   float64 `json:"originLat"`
	OriginLon   float64 `json:"originLon"`
	CustomerID  string  `json:"customerId"`
	DestLat     float64 `json:"destLat"`
	DestLon     float64 `json:"destLon"`
}

// KPIs summarizes a solved network.
type KPIs struct {
	Objective         float64         `json:"objective"`
	TotalDemand       float64         `json:"totalDemand"`
	WeightedAvgDist   float64         `json:"weightedAvgDist"`
	PctDemandWithin   map[int]float64 `json:"pctDemandWithin"` // radius -> fraction in [0,1]
	OpenWarehouses    int             `json:"openWarehouses"`
	AssignedCustomers int             `json:"assignedCustomers"`
}

// Run statuses. Terminal solver outcomes mirror the solver's own taxonomy.
const (
	RunStatusQueued     = "queued"
	RunStatusRunning    = "running"
	RunStatusOptimal    = "optimal"
	RunStatusFeasible   = "feasible" // stopped on time limit with an incumbent
	RunStatusInfeasible = "infeasible"
	RunStatusUnbounded  = "unbounded"
	RunStatusError      = "error"
)

// Run is one optimization execution of a scenario.
type Run struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenantId"`
	ScenarioID  string       `json:"scenarioId"`
	Status      string       `json:"status"`
	Params      Params       `json:"params"`
	OpenPlants  []string     `json:"openPlants,omitempty"`
	Assignments []Assignment `json:"assignments,omitempty"`
	Lanes       []Lane       `json:"lanes,omitempty"`
	KPIs        *KPIs        `json:"kpis,omitempty"`
	Error       string       `json:"error,omitempty"`
	SolveMs     int64        `json:"solveMs,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
	FinishedAt  string       `json:"finishedAt,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for run events.
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

// Subscription is a stored webhook registration.
type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
