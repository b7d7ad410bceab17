package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/netopt"
)

// stubSolver opens the first plant and assigns every customer to it. With one
// plant and one customer the column layout is [x_p, y_pc].
type stubSolver struct {
	status milp.Status
}

func (ss stubSolver) Solve(ctx context.Context, b *milp.Builder, opts milp.Options) (milp.Solution, error) {
	if ss.status == milp.StatusInfeasible {
		return milp.NewSolution(milp.StatusInfeasible, 0, nil), nil
	}
	values := make([]float64, b.NumVars())
	for i := range values {
		values[i] = 1
	}
	return milp.NewSolution(milp.StatusOptimal, 123.4, values), nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	s.Engine = netopt.NewEngine(stubSolver{})
	return s
}

const scenarioBody = `{
	"name": "one-lane",
	"plants": [{"id": "P1", "name": "Chicago", "lat": 41.88, "lon": -87.63, "canUse": true}],
	"customers": [{"id": "C1", "name": "Detroit", "lat": 42.33, "lon": -83.05, "demand": 100}],
	"params": {"maxWarehouses": 1}
}`

func createScenario(t *testing.T, s *Server) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", bytes.NewReader([]byte(scenarioBody)))
	req.Header.Set("Content-Type", "application/json")
	s.ScenariosHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create scenario: got %d: %s", rr.Code, rr.Body.String())
	}
	var sc struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &sc); err != nil {
		t.Fatalf("decode scenario: %v", err)
	}
	return sc.ID
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestScenarioCreateListGet(t *testing.T) {
	s := newTestServer(t)
	id := createScenario(t, s)

	rr := httptest.NewRecorder()
	s.ScenariosHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/scenarios?limit=5", nil))
	if rr.Code != 200 {
		t.Fatalf("list scenarios: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.ScenarioByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/scenarios/"+id, nil))
	if rr.Code != 200 {
		t.Fatalf("get scenario: got %d", rr.Code)
	}
}

func TestScenarioCreateRejectsBadParams(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"name":"x","plants":[{"id":"P1","lat":1,"lon":2,"canUse":true}],"customers":[{"id":"C1","lat":1,"lon":2,"demand":1}],"params":{"maxWarehouses":0}}`)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/scenarios", bytes.NewReader(body))
	s.ScenariosHandler(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSolveWaitReturnsOptimalRun(t *testing.T) {
	s := newTestServer(t)
	id := createScenario(t, s)

	body, _ := json.Marshal(map[string]any{"scenarioId": id})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve?wait=true", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.SolveHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d: %s", rr.Code, rr.Body.String())
	}
	var run struct {
		ID         string   `json:"id"`
		Status     string   `json:"status"`
		OpenPlants []string `json:"openPlants"`
		KPIs       *struct {
			OpenWarehouses int `json:"openWarehouses"`
		} `json:"kpis"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.Status != "optimal" {
		t.Fatalf("run status = %q", run.Status)
	}
	if len(run.OpenPlants) != 1 || run.OpenPlants[0] != "P1" {
		t.Fatalf("open plants = %v", run.OpenPlants)
	}
	if run.KPIs == nil || run.KPIs.OpenWarehouses != 1 {
		t.Fatalf("kpis = %+v", run.KPIs)
	}

	// run readable afterwards
	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("get run: got %d", rr.Code)
	}

	// solution map renders
	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID+"/map", nil))
	if rr.Code != 200 {
		t.Fatalf("run map: got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("run map content type = %q", ct)
	}
}

func TestSolveInfeasibleRun(t *testing.T) {
	s := newTestServer(t)
	s.Engine = netopt.NewEngine(stubSolver{status: milp.StatusInfeasible})
	id := createScenario(t, s)

	body, _ := json.Marshal(map[string]any{"scenarioId": id})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve?wait=true", bytes.NewReader(body))
	s.SolveHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d", rr.Code)
	}
	var run struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &run)
	if run.Status != "infeasible" {
		t.Fatalf("run status = %q", run.Status)
	}
}

func TestSolveUnknownScenario(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"scenarioId":"nope"}`)
	rr := httptest.NewRecorder()
	s.SolveHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body)))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestSolveRateLimited(t *testing.T) {
	s := newTestServer(t)
	s.rps = 0.0001
	s.burst = 1
	id := createScenario(t, s)
	body, _ := json.Marshal(map[string]any{"scenarioId": id})
	rr := httptest.NewRecorder()
	s.SolveHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/solve?wait=true", bytes.NewReader(body)))
	if rr.Code != 200 {
		t.Fatalf("first solve: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.SolveHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body)))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
}

func TestScenarioMapAndLPExport(t *testing.T) {
	s := newTestServer(t)
	id := createScenario(t, s)

	rr := httptest.NewRecorder()
	s.ScenarioByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/scenarios/"+id+"/map", nil))
	if rr.Code != 200 {
		t.Fatalf("scenario map: got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("scattergeo")) {
		t.Fatalf("map output missing scattergeo trace")
	}

	rr = httptest.NewRecorder()
	s.ScenarioByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/scenarios/"+id+"/model.lp", nil))
	if rr.Code != 200 {
		t.Fatalf("lp export: got %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("Minimize")) || !bytes.Contains(rr.Body.Bytes(), []byte("Binaries")) {
		t.Fatalf("lp export missing sections: %s", rr.Body.String())
	}
}

func TestSubscriptionsCRUD(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"url":"https://example.com/hook","events":["run.completed"],"secret":"s"}`)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(body))
	s.SubscriptionsHandler(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create subscription: got %d: %s", rr.Code, rr.Body.String())
	}
	var sub struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &sub)

	rr = httptest.NewRecorder()
	s.SubscriptionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil))
	if rr.Code != 200 {
		t.Fatalf("list subscriptions: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil))
	if rr.Code != 204 {
		t.Fatalf("delete subscription: got %d", rr.Code)
	}
}

func TestAdminSolverConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"config":{"timeLimitSec":60,"mipGap":0.01}}`)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/admin/solver/config", bytes.NewReader(body))
	s.AdminSolverConfigHandler(rr, req)
	if rr.Code != 200 {
		t.Fatalf("put solver config: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SolverConfigHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solver/config", nil))
	if rr.Code != 200 {
		t.Fatalf("get solver config: got %d", rr.Code)
	}
	var out struct {
		Defaults map[string]any `json:"defaults"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &out)
	if out.Defaults["timeLimitSec"].(float64) != 60 {
		t.Fatalf("tenant overlay missing: %+v", out.Defaults)
	}
}

func TestForbiddenForNonAdmin(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/runs/stats", nil)
	req.Header.Set("X-Role", "viewer")
	rr := httptest.NewRecorder()
	s.RunStatsHandler(rr, req)
	if rr.Code != 403 {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}
