package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/decision-spot/net-opt/internal/dataio"
	"github.com/decision-spot/net-opt/internal/geo"
	"github.com/decision-spot/net-opt/internal/metrics"
	"github.com/decision-spot/net-opt/internal/milp"
	"github.com/decision-spot/net-opt/internal/model"
	"github.com/decision-spot/net-opt/internal/netopt"
	"github.com/decision-spot/net-opt/internal/plot"
	"github.com/decision-spot/net-opt/internal/store"
	"github.com/decision-spot/net-opt/internal/webhooks"
)

// ScenariosHandler handles POST/GET /v1/scenarios
func (s *Server) ScenariosHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		var in model.ScenarioIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateScenarioIn(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid scenario", err.Error(), r.URL.Path)
			return
		}
		sc, err := s.Store.CreateScenario(r.Context(), p.Tenant, in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create scenario failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sc)
	case http.MethodGet:
		p := s.getPrincipal(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListScenarios(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List scenarios failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ScenarioImportHandler handles POST /v1/scenarios/import with a multipart
// workbook upload. Sheet layout: Plants and Customers.
func (s *Server) ScenarioImportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid multipart form", err.Error(), r.URL.Path)
		return
	}
	file, _, err := r.FormFile("workbook")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Missing workbook", "form file field \"workbook\" required", r.URL.Path)
		return
	}
	defer func() { _ = file.Close() }()
	plants, customers, err := dataio.ReadWorkbook(file)
	if err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Workbook parse failed", err.Error(), r.URL.Path)
		return
	}
	in := model.ScenarioIn{
		Name:      r.FormValue("name"),
		Plants:    plants,
		Customers: customers,
		Params:    model.Params{MaxWarehouses: 3},
	}
	if v := r.FormValue("params"); v != "" {
		if err := json.Unmarshal([]byte(v), &in.Params); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid params", err.Error(), r.URL.Path)
			return
		}
	}
	if v := r.FormValue("maxWarehouses"); v != "" {
		fmt.Sscanf(v, "%d", &in.Params.MaxWarehouses)
	}
	if in.Name == "" {
		in.Name = "imported " + time.Now().UTC().Format("2006-01-02 15:04:05")
	}
	if err := validateScenarioIn(&in); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid scenario", err.Error(), r.URL.Path)
		return
	}
	sc, err := s.Store.CreateScenario(r.Context(), p.Tenant, in)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create scenario failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// ScenarioByIDHandler handles /v1/scenarios/{id} plus the /map and /model.lp
// subresources.
func (s *Server) ScenarioByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/scenarios/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	p := s.getPrincipal(r)
	sc, err := s.Store.GetScenario(r.Context(), p.Tenant, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Scenario not found", "", r.URL.Path)
		} else {
			writeProblem(w, http.StatusInternalServerError, "Get scenario failed", err.Error(), r.URL.Path)
		}
		return
	}

	if len(parts) > 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		switch parts[1] {
		case "map":
			html, err := plot.InputMapHTML(sc.Name, sc)
			if err != nil {
				writeProblem(w, http.StatusInternalServerError, "Render map failed", err.Error(), r.URL.Path)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(html)
		case "model.lp":
			netopt.ApplyDefaults(&sc.Params)
			mx := geo.BuildMatrix(sc.Plants, sc.Customers, sc.Params)
			fm, err := netopt.Build(sc, mx)
			if err != nil {
				writeProblem(w, http.StatusUnprocessableEntity, "Model build failed", err.Error(), r.URL.Path)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="`+sc.Name+`.lp"`)
			_ = fm.B.WriteLP(w)
		default:
			writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, sc)
	case http.MethodDelete:
		if !p.IsAdmin() {
			writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeleteScenario(r.Context(), p.Tenant, id); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Delete scenario failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolveHandler handles POST /v1/solve
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !s.limiter(p.Tenant).Allow() {
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many solve requests", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	sc, err := s.Store.GetScenario(r.Context(), p.Tenant, req.ScenarioID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Scenario not found", "", r.URL.Path)
		} else {
			writeProblem(w, http.StatusInternalServerError, "Get scenario failed", err.Error(), r.URL.Path)
		}
		return
	}
	params := mergeParams(sc.Params, req.Overrides)
	run, err := s.Store.CreateRun(r.Context(), p.Tenant, sc.ID, params)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}
	if r.URL.Query().Get("wait") == "true" || r.URL.Query().Get("wait") == "1" {
		s.solveRun(p.Tenant, run, sc)
		done, err := s.Store.GetRun(r.Context(), p.Tenant, run.ID)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, done)
		return
	}
	go s.solveRun(p.Tenant, run, sc)
	writeJSON(w, http.StatusAccepted, run)
}

// solveRun executes the optimization pipeline for one run and records the
// outcome. Terminal events go out over the broker and as webhooks.
func (s *Server) solveRun(tenant string, run model.Run, sc model.Scenario) {
	ctx := context.Background()
	if run.Params.TimeLimitSec > 0 {
		// margin over the solver's own limit for build and decode
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(run.Params.TimeLimitSec)*time.Second+30*time.Second)
		defer cancel()
	}
	run.Status = model.RunStatusRunning
	_ = s.Store.UpdateRun(ctx, run)
	s.Broker.Publish(run.ID, SSEEvent{Type: "run.started", Data: map[string]any{"runId": run.ID, "scenarioId": sc.ID}})

	sc.Params = run.Params
	start := time.Now()
	res, err := s.Engine.Optimize(ctx, sc)
	run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
	if err != nil {
		run.Status = model.RunStatusError
		run.Error = err.Error()
		_ = s.Store.UpdateRun(ctx, run)
		metrics.SolveRuns.WithLabelValues(run.Status).Inc()
		metrics.SolveDuration.WithLabelValues(run.Status).Observe(time.Since(start).Seconds())
		data := map[string]any{"runId": run.ID, "scenarioId": sc.ID, "error": run.Error}
		s.Broker.Publish(run.ID, SSEEvent{Type: webhooks.EventRunFailed, Data: data})
		s.Pub.Emit(ctx, tenant, webhooks.EventRunFailed, data)
		return
	}
	run.Status = netopt.RunStatus(res.Status)
	run.SolveMs = res.SolveMs
	if res.Status == milp.StatusOptimal || res.Status == milp.StatusFeasible {
		run.OpenPlants = res.OpenPlants
		run.Assignments = res.Assignments
		run.Lanes = res.Lanes
		kpis := res.KPIs
		run.KPIs = &kpis
	}
	_ = s.Store.UpdateRun(ctx, run)
	metrics.SolveRuns.WithLabelValues(run.Status).Inc()
	metrics.SolveDuration.WithLabelValues(run.Status).Observe(time.Since(start).Seconds())
	metrics.ModelSize.Observe(float64(res.Vars))
	data := map[string]any{"runId": run.ID, "scenarioId": sc.ID, "status": run.Status, "solveMs": run.SolveMs}
	if run.KPIs != nil {
		data["objective"] = run.KPIs.Objective
		data["openWarehouses"] = run.KPIs.OpenWarehouses
	}
	s.Broker.Publish(run.ID, SSEEvent{Type: webhooks.EventRunCompleted, Data: data})
	s.Pub.Emit(ctx, tenant, webhooks.EventRunCompleted, data)
}

// mergeParams overlays non-zero override fields on the scenario params.
func mergeParams(base model.Params, ov *model.Params) model.Params {
	if ov == nil {
		return base
	}
	if ov.MaxWarehouses > 0 {
		base.MaxWarehouses = ov.MaxWarehouses
	}
	if ov.CostPerMile > 0 {
		base.CostPerMile = ov.CostPerMile
	}
	if ov.MinLaneCost > 0 {
		base.MinLaneCost = ov.MinLaneCost
	}
	if ov.Units != "" {
		base.Units = ov.Units
	}
	if ov.RoadFactor > 0 {
		base.RoadFactor = ov.RoadFactor
	}
	if ov.Objective != "" {
		base.Objective = ov.Objective
	}
	if ov.TimeLimitSec > 0 {
		base.TimeLimitSec = ov.TimeLimitSec
	}
	if ov.MIPGap > 0 {
		base.MIPGap = ov.MIPGap
	}
	if ov.SolverLog {
		base.SolverLog = true
	}
	return base
}

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	scenarioID := r.URL.Query().Get("scenarioId")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListRuns(r.Context(), p.Tenant, scenarioID, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} plus the /map and /events/stream
// subresources.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	p := s.getPrincipal(r)

	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		ch := s.Broker.Subscribe(id)
		defer s.Broker.Unsubscribe(id, ch)
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
		flusher.Flush()
		notify := r.Context().Done()
		for {
			select {
			case <-notify:
				return
			case evt := <-ch:
				b, _ := json.Marshal(evt.Data)
				fmt.Fprintf(w, "event: %s\n", evt.Type)
				fmt.Fprintf(w, "data: %s\n\n", string(b))
				flusher.Flush()
			case <-time.After(15 * time.Second):
				fmt.Fprintf(w, "event: heartbeat\n")
				fmt.Fprintf(w, "data: {\"runId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
				flusher.Flush()
			}
		}
	}

	run, err := s.Store.GetRun(r.Context(), p.Tenant, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
		} else {
			writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		}
		return
	}

	if len(parts) > 1 && parts[1] == "map" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if len(run.Lanes) == 0 {
			writeProblem(w, http.StatusConflict, "No solution", "run has no assignments to render", r.URL.Path)
			return
		}
		html, err := plot.SolutionMapHTML("run "+run.ID, run.Lanes)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Render map failed", err.Error(), r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(html)
		return
	}

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// SolverConfigHandler returns effective solver defaults for the tenant.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solver/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	defaults := map[string]any{
		"objective":    string(model.ObjectiveWeightedDistance),
		"units":        "miles",
		"roadFactor":   1.0,
		"timeLimitSec": 0,
		"mipGap":       0.0,
		"solverLog":    false,
		"serviceRadii": netopt.ServiceRadii,
	}
	p := s.getPrincipal(r)
	cfg, _ := s.Store.GetSolverConfig(r.Context(), p.Tenant)
	for k, v := range cfg {
		defaults[k] = v
	}
	writeJSON(w, 200, map[string]any{"defaults": defaults})
}

// AdminSolverConfigHandler gets/sets tenant solver config.
func (s *Server) AdminSolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/solver/config" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, _ := s.Store.GetSolverConfig(r.Context(), p.Tenant)
		if cfg == nil {
			cfg = map[string]any{}
		}
		writeJSON(w, 200, map[string]any{"config": cfg})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, 400, "Missing config", "", r.URL.Path)
			return
		}
		if err := s.Store.SaveSolverConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.TenantID == "" {
			req.TenantID = p.Tenant
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
		if err != nil {
			writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(405)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil {
		writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(204)
}

// WebhookDeliveriesHandler lists webhook deliveries (admin).
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/webhook-deliveries" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(405)
		return
	}
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, cursor, limit)
	if err != nil {
		writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// WebhookDeliveryRetryHandler handles POST /v1/admin/webhook-deliveries/{id}/retry
func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "retry" || r.Method != http.MethodPost {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, parts[0]); err != nil {
		writeProblem(w, 500, "Retry failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]bool{"ok": true})
}

// RunStatsHandler returns run counts by status (admin).
func (s *Server) RunStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/runs/stats" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	stats, err := s.Store.RunStats(r.Context(), p.Tenant)
	if err != nil {
		writeProblem(w, 500, "Run stats failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, stats)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
