package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	applog "rbudget/internal/log"
	"rbudget/internal/services"
)

const readyTimeout = 5 * time.Second

// handleHealth is a liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the scenario source answers. Sources that cannot list
// scenarios count as ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if _, err := s.projections.Scenarios(ctx); err != nil && !errors.Is(err, services.ErrNotListable) {
		checks["scenarios"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["scenarios"] = "ok"
	}

	stats := s.projections.CacheStats()
	checks["cache"] = map[string]any{
		"entries": stats.Size,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
	}

	NewJSONResponse().Status(code).Data(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traces := s.tracer.GetMetrics()
	limits := s.limiter.GetMetrics()
	probes := s.detector.GetMetrics()
	cacheStats := s.projections.CacheStats()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traces.TotalRequests)
	metric("http_server_errors_total", "counter", "Requests answered with a 5xx status", traces.ServerErrors)
	metric("http_response_time_avg_seconds", "gauge", "Mean response time", traces.AverageResponseTime.Seconds())
	metric("projection_cache_hits_total", "counter", "Projection cache hits", cacheStats.Hits)
	metric("projection_cache_misses_total", "counter", "Projection cache misses", cacheStats.Misses)
	metric("projection_cache_entries", "gauge", "Cached projections", cacheStats.Size)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", limits.TotalHits)
	metric("rate_limit_clients", "gauge", "Clients tracked by the rate limiter", limits.ClientCount)
	metric("suspicious_requests_total", "counter", "Requests rejected as probes", probes.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Process uptime", int64(time.Since(s.started).Seconds()))
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	names, err := s.projections.Scenarios(r.Context())
	if err != nil {
		s.logError(r.Context(), "List scenarios failed", err, applog.OpList)
		ErrorFor(r.Context(), err).Write(w)
		return
	}
	if names == nil {
		names = []string{}
	}
	NewJSONResponse().Data(map[string]any{"scenarios": names}).Write(w)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")
	if !ValidScenarioName(name) {
		BadRequestError(ctx, fmt.Sprintf("invalid scenario name %q", name)).Write(w)
		return
	}
	params, err := ParseProjectionParams(r.URL.Query(), s.today(), s.defaultDays)
	if err != nil {
		BadRequestError(ctx, err.Error()).Write(w)
		return
	}

	p, err := s.projections.Project(ctx, name, params.Start, params.Days)
	if err != nil {
		s.logError(ctx, "Projection failed", err, applog.OpProject, applog.FieldScenario, name)
		ErrorFor(ctx, err).Write(w)
		return
	}
	NewJSONResponse().Data(newProjectionView(p, params.History)).Write(w)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := ParseScenarioNames(r.URL.Query(), s.maxCompare)
	if err != nil {
		BadRequestError(ctx, err.Error()).Write(w)
		return
	}
	params, err := ParseProjectionParams(r.URL.Query(), s.today(), s.defaultDays)
	if err != nil {
		BadRequestError(ctx, err.Error()).Write(w)
		return
	}

	projections, err := s.projections.Compare(ctx, names, params.Start, params.Days)
	if err != nil {
		s.logError(ctx, "Comparison failed", err, applog.OpCompare, "scenarios", names)
		ErrorFor(ctx, err).Write(w)
		return
	}

	view := compareView{Start: params.Start.String(), Days: params.Days}
	for _, p := range projections {
		view.Scenarios = append(view.Scenarios, newComparisonView(p))
	}
	NewJSONResponse().Data(view).Write(w)
}

// handleSaveScenario stores a scenario document after checking it builds.
func (s *Server) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.writer == nil {
		ErrorResponse(ctx, http.StatusNotImplemented, "scenario source is read only").Write(w)
		return
	}
	name := chi.URLParam(r, "name")
	if !ValidScenarioName(name) {
		BadRequestError(ctx, fmt.Sprintf("invalid scenario name %q", name)).Write(w)
		return
	}

	def, err := DecodeScenarioBody(r, s.maxBodyBytes)
	if err != nil {
		BadRequestError(ctx, err.Error()).Write(w)
		return
	}
	if _, err := def.Build(s.today()); err != nil {
		UnprocessableEntityError(ctx, err.Error()).Write(w)
		return
	}

	if err := s.writer.Save(ctx, name, def); err != nil {
		s.logError(ctx, "Saving scenario failed", err, applog.OpSave, applog.FieldScenario, name)
		ErrorFor(ctx, err).Write(w)
		return
	}
	dropped := s.projections.Invalidate(name)
	applog.FromContext(ctx).InfoContext(ctx, "Scenario saved",
		applog.FieldScenario, name,
		"accounts", len(def.Accounts),
		"transactions", len(def.Transactions),
		"invalidated", dropped)

	NewJSONResponse().Data(map[string]any{
		"scenario":     name,
		"accounts":     len(def.Accounts),
		"transactions": len(def.Transactions),
	}).Write(w)
}

func (s *Server) logError(ctx context.Context, msg string, err error, op string, args ...any) {
	args = append(args, applog.FieldOperation, op, applog.FieldError, err.Error())
	logger := applog.FromContext(ctx)
	if ErrorFor(ctx, err).statusCode < http.StatusInternalServerError {
		logger.WarnContext(ctx, msg, args...)
		return
	}
	logger.ErrorContext(ctx, msg, args...)
}
